// Package store caches resolved metadata documents keyed by metadata URI.
package store

import (
	"context"
	"fmt"

	"shebuilds/internal/metadata/models"
	"shebuilds/pkg/platform/sentinel"
)

// ErrNotFound reports a cache miss, including an expired entry.
var ErrNotFound = fmt.Errorf("metadata cache: %w", sentinel.ErrNotFound)

// Cache is the document cache used by the metadata service and the prefetch worker.
type Cache interface {
	Find(ctx context.Context, uri string) (*models.Document, error)
	Save(ctx context.Context, uri string, doc *models.Document) error
}
