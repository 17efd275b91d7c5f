package store

import (
	"context"
	"sync"
	"time"

	"shebuilds/internal/metadata/models"
)

type cachedDocument struct {
	doc      models.Document
	storedAt time.Time
}

// InMemoryCache is the cache used when Redis is not configured.
type InMemoryCache struct {
	mu       sync.RWMutex
	docs     map[string]cachedDocument
	cacheTTL time.Duration
	now      func() time.Time
}

func NewInMemoryCache(cacheTTL time.Duration) *InMemoryCache {
	return &InMemoryCache{
		docs:     make(map[string]cachedDocument),
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// Save stores a copy of doc. A nil doc is a no-op.
func (c *InMemoryCache) Save(_ context.Context, uri string, doc *models.Document) error {
	if doc == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[uri] = cachedDocument{doc: cloneDocument(*doc), storedAt: c.now()}
	return nil
}

// Find returns ErrNotFound when the entry is absent or older than the TTL.
func (c *InMemoryCache) Find(_ context.Context, uri string) (*models.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.docs[uri]
	if !ok || c.now().Sub(cached.storedAt) >= c.cacheTTL {
		return nil, ErrNotFound
	}
	doc := cloneDocument(cached.doc)
	return &doc, nil
}

// ClearAll drops every cached document.
func (c *InMemoryCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = make(map[string]cachedDocument)
}

func cloneDocument(d models.Document) models.Document {
	out := d
	if d.Attributes != nil {
		out.Attributes = make([]models.Attribute, len(d.Attributes))
		copy(out.Attributes, d.Attributes)
	}
	return out
}
