// Package prefetch warms the metadata cache in the background. Each issued
// credential becomes an asynq task that resolves and caches its document.
package prefetch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	ledgermodels "shebuilds/internal/ledger/models"
)

const (
	TaskTypePrefetch = "metadata:prefetch"
	QueueMetadata    = "metadata"

	defaultMaxRetry = 5
	taskTimeout     = 30 * time.Second
)

// Payload identifies the credential whose metadata should be cached.
type Payload struct {
	TokenID ledgermodels.CredentialID `json:"token_id"`
}

// NewTask builds a prefetch task for id.
func NewTask(id ledgermodels.CredentialID) (*asynq.Task, error) {
	body, err := json.Marshal(Payload{TokenID: id})
	if err != nil {
		return nil, fmt.Errorf("encode prefetch payload: %w", err)
	}
	return asynq.NewTask(TaskTypePrefetch, body), nil
}

// taskID deduplicates prefetches of the same credential while one is pending.
func taskID(id ledgermodels.CredentialID) string {
	return "prefetch:" + id.String()
}
