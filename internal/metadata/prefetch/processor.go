package prefetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	ledgermodels "shebuilds/internal/ledger/models"
	"shebuilds/internal/metadata/metrics"
	"shebuilds/internal/metadata/models"
	dErrors "shebuilds/pkg/domain-errors"
)

// Resolver resolves and caches a credential's metadata document.
type Resolver interface {
	Resolve(ctx context.Context, id ledgermodels.CredentialID) (*models.Resolved, error)
}

// Processor handles prefetch tasks.
type Processor struct {
	resolver Resolver
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewProcessor(resolver Resolver, logger *slog.Logger, m *metrics.Metrics) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{resolver: resolver, logger: logger, metrics: m}
}

// Handle resolves the task's credential. Malformed payloads and credentials
// whose metadata can never resolve are not retried; unavailable fetches are.
func (p *Processor) Handle(ctx context.Context, task *asynq.Task) error {
	var payload Payload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		p.metrics.IncPrefetch("process", "skipped")
		return fmt.Errorf("decode prefetch payload: %v: %w", err, asynq.SkipRetry)
	}

	res, err := p.resolver.Resolve(ctx, payload.TokenID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeTokenNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound) {
			p.metrics.IncPrefetch("process", "skipped")
			p.logger.InfoContext(ctx, "prefetch skipped", "token_id", payload.TokenID.String(), "error", err)
			return fmt.Errorf("prefetch %s: %v: %w", payload.TokenID, err, asynq.SkipRetry)
		}
		p.metrics.IncPrefetch("process", "error")
		return fmt.Errorf("prefetch %s: %w", payload.TokenID, err)
	}

	p.metrics.IncPrefetch("process", "ok")
	p.logger.DebugContext(ctx, "metadata prefetched", "token_id", payload.TokenID.String(), "cached", res.Cached)
	return nil
}
