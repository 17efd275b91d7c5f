package prefetch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	ledgermodels "shebuilds/internal/ledger/models"
	"shebuilds/internal/metadata/metrics"
)

// TaskClient is the enqueue side of *asynq.Client.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer turns committed CredentialIssued events into prefetch tasks.
// It is registered as a post-commit ledger event sink; enqueue failures
// are logged and never reach the ledger caller.
type Enqueuer struct {
	client   TaskClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	maxRetry int
}

func NewEnqueuer(client TaskClient, logger *slog.Logger, m *metrics.Metrics) *Enqueuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enqueuer{client: client, logger: logger, metrics: m, maxRetry: defaultMaxRetry}
}

func (e *Enqueuer) Publish(ctx context.Context, events []ledgermodels.Event) {
	for _, ev := range events {
		if ev.Type != ledgermodels.EventCredentialIssued || ev.TokenID == nil {
			continue
		}
		e.enqueue(ctx, *ev.TokenID)
	}
}

func (e *Enqueuer) enqueue(ctx context.Context, id ledgermodels.CredentialID) {
	task, err := NewTask(id)
	if err != nil {
		e.metrics.IncPrefetch("enqueue", "error")
		e.logger.ErrorContext(ctx, "failed to build prefetch task", "token_id", id.String(), "error", err)
		return
	}
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueMetadata),
		asynq.MaxRetry(e.maxRetry),
		asynq.Timeout(taskTimeout),
		asynq.TaskID(taskID(id)),
	)
	switch {
	case err == nil:
		e.metrics.IncPrefetch("enqueue", "ok")
	case errors.Is(err, asynq.ErrTaskIDConflict), errors.Is(err, asynq.ErrDuplicateTask):
		e.metrics.IncPrefetch("enqueue", "duplicate")
	default:
		e.metrics.IncPrefetch("enqueue", "error")
		e.logger.WarnContext(ctx, "failed to enqueue metadata prefetch", "token_id", id.String(), "error", err)
	}
}
