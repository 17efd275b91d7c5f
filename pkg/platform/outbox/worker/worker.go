package worker

import (
	"context"
	"log/slog"
	"time"

	"shebuilds/internal/platform/kafka/producer"
	"shebuilds/pkg/platform/outbox"
	"shebuilds/pkg/platform/outbox/metrics"
)

// Publisher delivers one message. *producer.Producer and *producer.Noop satisfy it.
type Publisher interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Worker polls the outbox and publishes pending entries in order.
type Worker struct {
	store        outbox.Store
	publisher    Publisher
	topic        string
	batchSize    int
	pollInterval time.Duration
	retention    time.Duration
	drainTimeout time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
	now          func() time.Time
}

type Option func(*Worker)

func WithTopic(topic string) Option {
	return func(w *Worker) { w.topic = topic }
}

func WithBatchSize(size int) Option {
	return func(w *Worker) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithRetention prunes processed entries older than d. Zero keeps them forever.
func WithRetention(d time.Duration) Option {
	return func(w *Worker) { w.retention = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// DefaultTopic receives every credential lifecycle event.
const DefaultTopic = "shebuilds.credentials.events"

func New(store outbox.Store, publisher Publisher, opts ...Option) *Worker {
	w := &Worker{
		store:        store,
		publisher:    publisher,
		topic:        DefaultTopic,
		batchSize:    100,
		pollInterval: 250 * time.Millisecond,
		drainTimeout: 10 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is cancelled, then drains what is left with a bounded
// timeout. It always returns nil so an errgroup does not tear down the server.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	start := time.Now()
	if _, err := w.ProcessBatch(ctx); err != nil {
		w.logError(ctx, "failed to fetch outbox entries", "error", err)
	}
	w.refreshPending(ctx)
	w.prune(ctx)
	if w.metrics != nil {
		w.metrics.ObservePollDuration(time.Since(start).Seconds())
	}
}

// ProcessBatch publishes one batch and returns how many entries were marked
// processed. Publishing stops at the first failure so per-aggregate order holds;
// the failed entry is retried on the next poll.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	entries, err := w.store.FetchUnprocessed(ctx, w.batchSize)
	if err != nil {
		if w.metrics != nil {
			w.metrics.IncPublishFailures()
		}
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if w.metrics != nil {
		w.metrics.ObserveBatchSize(len(entries))
	}

	processed := 0
	for _, entry := range entries {
		if err := w.publish(ctx, entry); err != nil {
			w.logError(ctx, "failed to publish outbox entry",
				"id", entry.ID,
				"event_type", entry.EventType,
				"error", err,
			)
			if w.metrics != nil {
				w.metrics.IncPublishFailures()
			}
			break
		}
		if err := w.store.MarkProcessed(ctx, entry.ID, w.now()); err != nil {
			// Published but not marked: consumers dedupe on entry_id.
			w.logError(ctx, "failed to mark outbox entry processed", "id", entry.ID, "error", err)
			break
		}
		processed++
		if w.metrics != nil {
			w.metrics.IncPublished()
		}
	}
	return processed, nil
}

func (w *Worker) publish(ctx context.Context, entry *outbox.Entry) error {
	start := time.Now()
	err := w.publisher.Produce(ctx, &producer.Message{
		Topic: w.topic,
		Key:   []byte(entry.AggregateType + ":" + entry.AggregateID),
		Value: entry.Payload,
		Headers: map[string]string{
			"entry_id":       entry.ID.String(),
			"aggregate_type": entry.AggregateType,
			"aggregate_id":   entry.AggregateID,
			"event_type":     entry.EventType,
		},
	})
	if err == nil && w.metrics != nil {
		w.metrics.ObservePublishDuration(time.Since(start).Seconds())
	}
	return err
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), w.drainTimeout)
	defer cancel()

	if w.logger != nil {
		w.logger.Info("draining outbox worker")
	}
	for ctx.Err() == nil {
		n, err := w.ProcessBatch(ctx)
		if err != nil {
			w.logError(ctx, "failed to fetch entries during drain", "error", err)
			return
		}
		if n == 0 {
			return
		}
	}
}

func (w *Worker) refreshPending(ctx context.Context) {
	if w.metrics == nil {
		return
	}
	count, oldest, err := w.store.CountPending(ctx)
	if err != nil {
		return
	}
	age := 0.0
	if count > 0 && !oldest.IsZero() {
		age = w.now().Sub(oldest).Seconds()
	}
	w.metrics.SetPending(count, age)
}

func (w *Worker) prune(ctx context.Context) {
	if w.retention <= 0 {
		return
	}
	if _, err := w.store.DeleteProcessedBefore(ctx, w.now().Add(-w.retention)); err != nil {
		w.logError(ctx, "failed to prune processed outbox entries", "error", err)
	}
}

func (w *Worker) logError(ctx context.Context, msg string, args ...any) {
	if w.logger != nil {
		w.logger.ErrorContext(ctx, msg, args...)
	}
}
