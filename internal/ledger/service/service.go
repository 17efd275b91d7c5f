package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"shebuilds/internal/ledger/metrics"
	"shebuilds/internal/ledger/models"
	"shebuilds/internal/ledger/store"
	"shebuilds/internal/platform/tracer"
	"shebuilds/pkg/domain"
	dErrors "shebuilds/pkg/domain-errors"
	"shebuilds/pkg/platform/outbox"
	"shebuilds/pkg/requestcontext"
)

// TxRunner serializes ledger mutations and runs commit hooks registered via
// store.Stores.AfterCommit. See store.MemoryRunner and store.PostgresRunner.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error
	View(ctx context.Context, fn func(ctx context.Context, s store.Stores) error) error
}

// EventSink receives events after the mutation that produced them committed.
// Sinks run on the caller's goroutine while the ledger is still serialized,
// so they must not block for long or call back into the Service.
type EventSink interface {
	Publish(ctx context.Context, events []models.Event)
}

// Service is the ledger orchestrator. It holds no state besides its stores.
type Service struct {
	tx      TxRunner
	sinks   []EventSink
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	now     func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithEventSink adds a post-commit event sink. Sinks are called in the order added.
func WithEventSink(sink EventSink) Option {
	return func(s *Service) {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
}

// WithClock overrides the request time used for issuedAt and revokedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(tx TxRunner, opts ...Option) *Service {
	svc := &Service{tx: tx}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.tracer == nil {
		svc.tracer = tracer.NewNoop()
	}
	return svc
}

func (s *Service) timestamp(ctx context.Context) time.Time {
	if s.now != nil {
		return s.now()
	}
	return requestcontext.Now(ctx)
}

// pendingEvents collects events produced inside one transaction.
type pendingEvents struct {
	events []models.Event
}

func (p *pendingEvents) add(e models.Event) {
	p.events = append(p.events, e)
}

// stage writes the collected events to the outbox of the running transaction.
func (p *pendingEvents) stage(ctx context.Context, ob outbox.Store) error {
	for _, e := range p.events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", e.Type, err)
		}
		entry := outbox.NewEntry(e.AggregateType(), e.AggregateID(), string(e.Type), payload, e.OccurredAt)
		if err := ob.Append(ctx, entry); err != nil {
			return fmt.Errorf("stage %s event: %w", e.Type, err)
		}
	}
	return nil
}

// commit stages the collected events and hands them to the sinks once the
// transaction commits, before the next mutation starts. Sinks therefore see
// events in commit order.
func (s *Service) commit(ctx context.Context, st store.Stores, p *pendingEvents) error {
	if err := p.stage(ctx, st.Outbox); err != nil {
		return err
	}
	st.AfterCommit(func() { s.dispatch(ctx, p.events) })
	return nil
}

func (s *Service) dispatch(ctx context.Context, events []models.Event) {
	if len(events) == 0 {
		return
	}
	for _, sink := range s.sinks {
		sink.Publish(ctx, events)
	}
}

// requireRole fails with not_authorized when caller lacks role.
func requireRole(ctx context.Context, st store.Stores, role models.Role, caller domain.Principal) error {
	ok, err := st.Roles.HasRole(ctx, role, caller)
	if err != nil {
		return err
	}
	if !ok {
		return dErrors.New(dErrors.CodeNotAuthorized, fmt.Sprintf("caller %s lacks %s", caller, role))
	}
	return nil
}

// observe records metrics and the outcome log for one operation.
func (s *Service) observe(ctx context.Context, op string, start time.Time, err error, attrs ...any) {
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
	}
	s.metrics.ObserveOperation(op, outcome, time.Since(start).Seconds())

	if s.logger == nil {
		return
	}
	attrs = append(attrs, "operation", op, "outcome", outcome, "request_id", requestcontext.RequestID(ctx))
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "ledger operation", attrs...)
	case dErrors.HasCode(err, dErrors.CodeInternal), dErrors.HasCode(err, dErrors.CodeTimeout):
		s.logger.ErrorContext(ctx, "ledger operation failed", append(attrs, "error", err)...)
	default:
		s.logger.WarnContext(ctx, "ledger operation rejected", append(attrs, "error", err)...)
	}
}
