package prefetch

//go:generate mockgen -source=processor.go -destination=mocks/mocks.go -package=mocks Resolver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	ledgermodels "shebuilds/internal/ledger/models"
	"shebuilds/internal/metadata/metrics"
	"shebuilds/internal/metadata/models"
	"shebuilds/internal/metadata/prefetch/mocks"
	"shebuilds/pkg/domain"
	dErrors "shebuilds/pkg/domain-errors"
)

var (
	issuer    = domain.MustPrincipal("0x1000000000000000000000000000000000000001")
	recipient = domain.MustPrincipal("0x2000000000000000000000000000000000000002")
)

type enqueued struct {
	task *asynq.Task
	opts []asynq.Option
}

type recordingClient struct {
	mu    sync.Mutex
	calls []enqueued
	err   error
}

func (c *recordingClient) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, enqueued{task: task, opts: opts})
	if c.err != nil {
		return nil, c.err
	}
	return &asynq.TaskInfo{Type: task.Type(), Queue: QueueMetadata}, nil
}

func issued(id ledgermodels.CredentialID) ledgermodels.Event {
	return ledgermodels.CredentialIssued(&ledgermodels.Credential{
		ID:            id,
		Owner:         recipient,
		SkillCategory: "React",
		Proficiency:   5,
		MetadataURI:   "ipfs://react",
		Issuer:        issuer,
		IssuedAt:      time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
	})
}

func optionValue(opts []asynq.Option, typ asynq.OptionType) any {
	for _, o := range opts {
		if o.Type() == typ {
			return o.Value()
		}
	}
	return nil
}

type EnqueuerSuite struct {
	suite.Suite
	client   *recordingClient
	metrics  *metrics.Metrics
	enqueuer *Enqueuer
}

func TestEnqueuerSuite(t *testing.T) {
	suite.Run(t, new(EnqueuerSuite))
}

func (s *EnqueuerSuite) SetupTest() {
	s.client = &recordingClient{}
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
	s.enqueuer = NewEnqueuer(s.client, slog.New(slog.DiscardHandler), s.metrics)
}

func (s *EnqueuerSuite) TestEnqueuesOnlyIssuedCredentials() {
	at := time.Now()
	s.enqueuer.Publish(context.Background(), []ledgermodels.Event{
		issued(0),
		ledgermodels.CredentialRevoked(0, "fraud", at),
		ledgermodels.RoleGranted(ledgermodels.RoleIssuer, issuer, issuer, at),
		issued(1),
		ledgermodels.SoulboundTransferAttempt(1, recipient, issuer, at),
	})

	s.Require().Len(s.client.calls, 2)
	for i, call := range s.client.calls {
		s.Equal(TaskTypePrefetch, call.task.Type())
		var p Payload
		s.Require().NoError(json.Unmarshal(call.task.Payload(), &p))
		s.Equal(ledgermodels.CredentialID(i), p.TokenID)
		s.Equal(QueueMetadata, optionValue(call.opts, asynq.QueueOpt))
		s.Equal(taskID(p.TokenID), optionValue(call.opts, asynq.TaskIDOpt))
	}
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.PrefetchTasks.WithLabelValues("enqueue", "ok")))
}

func (s *EnqueuerSuite) TestDuplicateIsNotAnError() {
	s.client.err = asynq.ErrTaskIDConflict
	s.enqueuer.Publish(context.Background(), []ledgermodels.Event{issued(3)})
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.PrefetchTasks.WithLabelValues("enqueue", "duplicate")))
}

func (s *EnqueuerSuite) TestEnqueueFailureIsSwallowed() {
	s.client.err = errors.New("dial tcp: connection refused")
	s.NotPanics(func() {
		s.enqueuer.Publish(context.Background(), []ledgermodels.Event{issued(4), issued(5)})
	})
	s.Len(s.client.calls, 2)
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.PrefetchTasks.WithLabelValues("enqueue", "error")))
}

type ProcessorSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	resolver  *mocks.MockResolver
	processor *Processor
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorSuite))
}

func (s *ProcessorSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.resolver = mocks.NewMockResolver(s.ctrl)
	s.processor = NewProcessor(s.resolver, slog.New(slog.DiscardHandler), nil)
}

func (s *ProcessorSuite) task(id ledgermodels.CredentialID) *asynq.Task {
	task, err := NewTask(id)
	s.Require().NoError(err)
	return task
}

func (s *ProcessorSuite) TestResolvesCredential() {
	s.resolver.EXPECT().Resolve(gomock.Any(), ledgermodels.CredentialID(7)).
		Return(&models.Resolved{URI: "ipfs://react", Document: models.Document{Name: "React"}}, nil)

	s.NoError(s.processor.Handle(context.Background(), s.task(7)))
}

func (s *ProcessorSuite) TestMalformedPayloadIsNotRetried() {
	err := s.processor.Handle(context.Background(), asynq.NewTask(TaskTypePrefetch, []byte("{")))
	s.ErrorIs(err, asynq.SkipRetry)
}

func (s *ProcessorSuite) TestMissingCredentialIsNotRetried() {
	s.resolver.EXPECT().Resolve(gomock.Any(), ledgermodels.CredentialID(8)).
		Return(nil, dErrors.New(dErrors.CodeTokenNotFound, "credential 8 does not exist"))

	err := s.processor.Handle(context.Background(), s.task(8))
	s.ErrorIs(err, asynq.SkipRetry)
}

func (s *ProcessorSuite) TestUnavailableIsRetried() {
	s.resolver.EXPECT().Resolve(gomock.Any(), ledgermodels.CredentialID(9)).
		Return(nil, dErrors.New(dErrors.CodeUnavailable, "metadata document unavailable"))

	err := s.processor.Handle(context.Background(), s.task(9))
	s.Require().Error(err)
	s.NotErrorIs(err, asynq.SkipRetry)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *ProcessorSuite) TestNewWorkerRequiresDependencies() {
	_, err := NewWorker(WorkerConfig{Processor: s.processor})
	s.Error(err)
	_, err = NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	s.Error(err)
}
