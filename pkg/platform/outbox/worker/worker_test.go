package worker_test

//go:generate mockgen -source=worker.go -destination=mocks/mocks.go -package=mocks Publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"shebuilds/internal/platform/kafka/producer"
	"shebuilds/pkg/platform/outbox"
	"shebuilds/pkg/platform/outbox/metrics"
	"shebuilds/pkg/platform/outbox/store/memory"
	"shebuilds/pkg/platform/outbox/worker"
	"shebuilds/pkg/platform/outbox/worker/mocks"
)

type WorkerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	publisher *mocks.MockPublisher
	store     *memory.Store
	metrics   *metrics.Metrics
	worker    *worker.Worker
	ctx       context.Context
	now       time.Time
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.store = memory.New()
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.worker = worker.New(s.store, s.publisher,
		worker.WithTopic("test.events"),
		worker.WithBatchSize(10),
		worker.WithMetrics(s.metrics),
		worker.WithClock(func() time.Time { return s.now }),
	)
}

func (s *WorkerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *WorkerSuite) seed(eventTypes ...string) []*outbox.Entry {
	var out []*outbox.Entry
	for _, et := range eventTypes {
		e := outbox.NewEntry("credential", "7", et, []byte(`{"token_id":7}`), s.now)
		s.Require().NoError(s.store.Append(s.ctx, e))
		out = append(out, e)
	}
	return out
}

func (s *WorkerSuite) TestPublishesInOrderAndMarksProcessed() {
	entries := s.seed("CredentialIssued", "CredentialRevoked")

	gomock.InOrder(
		s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, msg *producer.Message) error {
				s.Equal("test.events", msg.Topic)
				s.Equal("credential:7", string(msg.Key))
				s.Equal("CredentialIssued", msg.Headers["event_type"])
				s.Equal(entries[0].ID.String(), msg.Headers["entry_id"])
				return nil
			}),
		s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, msg *producer.Message) error {
				s.Equal("CredentialRevoked", msg.Headers["event_type"])
				return nil
			}),
	)

	n, err := s.worker.ProcessBatch(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	pending, _, err := s.store.CountPending(s.ctx)
	s.Require().NoError(err)
	s.Zero(pending)
	s.Equal(2.0, testutil.ToFloat64(s.metrics.PublishedTotal))
}

func (s *WorkerSuite) TestStopsAtFirstFailureToPreserveOrder() {
	s.seed("CredentialIssued", "CredentialRevoked")

	s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(errors.New("broker down")).Times(1)

	n, err := s.worker.ProcessBatch(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	pending, _, err := s.store.CountPending(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(2, pending)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.PublishFailures))
}

func (s *WorkerSuite) TestRunDrainsOnShutdown() {
	s.seed("CredentialIssued")
	s.publisher.EXPECT().Produce(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	s.Require().NoError(s.worker.Run(ctx))

	pending, _, err := s.store.CountPending(s.ctx)
	s.Require().NoError(err)
	s.Zero(pending)
}
