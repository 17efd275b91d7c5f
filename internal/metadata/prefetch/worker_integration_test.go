//go:build integration

package prefetch

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	ledgermodels "shebuilds/internal/ledger/models"
	"shebuilds/internal/metadata/models"
	"shebuilds/pkg/testutil/containers"
)

type channelResolver struct {
	seen chan ledgermodels.CredentialID
}

func (r *channelResolver) Resolve(_ context.Context, id ledgermodels.CredentialID) (*models.Resolved, error) {
	r.seen <- id
	return &models.Resolved{}, nil
}

func TestWorkerProcessesEnqueuedPrefetch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)
	require.NoError(t, rc.FlushAll(context.Background()))

	opts, err := redis.ParseURL(rc.URL)
	require.NoError(t, err)
	redisOpts := asynq.RedisClientOpt{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}

	resolver := &channelResolver{seen: make(chan ledgermodels.CredentialID, 1)}
	logger := slog.New(slog.DiscardHandler)
	worker, err := NewWorker(WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Processor: NewProcessor(resolver, logger, nil),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	client := asynq.NewClient(redisOpts)
	defer client.Close() //nolint:errcheck // test cleanup

	NewEnqueuer(client, logger, nil).Publish(ctx, []ledgermodels.Event{issued(11)})

	select {
	case id := <-resolver.seen:
		require.Equal(t, ledgermodels.CredentialID(11), id)
	case <-time.After(15 * time.Second):
		t.Fatal("prefetch task was not processed")
	}

	cancel()
	require.NoError(t, <-done)
}
