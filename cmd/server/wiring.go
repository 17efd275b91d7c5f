package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jwttoken "shebuilds/internal/jwt_token"
	"shebuilds/internal/ledger/events"
	ledgerhandler "shebuilds/internal/ledger/handler"
	ledgermetrics "shebuilds/internal/ledger/metrics"
	ledgerservice "shebuilds/internal/ledger/service"
	"shebuilds/internal/ledger/store"
	"shebuilds/internal/ledger/store/credential"
	"shebuilds/internal/ledger/store/role"
	metadatahandler "shebuilds/internal/metadata/handler"
	metadatametrics "shebuilds/internal/metadata/metrics"
	"shebuilds/internal/metadata/prefetch"
	metadataservice "shebuilds/internal/metadata/service"
	metadatastore "shebuilds/internal/metadata/store"
	"shebuilds/internal/platform/config"
	"shebuilds/internal/platform/database"
	"shebuilds/internal/platform/health"
	"shebuilds/internal/platform/kafka/producer"
	"shebuilds/internal/platform/rabbitmq"
	"shebuilds/internal/platform/redis"
	"shebuilds/internal/platform/tracer"
	httptransport "shebuilds/internal/transport/http"
	"shebuilds/migrations"
	"shebuilds/pkg/platform/circuit"
	"shebuilds/pkg/platform/middleware/request"
	"shebuilds/pkg/platform/outbox"
	outboxmetrics "shebuilds/pkg/platform/outbox/metrics"
	outboxmemory "shebuilds/pkg/platform/outbox/store/memory"
	outboxpostgres "shebuilds/pkg/platform/outbox/store/postgres"
	outboxworker "shebuilds/pkg/platform/outbox/worker"
)

const (
	storageMemory   = "memory"
	storagePostgres = "postgres"
)

// publisher is what the outbox worker needs from the Kafka producer, the
// RabbitMQ publisher or the no-op.
type publisher interface {
	outboxworker.Publisher
	Healthy(ctx context.Context) error
	Close() error
}

// application holds everything run needs plus what must be closed on exit.
type application struct {
	router   http.Handler
	storage  string
	outbox   *outboxworker.Worker
	prefetch *prefetch.Worker
	redis    *redis.Client
	closers  []func() error
	log      *slog.Logger
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", "error", err)
		}
	}
}

func build(ctx context.Context, cfg *config.Server, log *slog.Logger) (_ *application, err error) {
	a := &application{log: log}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	trc := tracer.NewOTel()

	runner, outboxStore, err := a.buildLedgerStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	hc := health.New(cfg.Environment, a.storage)
	if a.storage == storagePostgres {
		hc.RegisterCheck(storagePostgres, func(ctx context.Context) error {
			return runner.View(ctx, func(context.Context, store.Stores) error { return nil })
		})
	}

	feed := events.NewRecorder(cfg.Ledger.EventBuffer)
	ledgerOpts := []ledgerservice.Option{
		ledgerservice.WithLogger(log),
		ledgerservice.WithMetrics(ledgermetrics.New()),
		ledgerservice.WithTracer(trc),
		ledgerservice.WithEventSink(feed),
	}

	mm := metadatametrics.New()
	var cache metadatastore.Cache = metadatastore.NewInMemoryCache(cfg.Metadata.CacheTTL)

	a.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if a.redis != nil {
		a.closers = append(a.closers, a.redis.Close)
		hc.RegisterCheck("redis", a.redis.Health)
		cache = metadatastore.NewRedisCache(a.redis.Client, cfg.Metadata.CacheTTL, mm)
		asynqClient := asynq.NewClient(a.redis.AsynqOpts())
		a.closers = append(a.closers, asynqClient.Close)
		ledgerOpts = append(ledgerOpts, ledgerservice.WithEventSink(prefetch.NewEnqueuer(asynqClient, log, mm)))
	}

	ledger := ledgerservice.New(runner, ledgerOpts...)
	query := ledgerservice.NewQuery(runner)

	admin, ok, err := cfg.Ledger.Admin()
	if err != nil {
		return nil, err
	}
	if ok {
		if err := ledger.Bootstrap(ctx, admin); err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		log.Info("ledger bootstrapped", "admin", admin.String())
	} else {
		log.Warn("no bootstrap admin configured, issuer roles cannot be granted")
	}

	metadata := metadataservice.New(query, cache, metadataservice.Config{
		Gateway:           cfg.Metadata.Gateway,
		FetchTimeout:      cfg.Metadata.FetchTimeout,
		MaxBytes:          cfg.Metadata.MaxBytes,
		AllowPrivateHosts: cfg.Metadata.AllowPrivateHosts,
	},
		metadataservice.WithLogger(log),
		metadataservice.WithMetrics(mm),
		metadataservice.WithTracer(trc),
		metadataservice.WithBreakerOptions(
			circuit.WithFailureThreshold(cfg.Metadata.BreakerThreshold),
			circuit.WithCooldown(cfg.Metadata.BreakerCooldown),
		),
	)

	if a.redis != nil {
		a.prefetch, err = prefetch.NewWorker(prefetch.WorkerConfig{
			RedisOpts:   a.redis.AsynqOpts(),
			Concurrency: cfg.Metadata.PrefetchWorkers,
			Logger:      log,
			Processor:   prefetch.NewProcessor(metadata, log, mm),
		})
		if err != nil {
			return nil, err
		}
	}

	pub, broker, err := newPublisher(cfg, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pub.Close)
	if broker != "" {
		hc.RegisterCheck(broker, pub.Healthy)
	}
	a.outbox = outboxworker.New(outboxStore, pub,
		outboxworker.WithTopic(cfg.Kafka.Topic),
		outboxworker.WithBatchSize(cfg.Outbox.BatchSize),
		outboxworker.WithPollInterval(cfg.Outbox.PollInterval),
		outboxworker.WithRetention(cfg.Outbox.Retention),
		outboxworker.WithMetrics(outboxmetrics.New()),
		outboxworker.WithLogger(log),
	)

	jwtService := jwttoken.NewJWTService(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.TokenTTL)
	jwtService.SetEnv(cfg.Environment)

	a.router = httptransport.NewRouter(httptransport.Config{
		Logger:             log,
		Production:         cfg.IsProduction(),
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimit.RequestsPerMinute,
		Validator:          jwttoken.NewAdapter(jwtService),
		RequestMetrics:     request.NewMetrics(),
		Ledger:             ledgerhandler.New(ledger, query, feed, log),
		Metadata:           metadatahandler.New(metadata, log),
		Health:             hc,
		Metrics:            promhttp.Handler(),
	})
	return a, nil
}

// buildLedgerStorage selects Postgres when a database URL is configured and
// the in-memory stores otherwise.
func (a *application) buildLedgerStorage(ctx context.Context, cfg *config.Server) (ledgerservice.TxRunner, outbox.Store, error) {
	pool, err := database.New(ctx, database.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	if pool == nil {
		a.storage = storageMemory
		ob := outboxmemory.New()
		return store.NewMemoryRunner(role.NewInMemoryStore(), credential.NewInMemoryStore(), ob), ob, nil
	}

	a.storage = storagePostgres
	a.closers = append(a.closers, pool.Close)
	if cfg.Database.AutoMigrate {
		applied, err := database.Migrate(ctx, pool.DB(), migrations.FS)
		if err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		if len(applied) > 0 {
			a.log.Info("applied migrations", "versions", applied)
		}
	}
	return store.NewPostgresRunner(pool.DB(), store.WithTxTimeout(cfg.Database.TxTimeout)), outboxpostgres.New(pool.DB()), nil
}

func newPublisher(cfg *config.Server, log *slog.Logger) (publisher, string, error) {
	switch {
	case cfg.Kafka.Brokers != "":
		p, err := producer.New(producer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Acks:            cfg.Kafka.Acks,
			Retries:         cfg.Kafka.Retries,
			DeliveryTimeout: cfg.Kafka.DeliveryTimeout,
		}, log)
		if err != nil {
			return nil, "", fmt.Errorf("kafka producer: %w", err)
		}
		return p, "kafka", nil
	case cfg.AMQP.URL != "":
		p, err := rabbitmq.New(rabbitmq.Config{URL: cfg.AMQP.URL, Exchange: cfg.AMQP.Exchange}, log)
		if err != nil {
			return nil, "", fmt.Errorf("rabbitmq publisher: %w", err)
		}
		return p, "rabbitmq", nil
	default:
		log.Info("no event broker configured, outbox entries are marked processed without publishing")
		return producer.NewNoop(log), "", nil
	}
}
