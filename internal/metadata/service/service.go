// Package service resolves the off-chain metadata document a credential points to.
// It reads the ledger but never mutates it; fetch failures surface as unavailable.
package service

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	ledgermodels "shebuilds/internal/ledger/models"
	"shebuilds/internal/metadata/metrics"
	"shebuilds/internal/metadata/store"
	"shebuilds/internal/platform/tracer"
	"shebuilds/pkg/platform/circuit"
)

const (
	DefaultGateway      = "https://ipfs.io/ipfs/"
	DefaultFetchTimeout = 5 * time.Second
	DefaultMaxBytes     = 256 << 10
	breakerName         = "metadata_fetch"
)

// CredentialLookup returns the metadata URI recorded for a credential.
type CredentialLookup interface {
	TokenURI(ctx context.Context, id ledgermodels.CredentialID) (string, error)
}

// Config controls how URIs are fetched.
type Config struct {
	Gateway      string
	FetchTimeout time.Duration
	MaxBytes     int64
	// AllowPrivateHosts disables the public-address check of the default
	// client. It has no effect with WithHTTPClient.
	AllowPrivateHosts bool
}

func (c Config) withDefaults() Config {
	if c.Gateway == "" {
		c.Gateway = DefaultGateway
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = DefaultMaxBytes
	}
	return c
}

// Service resolves metadata documents cache-first.
type Service struct {
	lookup  CredentialLookup
	cache   store.Cache
	client  *http.Client
	breaker *circuit.Breaker
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	now     func() time.Time

	breakerOpts []circuit.Option
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

// WithHTTPClient replaces the outbound client. Its Timeout is left as given;
// per-request deadlines come from Config.FetchTimeout.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.client = c
		}
	}
}

// WithBreakerOptions tunes the fetch circuit breaker.
func WithBreakerOptions(opts ...circuit.Option) Option {
	return func(s *Service) {
		s.breakerOpts = append(s.breakerOpts, opts...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(lookup CredentialLookup, cache store.Cache, cfg Config, opts ...Option) *Service {
	svc := &Service{
		lookup: lookup,
		cache:  cache,
		cfg:    cfg.withDefaults(),
		logger: slog.Default(),
		tracer: tracer.NewNoop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.client == nil {
		svc.client = newHTTPClient(svc.cfg.AllowPrivateHosts)
	}
	breakerOpts := append([]circuit.Option{circuit.WithStateChange(svc.onBreakerChange)}, svc.breakerOpts...)
	svc.breaker = circuit.New(breakerName, breakerOpts...)
	return svc
}

// BreakerState reports the fetch breaker state for readiness reporting.
func (s *Service) BreakerState() circuit.State {
	return s.breaker.State()
}

func (s *Service) onBreakerChange(name string, from, to circuit.State) {
	s.metrics.SetBreakerOpen(to != circuit.StateClosed)
	s.logger.Warn("metadata breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
}
