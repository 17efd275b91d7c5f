// Package config loads process configuration from SHEBUILDS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"shebuilds/pkg/domain"
)

const (
	envPrefix = "SHEBUILDS"

	// DevSigningKey is used when SHEBUILDS_AUTH_SIGNING_KEY is unset. cmd/tokengen
	// signs with the same key by default.
	DevSigningKey = "dev-secret-key-change-in-production"

	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Server captures process configuration.
type Server struct {
	Environment     string        `envconfig:"ENV" default:"development"`
	Addr            string        `envconfig:"ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`

	Ledger    LedgerConfig    `envconfig:"LEDGER"`
	Auth      AuthConfig      `envconfig:"AUTH"`
	Database  DatabaseConfig  `envconfig:"DATABASE"`
	Redis     RedisConfig     `envconfig:"REDIS"`
	Kafka     KafkaConfig     `envconfig:"KAFKA"`
	AMQP      AMQPConfig      `envconfig:"AMQP"`
	Metadata  MetadataConfig  `envconfig:"METADATA"`
	RateLimit RateLimitConfig `envconfig:"RATE_LIMIT"`
	Outbox    OutboxConfig    `envconfig:"OUTBOX"`
}

// LedgerConfig holds the bootstrap admin. An empty address skips bootstrap.
type LedgerConfig struct {
	BootstrapAdmin string `envconfig:"BOOTSTRAP_ADMIN"`
	EventBuffer    int    `envconfig:"EVENT_BUFFER" default:"1024"`
}

// Admin parses BootstrapAdmin; ok is false when no admin is configured.
func (c LedgerConfig) Admin() (p domain.Principal, ok bool, err error) {
	if c.BootstrapAdmin == "" {
		return domain.ZeroPrincipal, false, nil
	}
	p, err = domain.ParsePrincipal(c.BootstrapAdmin)
	if err != nil {
		return domain.ZeroPrincipal, false, err
	}
	return p, true, nil
}

type AuthConfig struct {
	SigningKey string        `envconfig:"SIGNING_KEY" default:"dev-secret-key-change-in-production"`
	Issuer     string        `envconfig:"ISSUER" default:"http://localhost:8080"`
	Audience   string        `envconfig:"AUDIENCE" default:"shebuilds-ledger"`
	TokenTTL   time.Duration `envconfig:"TOKEN_TTL" default:"15m"`
}

// DatabaseConfig selects Postgres persistence. An empty URL keeps the ledger in memory.
type DatabaseConfig struct {
	URL             string        `envconfig:"URL"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"5m"`
	AutoMigrate     bool          `envconfig:"AUTO_MIGRATE" default:"true"`
	TxTimeout       time.Duration `envconfig:"TX_TIMEOUT" default:"5s"`
}

// RedisConfig enables the Redis metadata cache and prefetch jobs.
type RedisConfig struct {
	URL          string        `envconfig:"URL"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

// KafkaConfig enables outbox publication. An empty broker list uses a no-op publisher.
type KafkaConfig struct {
	Brokers         string        `envconfig:"BROKERS"`
	Acks            string        `envconfig:"ACKS" default:"all"`
	Retries         int           `envconfig:"RETRIES" default:"3"`
	DeliveryTimeout time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"30s"`
	Topic           string        `envconfig:"TOPIC" default:"shebuilds.credentials.events"`
}

// AMQPConfig publishes the outbox to RabbitMQ when Kafka is not configured.
type AMQPConfig struct {
	URL      string `envconfig:"URL"`
	Exchange string `envconfig:"EXCHANGE" default:"shebuilds.events"`
}

type MetadataConfig struct {
	Gateway          string        `envconfig:"IPFS_GATEWAY" default:"https://ipfs.io/ipfs/"`
	FetchTimeout     time.Duration `envconfig:"FETCH_TIMEOUT" default:"5s"`
	CacheTTL         time.Duration `envconfig:"CACHE_TTL" default:"10m"`
	MaxBytes         int64         `envconfig:"MAX_BYTES" default:"262144"`
	BreakerThreshold int           `envconfig:"BREAKER_THRESHOLD" default:"5"`
	BreakerCooldown  time.Duration `envconfig:"BREAKER_COOLDOWN" default:"30s"`
	PrefetchWorkers  int           `envconfig:"PREFETCH_WORKERS" default:"4"`

	// AllowPrivateHosts lets http(s) metadata URIs reach loopback, private
	// and link-local addresses. Development only.
	AllowPrivateHosts bool `envconfig:"ALLOW_PRIVATE_HOSTS" default:"false"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `envconfig:"REQUESTS_PER_MINUTE" default:"60"`
}

type OutboxConfig struct {
	BatchSize    int           `envconfig:"BATCH_SIZE" default:"100"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"500ms"`
	Retention    time.Duration `envconfig:"RETENTION" default:"168h"`
}

// FromEnv builds the Server config from the environment and validates it.
func FromEnv() (*Server, error) {
	var cfg Server
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Server) Validate() error {
	if _, _, err := c.Ledger.Admin(); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if c.IsProduction() && c.Auth.SigningKey == DevSigningKey {
		return errors.New("auth signing key must be set in production")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth token ttl must be positive")
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return errors.New("rate limit must be positive")
	}
	if c.Database.TxTimeout <= 0 {
		return errors.New("database tx timeout must be positive")
	}
	if c.IsProduction() && c.Metadata.AllowPrivateHosts {
		return errors.New("metadata private hosts cannot be allowed in production")
	}
	return nil
}

// IsProduction returns true when the process runs in production.
func (c *Server) IsProduction() bool {
	return c != nil && c.Environment == EnvProduction
}
