// Package tracer is a small tracing abstraction over OpenTelemetry used by
// the ledger and metadata services.
//
// Implementations:
//   - NoopTracer: for tests
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks it failed.
	// End must be called exactly once, typically via defer.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanLedgerBootstrap  = "ledger.bootstrap"
	SpanLedgerMint       = "ledger.mint"
	SpanLedgerBatchMint  = "ledger.batch_mint"
	SpanLedgerRevoke     = "ledger.revoke"
	SpanLedgerTransfer   = "ledger.transfer"
	SpanLedgerGrantRole  = "ledger.grant_role"
	SpanLedgerRevokeRole = "ledger.revoke_role"
	SpanMetadataResolve  = "metadata.resolve"
	SpanMetadataFetch    = "metadata.fetch"
)

// Attribute keys.
const (
	AttrCaller        = "ledger.caller"
	AttrTokenID       = "ledger.token_id"
	AttrBatchSize     = "ledger.batch_size"
	AttrRole          = "ledger.role"
	AttrOperation     = "ledger.operation"
	AttrCacheHit      = "cache.hit"
	AttrMetadataURI   = "metadata.uri"
	AttrFetchURL      = "metadata.fetch_url"
	AttrFetchDuration = "metadata.fetch_ms"
)

// Event names.
const (
	EventOutboxStaged = "outbox.staged"
	EventBreakerOpen  = "breaker.open"
)
