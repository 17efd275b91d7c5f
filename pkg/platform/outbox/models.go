// Package outbox implements the transactional outbox: events are written in the
// same transaction as the state change that produced them and published later
// by a worker.
package outbox

import (
	"time"

	"github.com/google/uuid"
)

// Entry is a pending or processed outbox record.
type Entry struct {
	ID            uuid.UUID
	AggregateType string // "credential", "role"
	AggregateID   string
	EventType     string
	Payload       []byte // JSON
	CreatedAt     time.Time
	ProcessedAt   *time.Time // nil while pending
}

func (e *Entry) IsPending() bool {
	return e.ProcessedAt == nil
}

// NewEntry builds an entry with a fresh UUID.
func NewEntry(aggregateType, aggregateID, eventType string, payload []byte, createdAt time.Time) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     createdAt,
	}
}
