// Package events keeps a bounded in-process feed of committed ledger events
// for UI refresh polling.
package events

import (
	"context"
	"sync"

	"shebuilds/internal/ledger/models"
)

const DefaultCapacity = 1024

// Record is an event with its feed sequence number. Seq starts at 1.
type Record struct {
	Seq   uint64       `json:"seq"`
	Event models.Event `json:"event"`
}

// Recorder is a ring buffer of the most recent events.
type Recorder struct {
	mu      sync.RWMutex
	buf     []Record
	next    int
	full    bool
	lastSeq uint64
}

func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Recorder{buf: make([]Record, capacity)}
}

// Publish appends events in order. It satisfies the ledger's event sink.
func (r *Recorder) Publish(_ context.Context, evts []models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range evts {
		r.lastSeq++
		r.buf[r.next] = Record{Seq: r.lastSeq, Event: e}
		r.next = (r.next + 1) % len(r.buf)
		if r.next == 0 {
			r.full = true
		}
	}
}

// List returns up to limit retained records with Seq > after, oldest first.
// A non-positive limit returns everything retained.
func (r *Recorder) List(after uint64, limit int) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Record{}
	for _, rec := range r.ordered() {
		if rec.Seq <= after {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// LastSeq is the sequence number of the most recent event, 0 if none.
func (r *Recorder) LastSeq() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSeq
}

func (r *Recorder) ordered() []Record {
	if !r.full {
		return r.buf[:r.next]
	}
	out := make([]Record, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
