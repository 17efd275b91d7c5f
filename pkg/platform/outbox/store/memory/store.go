package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"shebuilds/pkg/platform/outbox"
	"shebuilds/pkg/platform/sentinel"
)

// Store keeps entries in insertion order.
type Store struct {
	mu      sync.Mutex
	entries []*outbox.Entry
	index   map[uuid.UUID]*outbox.Entry
}

func New() *Store {
	return &Store{index: make(map[uuid.UUID]*outbox.Entry)}
}

func (s *Store) Append(_ context.Context, entry *outbox.Entry) error {
	if entry == nil {
		return sentinel.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.index[entry.ID]; dup {
		return sentinel.ErrConflict
	}
	cp := *entry
	s.entries = append(s.entries, &cp)
	s.index[cp.ID] = &cp
	return nil
}

// AppendAll adds every entry or none of them.
func (s *Store) AppendAll(_ context.Context, entries []*outbox.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		if e == nil {
			return sentinel.ErrInvalidInput
		}
		if _, dup := s.index[e.ID]; dup {
			return sentinel.ErrConflict
		}
		if _, dup := seen[e.ID]; dup {
			return sentinel.ErrConflict
		}
		seen[e.ID] = struct{}{}
	}
	for _, e := range entries {
		cp := *e
		s.entries = append(s.entries, &cp)
		s.index[cp.ID] = &cp
	}
	return nil
}

func (s *Store) FetchUnprocessed(_ context.Context, limit int) ([]*outbox.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*outbox.Entry
	for _, e := range s.entries {
		if len(out) >= limit {
			break
		}
		if e.IsPending() {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) MarkProcessed(_ context.Context, id uuid.UUID, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.index[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	t := processedAt
	e.ProcessedAt = &t
	return nil
}

func (s *Store) CountPending(context.Context) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	var oldest time.Time
	for _, e := range s.entries {
		if !e.IsPending() {
			continue
		}
		if n == 0 {
			oldest = e.CreatedAt
		}
		n++
	}
	return n, oldest, nil
}

func (s *Store) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	var removed int64
	for _, e := range s.entries {
		if e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(s.index, e.ID)
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed, nil
}
