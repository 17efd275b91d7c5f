package role

import (
	"context"
	"sort"
	"sync"
	"time"

	"shebuilds/internal/ledger/models"
	"shebuilds/pkg/domain"
)

// Membership is one principal's place in a role set.
type Membership struct {
	GrantedAt time.Time
	Seq       uint64
}

// InMemoryStore keeps one membership set per role.
type InMemoryStore struct {
	mu      sync.RWMutex
	members map[models.Role]map[domain.Principal]Membership
	seq     uint64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{members: make(map[models.Role]map[domain.Principal]Membership)}
}

func (s *InMemoryStore) Grant(_ context.Context, role models.Role, p domain.Principal, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.members[role]
	if !ok {
		set = make(map[domain.Principal]Membership)
		s.members[role] = set
	}
	if _, exists := set[p]; exists {
		return false, nil
	}
	s.seq++
	set[p] = Membership{GrantedAt: at, Seq: s.seq}
	return true, nil
}

func (s *InMemoryStore) Revoke(ctx context.Context, role models.Role, p domain.Principal) (bool, error) {
	_, removed := s.Remove(ctx, role, p)
	return removed, nil
}

// Remove revokes p and returns the membership it held.
func (s *InMemoryStore) Remove(_ context.Context, role models.Role, p domain.Principal) (Membership, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.members[role]
	m, exists := set[p]
	if !exists {
		return Membership{}, false
	}
	delete(set, p)
	return m, true
}

// Restore puts back a membership taken by Remove, keeping its grant time and
// its position in Members.
func (s *InMemoryStore) Restore(role models.Role, p domain.Principal, m Membership) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.members[role]
	if !ok {
		set = make(map[domain.Principal]Membership)
		s.members[role] = set
	}
	set[p] = m
}

func (s *InMemoryStore) HasRole(_ context.Context, role models.Role, p domain.Principal) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[role][p]
	return ok, nil
}

func (s *InMemoryStore) Members(_ context.Context, role models.Role) ([]domain.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.members[role]
	out := make([]domain.Principal, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return set[out[i]].Seq < set[out[j]].Seq })
	return out, nil
}
