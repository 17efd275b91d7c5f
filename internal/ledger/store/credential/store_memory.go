package credential

import (
	"context"
	"sync"
	"time"

	"shebuilds/internal/ledger/models"
	"shebuilds/pkg/domain"
)

// InMemoryStore keeps credentials in a slice indexed by id.
type InMemoryStore struct {
	mu          sync.RWMutex
	credentials []*models.Credential
	byOwner     map[domain.Principal][]models.CredentialID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byOwner: make(map[domain.Principal][]models.CredentialID)}
}

func (s *InMemoryStore) Allocate(_ context.Context, c *models.Credential) (models.CredentialID, error) {
	if err := validateForAllocate(c); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := models.CredentialID(len(s.credentials))
	rec := *c
	rec.ID = id
	rec.Revoked = false
	rec.RevocationReason = ""
	rec.RevokedAt = nil
	s.credentials = append(s.credentials, &rec)
	s.byOwner[rec.Owner] = append(s.byOwner[rec.Owner], id)
	c.ID = id
	return id, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id models.CredentialID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	if rec.RevokedAt != nil {
		t := *rec.RevokedAt
		cp.RevokedAt = &t
	}
	return &cp, nil
}

func (s *InMemoryStore) OwnerOf(_ context.Context, id models.CredentialID) (domain.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.get(id)
	if !ok {
		return "", ErrNotFound
	}
	return rec.Owner, nil
}

func (s *InMemoryStore) MarkRevoked(_ context.Context, id models.CredentialID, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.get(id)
	if !ok {
		return ErrNotFound
	}
	if rec.Revoked {
		return ErrAlreadyRevoked
	}
	rec.Revoked = true
	rec.RevocationReason = reason
	rec.RevokedAt = &at
	return nil
}

func (s *InMemoryStore) ListIDsByOwner(_ context.Context, owner domain.Principal) ([]models.CredentialID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byOwner[owner]
	out := make([]models.CredentialID, len(ids))
	copy(out, ids)
	return out, nil
}

func (s *InMemoryStore) Count(context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.credentials)), nil
}

// Truncate drops every credential with id >= n. The memory transaction uses
// it to undo allocations of a failed mutation.
func (s *InMemoryStore) Truncate(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for uint64(len(s.credentials)) > n {
		last := s.credentials[len(s.credentials)-1]
		s.credentials = s.credentials[:len(s.credentials)-1]
		ids := s.byOwner[last.Owner]
		if len(ids) > 0 && ids[len(ids)-1] == last.ID {
			ids = ids[:len(ids)-1]
		}
		if len(ids) == 0 {
			delete(s.byOwner, last.Owner)
		} else {
			s.byOwner[last.Owner] = ids
		}
	}
}

// Unrevoke restores the active state. Only the memory transaction's rollback calls it.
func (s *InMemoryStore) Unrevoke(id models.CredentialID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.get(id); ok {
		rec.Revoked = false
		rec.RevocationReason = ""
		rec.RevokedAt = nil
	}
}

func (s *InMemoryStore) get(id models.CredentialID) (*models.Credential, bool) {
	if uint64(id) >= uint64(len(s.credentials)) {
		return nil, false
	}
	return s.credentials[id], true
}
