package credential_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shebuilds/internal/ledger/models"
	"shebuilds/internal/ledger/store/credential"
	"shebuilds/pkg/domain"
	"shebuilds/pkg/platform/sentinel"
)

var (
	alice  = domain.MustPrincipal("0x00000000000000000000000000000000000000a1")
	bob    = domain.MustPrincipal("0x00000000000000000000000000000000000000b0")
	issuer = domain.MustPrincipal("0x00000000000000000000000000000000000000c5")
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *credential.InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = credential.NewInMemoryStore()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newCredential(owner domain.Principal, category string, p models.Proficiency) *models.Credential {
	return &models.Credential{
		Owner:         owner,
		SkillCategory: category,
		Proficiency:   p,
		MetadataURI:   "ipfs://" + category,
		Issuer:        issuer,
		IssuedAt:      s.now,
	}
}

func (s *InMemoryStoreSuite) TestAllocate() {
	s.Run("assigns dense ids starting at zero", func() {
		for want := range 3 {
			id, err := s.store.Allocate(s.ctx, s.newCredential(alice, "Go", 3))
			s.Require().NoError(err)
			s.Equal(models.CredentialID(want), id)
		}
		n, err := s.store.Count(s.ctx)
		s.Require().NoError(err)
		s.Equal(uint64(3), n)
	})

	s.Run("rejects out of range proficiency without allocating", func() {
		before, _ := s.store.Count(s.ctx)
		for _, p := range []models.Proficiency{0, 6} {
			_, err := s.store.Allocate(s.ctx, s.newCredential(alice, "Go", p))
			s.ErrorIs(err, credential.ErrInvalidProficiency)
			s.ErrorIs(err, sentinel.ErrInvalidInput)
		}
		after, _ := s.store.Count(s.ctx)
		s.Equal(before, after)
	})

	s.Run("ignores caller supplied revocation state", func() {
		c := s.newCredential(bob, "Rust", 2)
		c.Revoked = true
		c.RevocationReason = "bogus"
		id, err := s.store.Allocate(s.ctx, c)
		s.Require().NoError(err)

		got, err := s.store.FindByID(s.ctx, id)
		s.Require().NoError(err)
		s.False(got.Revoked)
		s.Empty(got.RevocationReason)
	})
}

func (s *InMemoryStoreSuite) TestFindByID() {
	id, err := s.store.Allocate(s.ctx, s.newCredential(alice, "React", 5))
	s.Require().NoError(err)

	s.Run("returns a copy", func() {
		got, err := s.store.FindByID(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(alice, got.Owner)
		s.Equal("React", got.SkillCategory)
		s.Equal(models.Proficiency(5), got.Proficiency)
		s.Equal(issuer, got.Issuer)
		s.Equal(s.now, got.IssuedAt)

		got.Owner = bob
		again, err := s.store.FindByID(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(alice, again.Owner)
	})

	s.Run("unassigned id", func() {
		_, err := s.store.FindByID(s.ctx, id+1)
		s.ErrorIs(err, credential.ErrNotFound)
		_, err = s.store.OwnerOf(s.ctx, id+1)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestMarkRevoked() {
	id, err := s.store.Allocate(s.ctx, s.newCredential(alice, "React", 5))
	s.Require().NoError(err)

	s.Require().NoError(s.store.MarkRevoked(s.ctx, id, "Fraud detected", s.now))
	got, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.True(got.Revoked)
	s.Equal(models.StateRevoked, got.State())
	s.Equal("Fraud detected", got.RevocationReason)
	s.Require().NotNil(got.RevokedAt)
	s.Equal(s.now, *got.RevokedAt)

	err = s.store.MarkRevoked(s.ctx, id, "again", s.now)
	s.ErrorIs(err, credential.ErrAlreadyRevoked)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	err = s.store.MarkRevoked(s.ctx, 99, "missing", s.now)
	s.ErrorIs(err, credential.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestListIDsByOwner() {
	owners := []domain.Principal{alice, bob, alice, bob, bob, alice}
	for _, o := range owners {
		_, err := s.store.Allocate(s.ctx, s.newCredential(o, "Go", 1))
		s.Require().NoError(err)
	}

	ids, err := s.store.ListIDsByOwner(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal([]models.CredentialID{0, 2, 5}, ids)

	ids, err = s.store.ListIDsByOwner(s.ctx, issuer)
	s.Require().NoError(err)
	s.NotNil(ids)
	s.Empty(ids)
}

func (s *InMemoryStoreSuite) TestTruncateAndUnrevoke() {
	for _, o := range []domain.Principal{alice, bob, alice} {
		_, err := s.store.Allocate(s.ctx, s.newCredential(o, "Go", 1))
		s.Require().NoError(err)
	}
	s.Require().NoError(s.store.MarkRevoked(s.ctx, 0, "oops", s.now))

	s.store.Truncate(1)
	s.store.Unrevoke(0)

	n, _ := s.store.Count(s.ctx)
	s.Equal(uint64(1), n)
	ids, _ := s.store.ListIDsByOwner(s.ctx, alice)
	s.Equal([]models.CredentialID{0}, ids)
	ids, _ = s.store.ListIDsByOwner(s.ctx, bob)
	s.Empty(ids)

	got, err := s.store.FindByID(s.ctx, 0)
	s.Require().NoError(err)
	s.False(got.Revoked)
	s.Nil(got.RevokedAt)

	id, err := s.store.Allocate(s.ctx, s.newCredential(bob, "Go", 1))
	s.Require().NoError(err)
	s.Equal(models.CredentialID(1), id)
}

func (s *InMemoryStoreSuite) TestConcurrentAllocate() {
	const goroutines = 50
	var wg sync.WaitGroup
	ids := make(chan models.CredentialID, goroutines)
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.store.Allocate(s.ctx, s.newCredential(alice, "Go", 2))
			s.NoError(err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[models.CredentialID]bool)
	for id := range ids {
		s.False(seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	s.Len(seen, goroutines)
	owned, _ := s.store.ListIDsByOwner(s.ctx, alice)
	s.Len(owned, goroutines)
}
