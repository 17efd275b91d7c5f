//go:build integration

package credential_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shebuilds/internal/ledger/models"
	"shebuilds/internal/ledger/store/credential"
	"shebuilds/pkg/domain"
	"shebuilds/pkg/platform/sentinel"
	"shebuilds/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *credential.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = credential.NewPostgres(s.postgres.DB)
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateLedger(context.Background()))
}

func (s *PostgresStoreSuite) mint(owner domain.Principal, category string) models.CredentialID {
	id, err := s.store.Allocate(context.Background(), &models.Credential{
		Owner:         owner,
		SkillCategory: category,
		Proficiency:   4,
		MetadataURI:   "ipfs://" + category,
		Issuer:        issuer,
		IssuedAt:      s.now,
	})
	s.Require().NoError(err)
	return id
}

func (s *PostgresStoreSuite) TestAllocateAndFind() {
	ctx := context.Background()
	s.Equal(models.CredentialID(0), s.mint(alice, "React"))
	s.Equal(models.CredentialID(1), s.mint(bob, "Go"))

	got, err := s.store.FindByID(ctx, 0)
	s.Require().NoError(err)
	s.Equal(alice, got.Owner)
	s.Equal("React", got.SkillCategory)
	s.Equal(models.Proficiency(4), got.Proficiency)
	s.Equal(issuer, got.Issuer)
	s.True(s.now.Equal(got.IssuedAt))
	s.False(got.Revoked)
	s.Nil(got.RevokedAt)

	owner, err := s.store.OwnerOf(ctx, 1)
	s.Require().NoError(err)
	s.Equal(bob, owner)

	_, err = s.store.FindByID(ctx, 2)
	s.ErrorIs(err, credential.ErrNotFound)
}

func (s *PostgresStoreSuite) TestRevokeOnce() {
	ctx := context.Background()
	id := s.mint(alice, "React")

	s.Require().NoError(s.store.MarkRevoked(ctx, id, "Fraud detected", s.now))
	got, err := s.store.FindByID(ctx, id)
	s.Require().NoError(err)
	s.True(got.Revoked)
	s.Equal("Fraud detected", got.RevocationReason)
	s.Require().NotNil(got.RevokedAt)

	s.ErrorIs(s.store.MarkRevoked(ctx, id, "again", s.now), credential.ErrAlreadyRevoked)
	s.ErrorIs(s.store.MarkRevoked(ctx, 42, "missing", s.now), credential.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListIDsByOwnerKeepsMintOrder() {
	ctx := context.Background()
	for _, o := range []domain.Principal{alice, bob, alice, bob, bob, alice} {
		s.mint(o, "Go")
	}
	ids, err := s.store.ListIDsByOwner(ctx, alice)
	s.Require().NoError(err)
	s.Equal([]models.CredentialID{0, 2, 5}, ids)

	n, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(6), n)
}

func (s *PostgresStoreSuite) TestProficiencyCheck() {
	_, err := s.store.Allocate(context.Background(), &models.Credential{
		Owner: alice, SkillCategory: "Go", Proficiency: 9, Issuer: issuer, IssuedAt: s.now,
	})
	s.ErrorIs(err, credential.ErrInvalidProficiency)
}

func (s *PostgresStoreSuite) TestTxStoreAllocatesDenseIDs() {
	ctx := context.Background()
	s.mint(alice, "React")

	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	defer func() { _ = tx.Rollback() }()
	txStore := credential.NewPostgresTx(tx)
	for want := models.CredentialID(1); want <= 5; want++ {
		id, err := txStore.Allocate(ctx, &models.Credential{
			Owner: bob, SkillCategory: "Go", Proficiency: 2, Issuer: issuer, IssuedAt: s.now,
		})
		s.Require().NoError(err)
		s.Equal(want, id)
	}
	s.Require().NoError(tx.Commit())

	n, err := s.store.Count(ctx)
	s.Require().NoError(err)
	s.EqualValues(6, n)
	ids, err := s.store.ListIDsByOwner(ctx, bob)
	s.Require().NoError(err)
	s.Equal([]models.CredentialID{1, 2, 3, 4, 5}, ids)
}

func (s *PostgresStoreSuite) TestDuplicateIDIsConflict() {
	ctx := context.Background()
	s.mint(alice, "React")

	// a second writer that skipped the ledger lock would reuse id 0
	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	defer func() { _ = tx.Rollback() }()
	_, err = tx.ExecContext(ctx, `DELETE FROM credentials WHERE id = 0`)
	s.Require().NoError(err)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (id, owner, skill_category, proficiency, metadata_uri, issuer, issued_at)
		VALUES (1, $1, 'Go', 1, '', $2, $3)
	`, bob.String(), issuer.String(), s.now)
	s.Require().NoError(err)

	_, err = credential.NewPostgresTx(tx).Allocate(ctx, &models.Credential{
		Owner: bob, SkillCategory: "Go", Proficiency: 2, Issuer: issuer, IssuedAt: s.now,
	})
	s.ErrorIs(err, sentinel.ErrConflict)
}
