//go:build integration

package role_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shebuilds/internal/ledger/models"
	"shebuilds/internal/ledger/store/role"
	"shebuilds/pkg/domain"
	"shebuilds/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *role.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = role.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateLedger(context.Background()))
}

func (s *PostgresStoreSuite) TestGrantRevokeRoundTrip() {
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	changed, err := s.store.Grant(ctx, models.RoleIssuer, issuerA, t0)
	s.Require().NoError(err)
	s.True(changed)
	changed, err = s.store.Grant(ctx, models.RoleIssuer, issuerA, t0.Add(time.Minute))
	s.Require().NoError(err)
	s.False(changed)
	_, err = s.store.Grant(ctx, models.RoleIssuer, issuerB, t0.Add(time.Hour))
	s.Require().NoError(err)

	members, err := s.store.Members(ctx, models.RoleIssuer)
	s.Require().NoError(err)
	s.Equal([]domain.Principal{issuerA, issuerB}, members)

	changed, err = s.store.Revoke(ctx, models.RoleIssuer, issuerA)
	s.Require().NoError(err)
	s.True(changed)

	has, err := s.store.HasRole(ctx, models.RoleIssuer, issuerA)
	s.Require().NoError(err)
	s.False(has)
	has, err = s.store.HasRole(ctx, models.RoleIssuer, issuerB)
	s.Require().NoError(err)
	s.True(has)
}
