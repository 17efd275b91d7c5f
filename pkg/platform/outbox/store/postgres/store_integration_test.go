//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shebuilds/pkg/platform/outbox"
	"shebuilds/pkg/platform/outbox/store/postgres"
	"shebuilds/pkg/testutil/containers"
)

type PostgresOutboxSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
	ctx   context.Context
}

func TestPostgresOutboxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresOutboxSuite))
}

func (s *PostgresOutboxSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresOutboxSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateLedger(s.ctx))
}

func (s *PostgresOutboxSuite) TestRolledBackAppendIsInvisible() {
	tx, err := s.pg.DB.BeginTx(s.ctx, nil)
	s.Require().NoError(err)
	entry := outbox.NewEntry("credential", "0", "CredentialIssued", []byte(`{"token_id":0}`), time.Now().UTC())
	s.Require().NoError(postgres.NewTx(tx).Append(s.ctx, entry))
	s.Require().NoError(tx.Rollback())

	n, _, err := s.store.CountPending(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *PostgresOutboxSuite) TestLifecycle() {
	now := time.Now().UTC().Truncate(time.Microsecond)
	first := outbox.NewEntry("credential", "0", "CredentialIssued", []byte(`{"token_id":0}`), now)
	second := outbox.NewEntry("credential", "0", "CredentialRevoked", []byte(`{"token_id":0}`), now)
	s.Require().NoError(s.store.Append(s.ctx, first))
	s.Require().NoError(s.store.Append(s.ctx, second))

	pending, err := s.store.FetchUnprocessed(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(first.ID, pending[0].ID, "insertion order is preserved for equal timestamps")
	s.JSONEq(`{"token_id":0}`, string(pending[0].Payload))

	s.Require().NoError(s.store.MarkProcessed(s.ctx, first.ID, now.Add(time.Second)))
	n, oldest, err := s.store.CountPending(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(1, n)
	s.True(oldest.Equal(now))

	removed, err := s.store.DeleteProcessedBefore(s.ctx, now.Add(time.Hour))
	s.Require().NoError(err)
	s.EqualValues(1, removed)
}
