package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"shebuilds/pkg/platform/outbox"
	"shebuilds/pkg/platform/sentinel"
)

type StoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
	t0    time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	s.t0 = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) appendN(n int) []*outbox.Entry {
	var out []*outbox.Entry
	for i := 0; i < n; i++ {
		e := outbox.NewEntry("credential", "0", "CredentialIssued", []byte(`{}`), s.t0.Add(time.Duration(i)*time.Second))
		s.Require().NoError(s.store.Append(s.ctx, e))
		out = append(out, e)
	}
	return out
}

func (s *StoreSuite) TestFetchIsOldestFirstAndBounded() {
	entries := s.appendN(3)

	got, err := s.store.FetchUnprocessed(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal(entries[0].ID, got[0].ID)
	s.Equal(entries[1].ID, got[1].ID)
}

func (s *StoreSuite) TestMarkProcessedRemovesFromPending() {
	entries := s.appendN(2)
	s.Require().NoError(s.store.MarkProcessed(s.ctx, entries[0].ID, s.t0.Add(time.Minute)))

	n, oldest, err := s.store.CountPending(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(1, n)
	s.Equal(entries[1].CreatedAt, oldest)

	s.ErrorIs(s.store.MarkProcessed(s.ctx, uuid.New(), s.t0), sentinel.ErrNotFound)
}

func (s *StoreSuite) TestDuplicateAppendConflicts() {
	entries := s.appendN(1)
	s.ErrorIs(s.store.Append(s.ctx, entries[0]), sentinel.ErrConflict)
}

func (s *StoreSuite) TestDeleteProcessedBefore() {
	entries := s.appendN(3)
	s.Require().NoError(s.store.MarkProcessed(s.ctx, entries[0].ID, s.t0))
	s.Require().NoError(s.store.MarkProcessed(s.ctx, entries[1].ID, s.t0.Add(time.Hour)))

	removed, err := s.store.DeleteProcessedBefore(s.ctx, s.t0.Add(time.Minute))
	s.Require().NoError(err)
	s.EqualValues(1, removed)

	pending, err := s.store.FetchUnprocessed(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(pending, 1)
	s.Equal(entries[2].ID, pending[0].ID)
}

func (s *StoreSuite) TestAppendAllIsAllOrNothing() {
	existing := s.appendN(1)
	fresh := outbox.NewEntry("credential", "1", "CredentialIssued", []byte(`{}`), s.t0)

	err := s.store.AppendAll(s.ctx, []*outbox.Entry{fresh, existing[0]})
	s.ErrorIs(err, sentinel.ErrConflict)
	n, _, err := s.store.CountPending(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(1, n)

	s.ErrorIs(s.store.AppendAll(s.ctx, []*outbox.Entry{fresh, fresh}), sentinel.ErrConflict)
	s.ErrorIs(s.store.AppendAll(s.ctx, []*outbox.Entry{fresh, nil}), sentinel.ErrInvalidInput)

	second := outbox.NewEntry("credential", "2", "CredentialIssued", []byte(`{}`), s.t0)
	s.Require().NoError(s.store.AppendAll(s.ctx, []*outbox.Entry{fresh, second}))
	pending, err := s.store.FetchUnprocessed(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 3)
	s.Equal(fresh.ID, pending[1].ID)
	s.Equal(second.ID, pending[2].ID)
}
