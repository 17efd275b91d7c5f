package service_test

import (
	"context"
	"sync"
	"time"

	"shebuilds/internal/ledger/events"
	"shebuilds/internal/ledger/models"
	"shebuilds/internal/ledger/service"
	"shebuilds/internal/ledger/store"
	"shebuilds/internal/ledger/store/credential"
	"shebuilds/internal/ledger/store/role"
	"shebuilds/pkg/domain"
	outboxmem "shebuilds/pkg/platform/outbox/store/memory"
)

// slowSink widens the gap between commit and delivery to later sinks.
type slowSink struct{}

func (slowSink) Publish(context.Context, []models.Event) {
	time.Sleep(50 * time.Microsecond)
}

func (s *LedgerSuite) TestFeedFollowsCommitOrderUnderConcurrentMints() {
	const (
		workers = 16
		perWork = 50
	)
	feed := events.NewRecorder(workers*perWork + 16)
	runner := store.NewMemoryRunner(role.NewInMemoryStore(), credential.NewInMemoryStore(), outboxmem.New())
	svc := service.New(runner, service.WithEventSink(slowSink{}), service.WithEventSink(feed))
	s.Require().NoError(svc.Bootstrap(s.ctx, admin))
	s.Require().NoError(svc.GrantIssuerRole(s.ctx, admin, issuer))
	after := feed.LastSeq()

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			to := recipient
			if w%2 == 1 {
				to = other
			}
			for range perWork {
				_, err := svc.MintCredential(s.ctx, issuer, models.MintRequest{
					Recipient: to, SkillCategory: "Go", Proficiency: 3,
				})
				s.NoError(err)
			}
		}()
	}
	wg.Wait()

	records := feed.List(after, 0)
	s.Require().Len(records, workers*perWork)
	for i, rec := range records {
		s.Require().Equal(models.EventCredentialIssued, rec.Event.Type)
		s.Require().NotNil(rec.Event.TokenID)
		s.Equal(models.CredentialID(i), *rec.Event.TokenID, "feed seq %d out of commit order", rec.Seq)
	}
}

func (s *LedgerSuite) TestFailedMutationReachesNoSink() {
	s.withIssuer()
	after := s.recorder.LastSeq()

	_, err := s.svc.BatchMintCredentials(s.ctx, issuer, models.BatchMintRequest{
		Recipients:    []domain.Principal{recipient, other},
		Categories:    []string{"Go", "Rust"},
		Proficiencies: []int{3, 9},
		MetadataURIs:  []string{"", ""},
	})
	s.Require().Error(err)
	s.Empty(s.recorder.List(after, 0))
}
