package credential

import (
	"context"
	"fmt"
	"time"

	"shebuilds/internal/ledger/models"
	"shebuilds/pkg/domain"
	"shebuilds/pkg/platform/sentinel"
)

var (
	ErrNotFound           = fmt.Errorf("credential: %w", sentinel.ErrNotFound)
	ErrAlreadyRevoked     = fmt.Errorf("credential already revoked: %w", sentinel.ErrInvalidState)
	ErrInvalidProficiency = fmt.Errorf("proficiency out of range: %w", sentinel.ErrInvalidInput)
)

// Store owns credential records and the owner index. Ids are dense and
// allocated in mint order, so the owner index is the owner's ids ascending.
type Store interface {
	// Allocate assigns the next id (equal to Count) to c, persists it with
	// Revoked=false and returns the id.
	Allocate(ctx context.Context, c *models.Credential) (models.CredentialID, error)
	FindByID(ctx context.Context, id models.CredentialID) (*models.Credential, error)
	OwnerOf(ctx context.Context, id models.CredentialID) (domain.Principal, error)
	// MarkRevoked flips revoked false->true and records reason and time.
	MarkRevoked(ctx context.Context, id models.CredentialID, reason string, at time.Time) error
	ListIDsByOwner(ctx context.Context, owner domain.Principal) ([]models.CredentialID, error)
	Count(ctx context.Context) (uint64, error)
}

func validateForAllocate(c *models.Credential) error {
	if c == nil {
		return sentinel.ErrInvalidInput
	}
	if !c.Proficiency.Valid() {
		return ErrInvalidProficiency
	}
	return nil
}
