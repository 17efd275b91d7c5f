package role

import (
	"context"
	"time"

	"shebuilds/internal/ledger/models"
	"shebuilds/pkg/domain"
)

// Store owns role membership. Grant and Revoke are idempotent and report
// whether membership actually changed.
type Store interface {
	Grant(ctx context.Context, role models.Role, p domain.Principal, at time.Time) (bool, error)
	Revoke(ctx context.Context, role models.Role, p domain.Principal) (bool, error)
	HasRole(ctx context.Context, role models.Role, p domain.Principal) (bool, error)
	// Members lists holders of role ordered by grant time.
	Members(ctx context.Context, role models.Role) ([]domain.Principal, error)
}
