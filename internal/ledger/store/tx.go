// Package store wires the credential, role and outbox stores behind a
// single serialization point.
package store

import (
	"context"
	"time"

	"shebuilds/internal/ledger/store/credential"
	"shebuilds/internal/ledger/store/role"
	"shebuilds/pkg/platform/outbox"
)

const defaultTxTimeout = 5 * time.Second

// Stores is the view a transaction body works against.
type Stores struct {
	Roles       role.Store
	Credentials credential.Store
	Outbox      outbox.Store

	// Hooks is set by RunInTx and nil inside View.
	Hooks *CommitHooks
}

// AfterCommit schedules fn to run once the transaction has committed and
// before the next mutation starts. Hooks of a rolled back transaction never
// run. Outside RunInTx it does nothing.
func (s Stores) AfterCommit(fn func()) {
	if s.Hooks != nil && fn != nil {
		s.Hooks.Add(fn)
	}
}

// CommitHooks collects post-commit callbacks for one transaction.
type CommitHooks struct {
	fns []func()
}

func (h *CommitHooks) Add(fn func()) {
	h.fns = append(h.fns, fn)
}

// Run calls the hooks in registration order.
func (h *CommitHooks) Run() {
	for _, fn := range h.fns {
		fn()
	}
}

// Runner executes ledger work. RunInTx bodies are serialized against each
// other and commit or roll back as a unit; their commit hooks run inside the
// same serialization point. View bodies observe committed state only.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
	View(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
