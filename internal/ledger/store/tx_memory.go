package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"shebuilds/internal/ledger/models"
	"shebuilds/internal/ledger/store/credential"
	"shebuilds/internal/ledger/store/role"
	"shebuilds/pkg/domain"
	dErrors "shebuilds/pkg/domain-errors"
	"shebuilds/pkg/platform/outbox"
)

// MemoryOutbox is the outbox a MemoryRunner commits to. AppendAll must add
// every entry or none.
type MemoryOutbox interface {
	outbox.Store
	AppendAll(ctx context.Context, entries []*outbox.Entry) error
}

// MemoryRunner guards the in-memory stores with one RWMutex. A failed
// mutation is undone from a journal, so callers never observe partial state.
// Commit hooks run before the lock is released.
type MemoryRunner struct {
	mu          sync.RWMutex
	roles       *role.InMemoryStore
	credentials *credential.InMemoryStore
	outbox      MemoryOutbox
}

func NewMemoryRunner(roles *role.InMemoryStore, credentials *credential.InMemoryStore, ob MemoryOutbox) *MemoryRunner {
	return &MemoryRunner{roles: roles, credentials: credentials, outbox: ob}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) (err error) {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	base, err := r.credentials.Count(ctx)
	if err != nil {
		return err
	}
	j := &journal{}
	tx := Stores{
		Roles:       &journalRoles{InMemoryStore: r.roles, j: j},
		Credentials: &journalCredentials{InMemoryStore: r.credentials, j: j},
		Outbox:      &stagedOutbox{Store: r.outbox, j: j},
		Hooks:       &CommitHooks{},
	}

	committed := false
	defer func() {
		if !committed {
			r.rollback(base, j)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if len(j.staged) > 0 {
		if err := r.outbox.AppendAll(ctx, j.staged); err != nil {
			return err
		}
	}
	committed = true
	tx.Hooks.Run()
	return nil
}

func (r *MemoryRunner) View(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(ctx, Stores{Roles: r.roles, Credentials: r.credentials, Outbox: r.outbox})
}

func (r *MemoryRunner) rollback(base uint64, j *journal) {
	r.credentials.Truncate(base)
	for _, id := range j.revoked {
		r.credentials.Unrevoke(id)
	}
	ctx := context.Background()
	for i := len(j.roleChanges) - 1; i >= 0; i-- {
		c := j.roleChanges[i]
		if c.granted {
			_, _ = r.roles.Revoke(ctx, c.role, c.principal)
		} else {
			r.roles.Restore(c.role, c.principal, c.prior)
		}
	}
}

type roleChange struct {
	granted   bool
	role      models.Role
	principal domain.Principal
	prior     role.Membership // revokes only
}

type journal struct {
	revoked     []models.CredentialID
	roleChanges []roleChange
	staged      []*outbox.Entry
}

type journalCredentials struct {
	*credential.InMemoryStore
	j *journal
}

func (c *journalCredentials) MarkRevoked(ctx context.Context, id models.CredentialID, reason string, at time.Time) error {
	if err := c.InMemoryStore.MarkRevoked(ctx, id, reason, at); err != nil {
		return err
	}
	c.j.revoked = append(c.j.revoked, id)
	return nil
}

type journalRoles struct {
	*role.InMemoryStore
	j *journal
}

func (r *journalRoles) Grant(ctx context.Context, rl models.Role, p domain.Principal, at time.Time) (bool, error) {
	changed, err := r.InMemoryStore.Grant(ctx, rl, p, at)
	if err == nil && changed {
		r.j.roleChanges = append(r.j.roleChanges, roleChange{granted: true, role: rl, principal: p})
	}
	return changed, err
}

func (r *journalRoles) Revoke(ctx context.Context, rl models.Role, p domain.Principal) (bool, error) {
	prior, removed := r.InMemoryStore.Remove(ctx, rl, p)
	if removed {
		r.j.roleChanges = append(r.j.roleChanges, roleChange{role: rl, principal: p, prior: prior})
	}
	return removed, nil
}

// stagedOutbox buffers appends until commit.
type stagedOutbox struct {
	outbox.Store
	j *journal
}

func (o *stagedOutbox) Append(_ context.Context, entry *outbox.Entry) error {
	if entry == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "outbox entry is required")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	cp := *entry
	o.j.staged = append(o.j.staged, &cp)
	return nil
}
