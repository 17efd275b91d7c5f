package role

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"shebuilds/internal/ledger/models"
	"shebuilds/pkg/domain"
	"shebuilds/pkg/platform/sentinel"
)

// PostgresStore persists role membership in role_members.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *PostgresStore) Grant(ctx context.Context, role models.Role, p domain.Principal, at time.Time) (bool, error) {
	res, err := s.execer().ExecContext(ctx, `
		INSERT INTO role_members (role, principal, granted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (role, principal) DO NOTHING
	`, role.String(), p.String(), at)
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("grant %s to %s: %w", role, p, sentinel.ErrConflict)
		}
		return false, fmt.Errorf("grant role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("grant role: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) Revoke(ctx context.Context, role models.Role, p domain.Principal) (bool, error) {
	res, err := s.execer().ExecContext(ctx,
		`DELETE FROM role_members WHERE role = $1 AND principal = $2`, role.String(), p.String())
	if err != nil {
		return false, fmt.Errorf("revoke role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke role: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) HasRole(ctx context.Context, role models.Role, p domain.Principal) (bool, error) {
	var exists bool
	err := s.execer().QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM role_members WHERE role = $1 AND principal = $2)`,
		role.String(), p.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Members(ctx context.Context, role models.Role) ([]domain.Principal, error) {
	rows, err := s.execer().QueryContext(ctx,
		`SELECT principal FROM role_members WHERE role = $1 ORDER BY granted_at, principal`, role.String())
	if err != nil {
		return nil, fmt.Errorf("list role members: %w", err)
	}
	defer rows.Close()

	members := []domain.Principal{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan role member: %w", err)
		}
		members = append(members, domain.Principal(p))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role members: %w", err)
	}
	return members, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
