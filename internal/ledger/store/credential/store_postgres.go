package credential

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

// PostgresStore persists credentials in the credentials table. Allocate is
// only safe under the ledger's advisory lock, which the transaction runner takes.
// A transaction-bound store counts the table once and tracks the next id from
// there.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx

	next    uint64
	counted bool
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

const credentialColumns = `id, owner, skill_category, proficiency, metadata_uri, issuer, issued_at, revoked, revocation_reason, revoked_at`

func (s *PostgresStore) Allocate(ctx context.Context, c *models.Credential) (models.CredentialID, error) {
	if err := validateForAllocate(c); err != nil {
		return 0, err
	}
	next, err := s.nextID(ctx)
	if err != nil {
		return 0, err
	}
	id := models.CredentialID(next)
	_, err = s.execer().ExecContext(ctx, `
		INSERT INTO credentials (id, owner, skill_category, proficiency, metadata_uri, issuer, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, int64(id), c.Owner.String(), c.SkillCategory, int16(c.Proficiency), c.MetadataURI, c.Issuer.String(), c.IssuedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("credential %d already allocated: %w", id, sentinel.ErrConflict)
		}
		return 0, fmt.Errorf("insert credential: %w", err)
	}
	if s.tx != nil {
		s.next, s.counted = next+1, true
	}
	c.ID = id
	c.Revoked = false
	c.RevocationReason = ""
	c.RevokedAt = nil
	return id, nil
}

func (s *PostgresStore) nextID(ctx context.Context) (uint64, error) {
	if s.counted {
		return s.next, nil
	}
	return s.Count(ctx)
}

func (s *PostgresStore) FindByID(ctx context.Context, id models.CredentialID) (*models.Credential, error) {
	row := s.execer().QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE id = $1`, int64(id))
	c, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) OwnerOf(ctx context.Context, id models.CredentialID) (domain.Principal, error) {
	var owner string
	err := s.execer().QueryRowContext(ctx, `SELECT owner FROM credentials WHERE id = $1`, int64(id)).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("find credential owner: %w", err)
	}
	return domain.Principal(owner), nil
}

func (s *PostgresStore) MarkRevoked(ctx context.Context, id models.CredentialID, reason string, at time.Time) error {
	res, err := s.execer().ExecContext(ctx, `
		UPDATE credentials
		SET revoked = TRUE, revocation_reason = $2, revoked_at = $3
		WHERE id = $1 AND NOT revoked
	`, int64(id), reason, at)
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	if n == 1 {
		return nil
	}

	var revoked bool
	err = s.execer().QueryRowContext(ctx, `SELECT revoked FROM credentials WHERE id = $1`, int64(id)).Scan(&revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	return ErrAlreadyRevoked
}

func (s *PostgresStore) ListIDsByOwner(ctx context.Context, owner domain.Principal) ([]models.CredentialID, error) {
	rows, err := s.execer().QueryContext(ctx,
		`SELECT id FROM credentials WHERE owner = $1 ORDER BY id`, owner.String())
	if err != nil {
		return nil, fmt.Errorf("list credentials by owner: %w", err)
	}
	defer rows.Close()

	ids := []models.CredentialID{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan credential id: %w", err)
		}
		ids = append(ids, models.CredentialID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credential ids: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) Count(ctx context.Context) (uint64, error) {
	var n int64
	if err := s.execer().QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count credentials: %w", err)
	}
	return uint64(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*models.Credential, error) {
	var (
		c           models.Credential
		id          int64
		owner       string
		issuer      string
		proficiency int16
		reason      sql.NullString
		revokedAt   sql.NullTime
	)
	if err := row.Scan(&id, &owner, &c.SkillCategory, &proficiency, &c.MetadataURI, &issuer, &c.IssuedAt, &c.Revoked, &reason, &revokedAt); err != nil {
		return nil, err
	}
	c.ID = models.CredentialID(id)
	c.Owner = domain.Principal(owner)
	c.Issuer = domain.Principal(issuer)
	c.Proficiency = models.Proficiency(proficiency)
	c.RevocationReason = reason.String
	if revokedAt.Valid {
		t := revokedAt.Time
		c.RevokedAt = &t
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
