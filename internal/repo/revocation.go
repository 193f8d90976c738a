package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RevocationRepo is the denylist of logged-out session tokens, keyed by the
// token's jti claim.
type RevocationRepo interface {
	// Revoke records jti until expiresAt. Revoking twice is not an error.
	Revoke(ctx context.Context, jti uuid.UUID, expiresAt time.Time) error

	// IsRevoked reports whether jti is revoked and not yet past its expiry.
	IsRevoked(ctx context.Context, jti uuid.UUID) (bool, error)
}

type pgRevocationRepo struct {
	db db
}

// NewRevocationRepo constructs a RevocationRepo backed by the provided db connection.
func NewRevocationRepo(db db) RevocationRepo {
	return &pgRevocationRepo{db: db}
}

func (r *pgRevocationRepo) Revoke(ctx context.Context, jti uuid.UUID, expiresAt time.Time) error {
	const q = `
		INSERT INTO revoked_tokens (jti, expires_at)
		VALUES (@jti, @expires_at)
		ON CONFLICT (jti) DO NOTHING`

	_, err := r.db.Exec(ctx, q, pgx.NamedArgs{"jti": jti, "expires_at": expiresAt})
	if err != nil {
		return fmt.Errorf("repo.RevocationRepo.Revoke: %w", err)
	}
	return nil
}

func (r *pgRevocationRepo) IsRevoked(ctx context.Context, jti uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = @jti AND expires_at > now())`

	var revoked bool
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"jti": jti}).Scan(&revoked); err != nil {
		return false, fmt.Errorf("repo.RevocationRepo.IsRevoked: %w", err)
	}
	return revoked, nil
}
