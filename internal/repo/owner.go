package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/itinerary-sync/backend/internal/domain"
)

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

// OwnerRepo defines the persistence operations for owner profiles.
type OwnerRepo interface {
	// Create inserts a new owner and returns it with id and created_at populated.
	// Returns domain.ErrEmailTaken if the email is already registered.
	Create(ctx context.Context, owner domain.Owner) (domain.Owner, error)

	// GetByID returns the owner profile. Returns domain.ErrNotFound if missing.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Owner, error)

	// GetByEmail looks an owner up case-insensitively by email.
	// Returns domain.ErrNotFound if missing.
	GetByEmail(ctx context.Context, email string) (domain.Owner, error)
}

type pgOwnerRepo struct {
	db db
}

// NewOwnerRepo constructs an OwnerRepo backed by the provided db connection.
func NewOwnerRepo(db db) OwnerRepo {
	return &pgOwnerRepo{db: db}
}

const ownerColumns = `id, name, email, password_hash, password_salt, created_at`

func (r *pgOwnerRepo) Create(ctx context.Context, owner domain.Owner) (domain.Owner, error) {
	const q = `
		INSERT INTO owners (name, email, password_hash, password_salt)
		VALUES (@name, @email, @password_hash, @password_salt)
		RETURNING ` + ownerColumns

	args := pgx.NamedArgs{
		"name":          owner.Name,
		"email":         owner.Email,
		"password_hash": owner.PasswordHash,
		"password_salt": owner.PasswordSalt,
	}

	result, err := scanOwner(r.db.QueryRow(ctx, q, args))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.Owner{}, fmt.Errorf("repo.OwnerRepo.Create: %w", domain.ErrEmailTaken)
		}
		return domain.Owner{}, fmt.Errorf("repo.OwnerRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgOwnerRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Owner, error) {
	q := `SELECT ` + ownerColumns + ` FROM owners WHERE id = @id`

	result, err := scanOwner(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Owner{}, fmt.Errorf("repo.OwnerRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgOwnerRepo) GetByEmail(ctx context.Context, email string) (domain.Owner, error) {
	q := `SELECT ` + ownerColumns + ` FROM owners WHERE lower(email) = lower(@email)`

	result, err := scanOwner(r.db.QueryRow(ctx, q, pgx.NamedArgs{"email": email}))
	if err != nil {
		return domain.Owner{}, fmt.Errorf("repo.OwnerRepo.GetByEmail: %w", err)
	}
	return result, nil
}

func scanOwner(s scanner) (domain.Owner, error) {
	var (
		o  domain.Owner
		id pgtype.UUID
	)
	err := s.Scan(&id, &o.Name, &o.Email, &o.PasswordHash, &o.PasswordSalt, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Owner{}, domain.ErrNotFound
		}
		return domain.Owner{}, err
	}
	o.ID = uuid.UUID(id.Bytes)
	return o, nil
}
