// Package repo contains all database access logic for the itinerary service.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here — only SQL and type mapping.
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

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ItineraryRepo defines the persistence operations for an owner's itineraries.
// Every method is scoped by ownerID; an itinerary belonging to another owner
// behaves exactly like a missing one.
type ItineraryRepo interface {
	// Create inserts a new itinerary and returns the persisted record with the
	// DB-generated id and created_at populated. Favorite is always stored false.
	Create(ctx context.Context, ownerID uuid.UUID, in domain.ItineraryInput) (domain.Itinerary, error)

	// ListByOwner returns the owner's full collection ordered by created_at
	// descending, ties broken by insertion sequence (newest first).
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Itinerary, error)

	// Delete permanently removes an itinerary.
	// Returns domain.ErrNotFound if no such itinerary exists for the owner.
	Delete(ctx context.Context, ownerID, id uuid.UUID) error

	// SwapFavorite sets favorite to !current only if the stored value still
	// equals current. Returns domain.ErrConflict when the stored value differs
	// and domain.ErrNotFound when the itinerary does not exist.
	SwapFavorite(ctx context.Context, ownerID, id uuid.UUID, current bool) (domain.Itinerary, error)
}

// pgItineraryRepo is the Postgres implementation of ItineraryRepo.
type pgItineraryRepo struct {
	db db
}

// NewItineraryRepo constructs an ItineraryRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewItineraryRepo(db db) ItineraryRepo {
	return &pgItineraryRepo{db: db}
}

const itineraryColumns = `id, owner_id, destination, date, activities, category, favorite, created_at`

// Create inserts a new itinerary row. created_at comes from the column default.
func (r *pgItineraryRepo) Create(ctx context.Context, ownerID uuid.UUID, in domain.ItineraryInput) (domain.Itinerary, error) {
	const q = `
		INSERT INTO itineraries (owner_id, destination, date, activities, category, favorite)
		VALUES (@owner_id, @destination, @date, @activities, @category, false)
		RETURNING ` + itineraryColumns

	args := pgx.NamedArgs{
		"owner_id":    ownerID,
		"destination": in.Destination,
		"date":        pgtype.Date{Time: in.Date, Valid: true},
		"activities":  in.Activities,
		"category":    string(in.Category),
	}

	result, err := scanItinerary(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Itinerary{}, fmt.Errorf("repo.ItineraryRepo.Create: %w", err)
	}
	return result, nil
}

// ListByOwner returns the owner's itineraries, newest first.
func (r *pgItineraryRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Itinerary, error) {
	const q = `
		SELECT ` + itineraryColumns + `
		FROM itineraries
		WHERE owner_id = @owner_id
		ORDER BY created_at DESC, seq DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"owner_id": ownerID})
	if err != nil {
		return nil, fmt.Errorf("repo.ItineraryRepo.ListByOwner: %w", err)
	}
	defer rows.Close()

	items := []domain.Itinerary{}
	for rows.Next() {
		it, err := scanItinerary(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ItineraryRepo.ListByOwner: scan: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ItineraryRepo.ListByOwner: rows: %w", err)
	}
	return items, nil
}

// Delete removes an itinerary by owner and id.
func (r *pgItineraryRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	const q = `DELETE FROM itineraries WHERE owner_id = @owner_id AND id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"owner_id": ownerID, "id": id})
	if err != nil {
		return fmt.Errorf("repo.ItineraryRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ItineraryRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// SwapFavorite performs the compare-and-swap in a single UPDATE. When no row
// matches, a follow-up existence check tells a stale value apart from a missing row.
func (r *pgItineraryRepo) SwapFavorite(ctx context.Context, ownerID, id uuid.UUID, current bool) (domain.Itinerary, error) {
	const q = `
		UPDATE itineraries
		SET favorite = NOT favorite
		WHERE owner_id = @owner_id AND id = @id AND favorite = @current
		RETURNING ` + itineraryColumns

	args := pgx.NamedArgs{"owner_id": ownerID, "id": id, "current": current}
	result, err := scanItinerary(r.db.QueryRow(ctx, q, args))
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Itinerary{}, fmt.Errorf("repo.ItineraryRepo.SwapFavorite: %w", err)
	}

	const exists = `SELECT EXISTS (SELECT 1 FROM itineraries WHERE owner_id = @owner_id AND id = @id)`
	var found bool
	if err := r.db.QueryRow(ctx, exists, pgx.NamedArgs{"owner_id": ownerID, "id": id}).Scan(&found); err != nil {
		return domain.Itinerary{}, fmt.Errorf("repo.ItineraryRepo.SwapFavorite: exists: %w", err)
	}
	if found {
		return domain.Itinerary{}, fmt.Errorf("repo.ItineraryRepo.SwapFavorite: %w: favorite is no longer %t", domain.ErrConflict, current)
	}
	return domain.Itinerary{}, fmt.Errorf("repo.ItineraryRepo.SwapFavorite: %w", domain.ErrNotFound)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanItinerary maps a single database row into a domain.Itinerary.
func scanItinerary(s scanner) (domain.Itinerary, error) {
	var (
		it       domain.Itinerary
		id       pgtype.UUID
		ownerID  pgtype.UUID
		date     pgtype.Date
		category string
	)

	err := s.Scan(&id, &ownerID, &it.Destination, &date, &it.Activities, &category, &it.Favorite, &it.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Itinerary{}, domain.ErrNotFound
		}
		return domain.Itinerary{}, err
	}

	it.ID = uuid.UUID(id.Bytes)
	it.OwnerID = uuid.UUID(ownerID.Bytes)
	it.Date = date.Time
	it.Category = domain.Category(category)
	return it, nil
}
