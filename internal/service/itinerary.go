// Package service contains the business logic for the itinerary service.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here — services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/itinerary-sync/backend/internal/domain"
	"github.com/pkordes/itinerary-sync/backend/internal/repo"
)

// ChangeNotifier is told about every acknowledged write so live subscribers
// re-read the owner's collection. feed.Hub and feed.RedisNotifier satisfy it.
type ChangeNotifier interface {
	Notify(ctx context.Context, ownerID uuid.UUID) error
}

// ItineraryService applies create, delete and favorite-toggle mutations to an
// owner's itineraries. It never touches a mirror directly; the change feed
// carries every write back to subscribers.
type ItineraryService struct {
	repo     repo.ItineraryRepo
	notifier ChangeNotifier
	log      *slog.Logger
}

// NewItineraryService constructs an ItineraryService.
func NewItineraryService(r repo.ItineraryRepo, n ChangeNotifier, log *slog.Logger) *ItineraryService {
	return &ItineraryService{repo: r, notifier: n, log: log}
}

// Create validates and persists a new itinerary. It returns once the write is
// acknowledged; subscribers see it on their next snapshot.
// Returns domain.ErrValidation without touching the database on bad input.
func (s *ItineraryService) Create(ctx context.Context, ownerID uuid.UUID, in domain.ItineraryInput) (domain.Itinerary, error) {
	if ownerID == uuid.Nil {
		return domain.Itinerary{}, fmt.Errorf("service.ItineraryService.Create: %w", domain.ErrUnauthenticated)
	}
	in, err := normalizeInput(in)
	if err != nil {
		return domain.Itinerary{}, err
	}

	created, err := s.repo.Create(ctx, ownerID, in)
	if err != nil {
		return domain.Itinerary{}, fmt.Errorf("service.ItineraryService.Create: %w", err)
	}
	s.changed(ctx, ownerID)
	return created, nil
}

// CreateTrip accepts the start/end-date trip shape and stores it as a regular
// itinerary: TripType becomes the category and StartDate the date.
// EndDate is checked but not stored.
func (s *ItineraryService) CreateTrip(ctx context.Context, ownerID uuid.UUID, trip domain.TripInput) (domain.Itinerary, error) {
	if trip.StartDate.IsZero() {
		return domain.Itinerary{}, fmt.Errorf("%w: start date is required", domain.ErrValidation)
	}
	if trip.EndDate.IsZero() {
		return domain.Itinerary{}, fmt.Errorf("%w: end date is required", domain.ErrValidation)
	}
	if trip.EndDate.Before(trip.StartDate) {
		return domain.Itinerary{}, fmt.Errorf("%w: end date must not be before start date", domain.ErrValidation)
	}
	cat, err := domain.ParseCategory(trip.TripType)
	if err != nil {
		return domain.Itinerary{}, err
	}

	return s.Create(ctx, ownerID, domain.ItineraryInput{
		Destination: trip.Destination,
		Date:        trip.StartDate,
		Activities:  trip.Activities,
		Category:    cat,
	})
}

// List returns the owner's itineraries newest first. Always non-nil.
func (s *ItineraryService) List(ctx context.Context, ownerID uuid.UUID) ([]domain.Itinerary, error) {
	items, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("service.ItineraryService.List: %w", err)
	}
	if items == nil {
		return []domain.Itinerary{}, nil
	}
	return items, nil
}

// Delete permanently removes an itinerary.
// Returns domain.ErrNotFound if it does not exist; deleting twice is an error.
func (s *ItineraryService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("service.ItineraryService.Delete: %w", err)
	}
	s.changed(ctx, ownerID)
	return nil
}

// ToggleFavorite sets favorite to !current, where current is the caller's
// last-known value. The write only lands if the stored value still equals
// current; otherwise domain.ErrConflict is returned and nothing changes.
func (s *ItineraryService) ToggleFavorite(ctx context.Context, ownerID, id uuid.UUID, current bool) (domain.Itinerary, error) {
	updated, err := s.repo.SwapFavorite(ctx, ownerID, id, current)
	if err != nil {
		return domain.Itinerary{}, fmt.Errorf("service.ItineraryService.ToggleFavorite: %w", err)
	}
	s.changed(ctx, ownerID)
	return updated, nil
}

// changed publishes the change signal. The write is already acknowledged, so
// a publish failure is logged rather than returned.
func (s *ItineraryService) changed(ctx context.Context, ownerID uuid.UUID) {
	if err := s.notifier.Notify(ctx, ownerID); err != nil {
		s.log.WarnContext(ctx, "change notification failed", "owner_id", ownerID, "error", err)
	}
}

// normalizeInput trims text fields and enforces the create rules:
//   - destination and activities must be non-empty after trimming
//   - date must be present
//   - category must be in the closed set, any case (empty defaults to adventure)
func normalizeInput(in domain.ItineraryInput) (domain.ItineraryInput, error) {
	in.Destination = strings.TrimSpace(in.Destination)
	in.Activities = strings.TrimSpace(in.Activities)
	in.Category = domain.Category(strings.ToLower(strings.TrimSpace(string(in.Category))))

	if in.Destination == "" {
		return in, fmt.Errorf("%w: destination is required", domain.ErrValidation)
	}
	if in.Date.IsZero() {
		return in, fmt.Errorf("%w: date is required", domain.ErrValidation)
	}
	if in.Activities == "" {
		return in, fmt.Errorf("%w: activities is required", domain.ErrValidation)
	}
	if in.Category == "" {
		in.Category = domain.DefaultCategory
	}
	if !in.Category.Valid() {
		return in, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, in.Category)
	}
	return in, nil
}
