package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/itinerary-sync/backend/internal/domain"
	"github.com/pkordes/itinerary-sync/backend/internal/handler"
)

// ---- auth guard ------------------------------------------------------------

func TestItineraries_401_WithoutToken(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Itineraries: &mockItineraryServicer{}})

	req := httptest.NewRequest(http.MethodGet, "/itineraries", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Error.Code)
}

// ---- GET /itineraries ------------------------------------------------------

func TestListItineraries_200_ScopedToCaller(t *testing.T) {
	now := time.Now().UTC()
	var gotOwner uuid.UUID
	svc := &mockItineraryServicer{
		list: func(_ context.Context, ownerID uuid.UUID) ([]domain.Itinerary, error) {
			gotOwner = ownerID
			return []domain.Itinerary{
				itineraryFixture("Paris", domain.CategoryLeisure, now),
				itineraryFixture("Berlin", domain.CategoryWork, now.Add(-time.Hour)),
			}, nil
		},
	}

	rec := do(t, newHTTPHandler(handler.Deps{Itineraries: svc}), http.MethodGet, "/itineraries", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testOwner.OwnerID, gotOwner)
	var resp []handler.Itinerary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "Paris", resp[0].Destination)
	assert.Equal(t, "2025-06-01", resp[0].Date.Format(domain.DateLayout))
}

func TestListItineraries_200_Filtered(t *testing.T) {
	now := time.Now().UTC()
	svc := &mockItineraryServicer{
		list: func(context.Context, uuid.UUID) ([]domain.Itinerary, error) {
			return []domain.Itinerary{
				itineraryFixture("Paris", domain.CategoryLeisure, now),
				itineraryFixture("Berlin", domain.CategoryWork, now),
				itineraryFixture("Paris Disneyland", domain.CategoryFamily, now),
			}, nil
		},
	}
	h := newHTTPHandler(handler.Deps{Itineraries: svc})

	rec := do(t, h, http.MethodGet, "/itineraries?q=paris&category=Family", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []handler.Itinerary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Paris Disneyland", resp[0].Destination)
}

func TestListItineraries_200_EmptyIsArray(t *testing.T) {
	svc := &mockItineraryServicer{
		list: func(context.Context, uuid.UUID) ([]domain.Itinerary, error) { return []domain.Itinerary{}, nil },
	}

	rec := do(t, newHTTPHandler(handler.Deps{Itineraries: svc}), http.MethodGet, "/itineraries", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListItineraries_422_UnknownCategory(t *testing.T) {
	svc := &mockItineraryServicer{
		list: func(context.Context, uuid.UUID) ([]domain.Itinerary, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	rec := do(t, newHTTPHandler(handler.Deps{Itineraries: svc}), http.MethodGet, "/itineraries?category=cruise", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListItineraries_500_HidesInternalError(t *testing.T) {
	svc := &mockItineraryServicer{
		list: func(context.Context, uuid.UUID) ([]domain.Itinerary, error) {
			return nil, errors.New("pq: connection refused")
		},
	}

	rec := do(t, newHTTPHandler(handler.Deps{Itineraries: svc}), http.MethodGet, "/itineraries", nil)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
}

// ---- POST /itineraries -----------------------------------------------------

func TestCreateItinerary_201(t *testing.T) {
	var got domain.ItineraryInput
	svc := &mockItineraryServicer{
		create: func(_ context.Context, ownerID uuid.UUID, in domain.ItineraryInput) (domain.Itinerary, error) {
			got = in
			it := itineraryFixture(in.Destination, in.Category, time.Now().UTC())
			it.Date = in.Date
			return it, nil
		},
	}

	rec := do(t, newHTTPHandler(handler.Deps{Itineraries: svc}), http.MethodPost, "/itineraries", map[string]any{
		"destination": "Lisbon",
		"date":        "2025-09-14",
		"activities":  "Trams",
		"category":    "romantic",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Lisbon", got.Destination)
	assert.Equal(t, time.Date(2025, 9, 14, 0, 0, 0, 0, time.UTC), got.Date)
	assert.Equal(t, domain.CategoryRomantic, got.Category)

	var resp handler.Itinerary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "Lisbon", resp.Destination)
	assert.False(t, resp.Favorite)
}

func TestCreateItinerary_422_ValidationError(t *testing.T) {
	svc := &mockItineraryServicer{
		create: func(context.Context, uuid.UUID, domain.ItineraryInput) (domain.Itinerary, error) {
			return domain.Itinerary{}, fmt.Errorf("%w: destination is required", domain.ErrValidation)
		},
	}

	rec := do(t, newHTTPHandler(handler.Deps{Itineraries: svc}), http.MethodPost, "/itineraries", map[string]any{
		"destination": " ", "date": "2025-09-14", "activities": "x",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "validation_error", resp.Error.Code)
	assert.Equal(t, "destination is required", resp.Error.Message)
}

func TestCreateItinerary_422_MissingDateReachesService(t *testing.T) {
	var got domain.ItineraryInput
	svc := &mockItineraryServicer{
		create: func(_ context.Context, _ uuid.UUID, in domain.ItineraryInput) (domain.Itinerary, error) {
			got = in
			return domain.Itinerary{}, fmt.Errorf("%w: date is required", domain.ErrValidation)
		},
	}

	rec := do(t, newHTTPHandler(handler.Deps{Itineraries: svc}), http.MethodPost, "/itineraries", map[string]any{
		"destination": "Lisbon", "activities": "x",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.True(t, got.Date.IsZero())
}

func TestCreateItinerary_422_MalformedJSON(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Itineraries: &mockItineraryServicer{}})

	req := httptest.NewRequest(http.MethodPost, "/itineraries", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateItinerary_422_MalformedDate(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Itineraries: &mockItineraryServicer{}})

	rec := do(t, h, http.MethodPost, "/itineraries", map[string]any{
		"destination": "Lisbon", "date": "14/09/2025", "activities": "x",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// ---- POST /itineraries/trips -----------------------------------------------

func TestCreateTrip_201_MapsFields(t *testing.T) {
	var got domain.TripInput
	svc := &mockItineraryServicer{
		createTrip: func(_ context.Context, _ uuid.UUID, trip domain.TripInput) (domain.Itinerary, error) {
			got = trip
			return itineraryFixture(trip.Destination, domain.CategoryWork, time.Now().UTC()), nil
		},
	}

	rec := do(t, newHTTPHandler(handler.Deps{Itineraries: svc}), http.MethodPost, "/itineraries/trips", map[string]any{
		"destination": "Tokyo",
		"activities":  "Offsite",
		"start_date":  "2025-10-01",
		"end_date":    "2025-10-04",
		"trip_type":   "Work",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Tokyo", got.Destination)
	assert.Equal(t, "Work", got.TripType)
	assert.Equal(t, time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), got.StartDate)
	assert.Equal(t, time.Date(2025, 10, 4, 0, 0, 0, 0, time.UTC), got.EndDate)
}

// ---- DELETE /itineraries/{id} ----------------------------------------------

func TestDeleteItinerary_204(t *testing.T) {
	id := uuid.New()
	var gotID uuid.UUID
	svc := &mockItineraryServicer{
		delete: func(_ context.Context, _ uuid.UUID, target uuid.UUID) error {
			gotID = target
			return nil
		},
	}

	rec := do(t, newHTTPHandler(handler.Deps{Itineraries: svc}), http.MethodDelete, "/itineraries/"+id.String(), nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id, gotID)
}

func TestDeleteItinerary_404(t *testing.T) {
	svc := &mockItineraryServicer{
		delete: func(context.Context, uuid.UUID, uuid.UUID) error {
			return fmt.Errorf("service: %w", domain.ErrNotFound)
		},
	}

	rec := do(t, newHTTPHandler(handler.Deps{Itineraries: svc}), http.MethodDelete, "/itineraries/"+uuid.NewString(), nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error.Code)
}

func TestDeleteItinerary_404_MalformedID(t *testing.T) {
	rec := do(t, newHTTPHandler(handler.Deps{Itineraries: &mockItineraryServicer{}}), http.MethodDelete, "/itineraries/not-a-uuid", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- POST /itineraries/{id}/favorite ---------------------------------------

func TestToggleFavorite_200(t *testing.T) {
	id := uuid.New()
	var gotCurrent bool
	svc := &mockItineraryServicer{
		toggleFavorite: func(_ context.Context, _ uuid.UUID, target uuid.UUID, current bool) (domain.Itinerary, error) {
			gotCurrent = current
			it := itineraryFixture("Paris", domain.CategoryLeisure, time.Now().UTC())
			it.ID = target
			it.Favorite = !current
			return it, nil
		},
	}

	rec := do(t, newHTTPHandler(handler.Deps{Itineraries: svc}), http.MethodPost,
		"/itineraries/"+id.String()+"/favorite", map[string]any{"current": false})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gotCurrent)
	var resp handler.Itinerary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Favorite)
	assert.Equal(t, id, resp.Id)
}

func TestToggleFavorite_409_Stale(t *testing.T) {
	svc := &mockItineraryServicer{
		toggleFavorite: func(context.Context, uuid.UUID, uuid.UUID, bool) (domain.Itinerary, error) {
			return domain.Itinerary{}, fmt.Errorf("service: %w", domain.ErrConflict)
		},
	}

	rec := do(t, newHTTPHandler(handler.Deps{Itineraries: svc}), http.MethodPost,
		"/itineraries/"+uuid.NewString()+"/favorite", map[string]any{"current": true})

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeError(t, rec).Error.Code)
}

func TestToggleFavorite_404(t *testing.T) {
	svc := &mockItineraryServicer{
		toggleFavorite: func(context.Context, uuid.UUID, uuid.UUID, bool) (domain.Itinerary, error) {
			return domain.Itinerary{}, domain.ErrNotFound
		},
	}

	rec := do(t, newHTTPHandler(handler.Deps{Itineraries: svc}), http.MethodPost,
		"/itineraries/"+uuid.NewString()+"/favorite", map[string]any{"current": true})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleFavorite_422_MissingCurrent(t *testing.T) {
	rec := do(t, newHTTPHandler(handler.Deps{Itineraries: &mockItineraryServicer{}}), http.MethodPost,
		"/itineraries/"+uuid.NewString()+"/favorite", map[string]any{})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "current is required", decodeError(t, rec).Error.Message)
}
