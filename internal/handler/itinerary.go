package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/itinerary-sync/backend/internal/domain"
	"github.com/pkordes/itinerary-sync/backend/internal/filter"
	"github.com/pkordes/itinerary-sync/backend/internal/middleware"
)

// Itinerary is the wire shape of a stored itinerary.
type Itinerary struct {
	Id          uuid.UUID          `json:"id"`
	Destination string             `json:"destination"`
	Date        openapi_types.Date `json:"date"`
	Activities  string             `json:"activities"`
	Category    string             `json:"category"`
	Favorite    bool               `json:"favorite"`
	CreatedAt   time.Time          `json:"created_at"`
}

// CreateItineraryRequest is the body of POST /itineraries.
// Category may be omitted; it defaults to adventure.
type CreateItineraryRequest struct {
	Destination string              `json:"destination"`
	Date        *openapi_types.Date `json:"date"`
	Activities  string              `json:"activities"`
	Category    string              `json:"category"`
}

// CreateTripRequest is the body of POST /itineraries/trips.
type CreateTripRequest struct {
	Destination string              `json:"destination"`
	Activities  string              `json:"activities"`
	StartDate   *openapi_types.Date `json:"start_date"`
	EndDate     *openapi_types.Date `json:"end_date"`
	TripType    string              `json:"trip_type"`
}

// ToggleFavoriteRequest is the body of POST /itineraries/{id}/favorite.
// Current is the favorite value the caller last saw.
type ToggleFavoriteRequest struct {
	Current *bool `json:"current"`
}

// ListItineraries handles GET /itineraries.
// Supports ?q= (free-text search) and ?category= (a category or "all").
func (s *Server) ListItineraries(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.IdentityFrom(r.Context())
	search, cat, ok := filterParams(w, r)
	if !ok {
		return
	}

	items, err := s.itineraries.List(r.Context(), ident.OwnerID)
	if err != nil {
		s.writeServiceError(w, r, err, "itinerary not found")
		return
	}
	writeJSON(w, http.StatusOK, itinerariesToResponse(filter.Apply(items, search, cat)))
}

// CreateItinerary handles POST /itineraries.
func (s *Server) CreateItinerary(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.IdentityFrom(r.Context())
	var req CreateItineraryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := s.itineraries.Create(r.Context(), ident.OwnerID, domain.ItineraryInput{
		Destination: req.Destination,
		Date:        dateOrZero(req.Date),
		Activities:  req.Activities,
		Category:    domain.Category(req.Category),
	})
	if err != nil {
		s.writeServiceError(w, r, err, "itinerary not found")
		return
	}
	writeJSON(w, http.StatusCreated, itineraryToResponse(created))
}

// CreateTrip handles POST /itineraries/trips, the start/end-date creation shape.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.IdentityFrom(r.Context())
	var req CreateTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := s.itineraries.CreateTrip(r.Context(), ident.OwnerID, domain.TripInput{
		Destination: req.Destination,
		Activities:  req.Activities,
		StartDate:   dateOrZero(req.StartDate),
		EndDate:     dateOrZero(req.EndDate),
		TripType:    req.TripType,
	})
	if err != nil {
		s.writeServiceError(w, r, err, "itinerary not found")
		return
	}
	writeJSON(w, http.StatusCreated, itineraryToResponse(created))
}

// DeleteItinerary handles DELETE /itineraries/{id}.
func (s *Server) DeleteItinerary(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.IdentityFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.itineraries.Delete(r.Context(), ident.OwnerID, id); err != nil {
		s.writeServiceError(w, r, err, "itinerary not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleFavorite handles POST /itineraries/{id}/favorite.
// Returns 409 if the stored value no longer matches the caller's.
func (s *Server) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.IdentityFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ToggleFavoriteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Current == nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("current is required"))
		return
	}

	updated, err := s.itineraries.ToggleFavorite(r.Context(), ident.OwnerID, id, *req.Current)
	if err != nil {
		s.writeServiceError(w, r, err, "itinerary not found")
		return
	}
	writeJSON(w, http.StatusOK, itineraryToResponse(updated))
}

// ---- mapping helpers -------------------------------------------------------

// filterParams reads ?q= and ?category=. An unknown category is a 422.
func filterParams(w http.ResponseWriter, r *http.Request) (string, filter.Category, bool) {
	q := r.URL.Query()
	cat, err := filter.ParseCategory(q.Get("category"))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, validationBody(err))
		return "", "", false
	}
	return q.Get("q"), cat, true
}

// pathID parses the {id} URL parameter. A malformed id cannot name an
// existing itinerary, so it is reported as not found.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, notFoundBody("itinerary not found"))
		return uuid.Nil, false
	}
	return id, true
}

func dateOrZero(d *openapi_types.Date) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}

func itineraryToResponse(it domain.Itinerary) Itinerary {
	return Itinerary{
		Id:          it.ID,
		Destination: it.Destination,
		Date:        openapi_types.Date{Time: it.Date},
		Activities:  it.Activities,
		Category:    string(it.Category),
		Favorite:    it.Favorite,
		CreatedAt:   it.CreatedAt,
	}
}

func itinerariesToResponse(items []domain.Itinerary) []Itinerary {
	out := make([]Itinerary, len(items))
	for i, it := range items {
		out[i] = itineraryToResponse(it)
	}
	return out
}
