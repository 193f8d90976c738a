// Package handler implements the HTTP handlers for the itinerary API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, auth.go, itinerary.go, stream.go) but all share the same
// Server struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/itinerary-sync/backend/internal/domain"
	"github.com/pkordes/itinerary-sync/backend/internal/middleware"
	"github.com/pkordes/itinerary-sync/backend/internal/mirror"
	"github.com/pkordes/itinerary-sync/backend/internal/service"
	"github.com/pkordes/itinerary-sync/backend/internal/session"
)

// ItineraryServicer defines the business operations the itinerary handlers
// depend on. Defining the interface here (in the consumer package) lets
// handler tests inject a mock without touching the database or service layer.
type ItineraryServicer interface {
	Create(ctx context.Context, ownerID uuid.UUID, in domain.ItineraryInput) (domain.Itinerary, error)
	CreateTrip(ctx context.Context, ownerID uuid.UUID, trip domain.TripInput) (domain.Itinerary, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]domain.Itinerary, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	ToggleFavorite(ctx context.Context, ownerID, id uuid.UUID, current bool) (domain.Itinerary, error)
}

// AuthServicer defines the signup and login operations.
type AuthServicer interface {
	Signup(ctx context.Context, name, email, password string) (service.AuthResult, error)
	Login(ctx context.Context, email, password string) (service.AuthResult, error)
}

// TokenVerifier validates session tokens, turns one into an identity feed,
// and revokes one on logout. *auth.TokenManager satisfies it.
type TokenVerifier interface {
	Parse(ctx context.Context, token string) (domain.Identity, time.Time, error)
	Watch(ctx context.Context, token string) <-chan domain.Identity
	Revoke(ctx context.Context, token string) error
}

// Deps bundles everything the Server needs.
type Deps struct {
	Itineraries ItineraryServicer
	Auth        AuthServicer
	Tokens      TokenVerifier
	Profiles    session.ProfileReader
	Source      mirror.Source
	Log         *slog.Logger
}

// Server implements every API endpoint.
// Wire it in main.go via Server.Routes.
type Server struct {
	itineraries ItineraryServicer
	auth        AuthServicer
	tokens      TokenVerifier
	profiles    session.ProfileReader
	source      mirror.Source
	log         *slog.Logger

	keepAlive time.Duration
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		itineraries: d.Itineraries,
		auth:        d.Auth,
		tokens:      d.Tokens,
		profiles:    d.Profiles,
		source:      d.Source,
		log:         log,
		keepAlive:   25 * time.Second,
	}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(Deps{})
}

// Routes returns the API router. Everything except health, the OpenAPI
// document and the auth endpoints requires a bearer token.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Post("/auth/signup", s.Signup)
	r.Post("/auth/login", s.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(s.tokens))

		r.Get("/me", s.GetMe)
		r.Post("/auth/logout", s.Logout)
		r.Route("/itineraries", func(r chi.Router) {
			r.Get("/", s.ListItineraries)
			r.Post("/", s.CreateItinerary)
			r.Get("/stream", s.StreamItineraries)
			r.Post("/trips", s.CreateTrip)
			r.Delete("/{id}", s.DeleteItinerary)
			r.Post("/{id}/favorite", s.ToggleFavorite)
		})
	})

	return r
}
