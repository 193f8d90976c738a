package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/itinerary-sync/backend/internal/domain"
	"github.com/pkordes/itinerary-sync/backend/internal/handler"
	"github.com/pkordes/itinerary-sync/backend/internal/service"
)

// mockItineraryServicer is a test double for handler.ItineraryServicer.
// Set only the method fields your test needs.
type mockItineraryServicer struct {
	create         func(ctx context.Context, ownerID uuid.UUID, in domain.ItineraryInput) (domain.Itinerary, error)
	createTrip     func(ctx context.Context, ownerID uuid.UUID, trip domain.TripInput) (domain.Itinerary, error)
	list           func(ctx context.Context, ownerID uuid.UUID) ([]domain.Itinerary, error)
	delete         func(ctx context.Context, ownerID, id uuid.UUID) error
	toggleFavorite func(ctx context.Context, ownerID, id uuid.UUID, current bool) (domain.Itinerary, error)
}

func (m *mockItineraryServicer) Create(ctx context.Context, ownerID uuid.UUID, in domain.ItineraryInput) (domain.Itinerary, error) {
	return m.create(ctx, ownerID, in)
}
func (m *mockItineraryServicer) CreateTrip(ctx context.Context, ownerID uuid.UUID, trip domain.TripInput) (domain.Itinerary, error) {
	return m.createTrip(ctx, ownerID, trip)
}
func (m *mockItineraryServicer) List(ctx context.Context, ownerID uuid.UUID) ([]domain.Itinerary, error) {
	return m.list(ctx, ownerID)
}
func (m *mockItineraryServicer) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return m.delete(ctx, ownerID, id)
}
func (m *mockItineraryServicer) ToggleFavorite(ctx context.Context, ownerID, id uuid.UUID, current bool) (domain.Itinerary, error) {
	return m.toggleFavorite(ctx, ownerID, id, current)
}

// compile-time check: mockItineraryServicer must satisfy handler.ItineraryServicer.
var _ handler.ItineraryServicer = (*mockItineraryServicer)(nil)

type mockAuthServicer struct {
	signup func(ctx context.Context, name, email, password string) (service.AuthResult, error)
	login  func(ctx context.Context, email, password string) (service.AuthResult, error)
}

func (m *mockAuthServicer) Signup(ctx context.Context, name, email, password string) (service.AuthResult, error) {
	return m.signup(ctx, name, email, password)
}
func (m *mockAuthServicer) Login(ctx context.Context, email, password string) (service.AuthResult, error) {
	return m.login(ctx, email, password)
}

var _ handler.AuthServicer = (*mockAuthServicer)(nil)

// stubTokens accepts the token "good" for ident. Watch returns feed when set,
// otherwise a feed that emits ident and stays open until ctx is done.
// revoke is optional.
type stubTokens struct {
	ident  domain.Identity
	feed   chan domain.Identity
	revoke func(ctx context.Context, token string) error
}

func (s *stubTokens) Revoke(ctx context.Context, token string) error {
	if s.revoke == nil {
		return nil
	}
	return s.revoke(ctx, token)
}

func (s *stubTokens) Parse(_ context.Context, token string) (domain.Identity, time.Time, error) {
	if token != "good" {
		return domain.Identity{}, time.Time{}, errors.New("bad token")
	}
	return s.ident, time.Now().Add(time.Hour), nil
}

func (s *stubTokens) Watch(ctx context.Context, _ string) <-chan domain.Identity {
	if s.feed != nil {
		return s.feed
	}
	out := make(chan domain.Identity, 1)
	out <- s.ident
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out
}

var _ handler.TokenVerifier = (*stubTokens)(nil)

type mockProfiles struct {
	getByID func(ctx context.Context, id uuid.UUID) (domain.Owner, error)
}

func (m *mockProfiles) GetByID(ctx context.Context, id uuid.UUID) (domain.Owner, error) {
	if m.getByID == nil {
		return domain.Owner{}, domain.ErrNotFound
	}
	return m.getByID(ctx, id)
}

// ---- helpers ---------------------------------------------------------------

var testOwner = domain.Identity{OwnerID: uuid.MustParse("6f1c2a9e-3b7d-4c8e-9a21-0d5e7f3b4c11"), Name: "Ada"}

// newHTTPHandler wires a Server into its router the way main.go does.
// Nil dependencies get harmless defaults.
func newHTTPHandler(d handler.Deps) http.Handler {
	if d.Tokens == nil {
		d.Tokens = &stubTokens{ident: testOwner}
	}
	if d.Profiles == nil {
		d.Profiles = &mockProfiles{}
	}
	return handler.NewServer(d).Routes()
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

// do sends an authenticated request and returns the recorder.
func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, jsonBody(t, body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func itineraryFixture(dest string, cat domain.Category, created time.Time) domain.Itinerary {
	return domain.Itinerary{
		ID:          uuid.New(),
		OwnerID:     testOwner.OwnerID,
		Destination: dest,
		Date:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Activities:  "sightseeing",
		Category:    cat,
		CreatedAt:   created,
	}
}
