package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/itinerary-sync/backend/internal/middleware"
	"github.com/pkordes/itinerary-sync/backend/internal/service"
	"github.com/pkordes/itinerary-sync/backend/internal/session"
)

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OwnerResponse is the public view of an owner profile.
type OwnerResponse struct {
	Id    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Owner     OwnerResponse `json:"owner"`
}

// Signup handles POST /auth/signup.
func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.auth.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err, "owner not found")
		return
	}
	writeJSON(w, http.StatusCreated, authToResponse(result))
}

// Login handles POST /auth/login.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err, "owner not found")
		return
	}
	writeJSON(w, http.StatusOK, authToResponse(result))
}

// GetMe handles GET /me. The name is resolved the same way a live session
// resolves it: profile name, then the token's name, then the default.
func (s *Server) GetMe(w http.ResponseWriter, r *http.Request) {
	ident, _ := middleware.IdentityFrom(r.Context())

	mgr := session.NewManager(s.profiles, nil, s.log)
	if err := mgr.Apply(r.Context(), ident); err != nil {
		s.writeServiceError(w, r, err, "owner not found")
		return
	}
	cur := mgr.Current()
	writeJSON(w, http.StatusOK, OwnerResponse{Id: cur.OwnerID, Name: cur.DisplayName})
}

// Logout handles POST /auth/logout. The presented token is revoked, which
// rejects it from then on and ends every stream opened with it.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.TokenFrom(r.Context())
	if err := s.tokens.Revoke(r.Context(), token); err != nil {
		s.writeServiceError(w, r, err, "owner not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func authToResponse(res service.AuthResult) AuthResponse {
	return AuthResponse{
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.UTC(),
		Owner: OwnerResponse{
			Id:    res.Owner.ID,
			Name:  res.Owner.Name,
			Email: res.Owner.Email,
		},
	}
}
