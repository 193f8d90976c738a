package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/pkordes/itinerary-sync/backend/internal/auth"
	"github.com/pkordes/itinerary-sync/backend/internal/domain"
	"github.com/pkordes/itinerary-sync/backend/internal/repo"
)

// TokenIssuer signs session tokens. *auth.TokenManager satisfies it.
type TokenIssuer interface {
	Issue(owner domain.Owner) (string, time.Time, error)
}

// AuthResult is what signup and login hand back to the caller.
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	Owner     domain.Owner
}

// AuthService implements signup and login against the owners table.
type AuthService struct {
	owners repo.OwnerRepo
	tokens TokenIssuer
}

// NewAuthService constructs an AuthService.
func NewAuthService(owners repo.OwnerRepo, tokens TokenIssuer) *AuthService {
	return &AuthService{owners: owners, tokens: tokens}
}

// Signup creates the owner profile and returns a session for it.
// Returns domain.ErrValidation for missing fields, a malformed email or a short
// password, and domain.ErrEmailTaken if the email is registered.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return AuthResult{}, fmt.Errorf("%w: all fields are required", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return AuthResult{}, fmt.Errorf("%w: email is invalid", domain.ErrValidation)
	}
	if err := auth.ValidatePassword(password); err != nil {
		return AuthResult{}, fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}

	hash, salt, err := auth.DerivePassword(password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("service.AuthService.Signup: %w", err)
	}
	owner, err := s.owners.Create(ctx, domain.Owner{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		PasswordSalt: salt,
	})
	if err != nil {
		return AuthResult{}, fmt.Errorf("service.AuthService.Signup: %w", err)
	}
	return s.session(owner)
}

// Login checks credentials and returns a session.
// Unknown email and wrong password both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	owner, err := s.owners.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return AuthResult{}, domain.ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("service.AuthService.Login: %w", err)
	}
	if !auth.VerifyPassword(password, owner.PasswordSalt, owner.PasswordHash) {
		return AuthResult{}, domain.ErrInvalidCredentials
	}
	return s.session(owner)
}

func (s *AuthService) session(owner domain.Owner) (AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(owner)
	if err != nil {
		return AuthResult{}, fmt.Errorf("service.AuthService: %w", err)
	}
	owner.PasswordHash, owner.PasswordSalt = nil, nil
	return AuthResult{Token: token, ExpiresAt: expiresAt, Owner: owner}, nil
}
