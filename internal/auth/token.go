package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pkordes/itinerary-sync/backend/internal/domain"
	"github.com/pkordes/itinerary-sync/backend/internal/feed"
)

// Claims is the JWT payload of a session token.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// RevocationStore is the denylist of logged-out tokens, keyed by jti.
// repo.RevocationRepo satisfies it.
type RevocationStore interface {
	Revoke(ctx context.Context, jti uuid.UUID, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti uuid.UUID) (bool, error)
}

// TokenManager issues and verifies HS256 session tokens and revokes them on
// logout.
type TokenManager struct {
	secret  []byte
	ttl     time.Duration
	revoked RevocationStore
	signals feed.Notifier
}

// Option configures a TokenManager.
type Option func(*TokenManager)

// WithRevocation stores revocations in store and announces them on signals,
// keyed by jti. Without it revocations live in memory and only reach
// watchers in the same process.
func WithRevocation(store RevocationStore, signals feed.Notifier) Option {
	return func(m *TokenManager) {
		m.revoked = store
		m.signals = signals
	}
}

// NewTokenManager returns a TokenManager signing with secret; tokens expire after ttl.
func NewTokenManager(secret string, ttl time.Duration, opts ...Option) *TokenManager {
	m := &TokenManager{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: newMemoryRevocations(),
		signals: feed.NewHub(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue signs a token for owner. The owner's display name travels in the
// token as the provider-supplied name.
func (m *TokenManager) Issue(owner domain.Owner) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)
	claims := Claims{
		Name: owner.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   owner.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth.TokenManager.Issue: %w", err)
	}
	return signed, expiresAt, nil
}

// verified is a token that passed signature, expiry and claim checks.
type verified struct {
	ident     domain.Identity
	jti       uuid.UUID
	expiresAt time.Time
}

// Parse verifies token and returns the identity it carries plus its expiry.
// A revoked token is rejected. Every failure wraps domain.ErrUnauthenticated.
func (m *TokenManager) Parse(ctx context.Context, token string) (domain.Identity, time.Time, error) {
	v, err := m.verify(token)
	if err != nil {
		return domain.Identity{}, time.Time{}, err
	}
	if err := m.checkRevoked(ctx, v.jti); err != nil {
		return domain.Identity{}, time.Time{}, err
	}
	return v.ident, v.expiresAt, nil
}

// Revoke logs token out: it is rejected by Parse from now on and every Watch
// on it emits the unauthenticated identity.
func (m *TokenManager) Revoke(ctx context.Context, token string) error {
	v, err := m.verify(token)
	if err != nil {
		return fmt.Errorf("auth.TokenManager.Revoke: %w", err)
	}
	if err := m.revoked.Revoke(ctx, v.jti, v.expiresAt); err != nil {
		return fmt.Errorf("auth.TokenManager.Revoke: %w", err)
	}
	if err := m.signals.Notify(ctx, v.jti); err != nil {
		return fmt.Errorf("auth.TokenManager.Revoke: %w", err)
	}
	return nil
}

func (m *TokenManager) verify(token string) (verified, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return verified{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return verified{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)
	}

	ownerID, err := uuid.Parse(claims.Subject)
	if err != nil || ownerID == uuid.Nil {
		return verified{}, fmt.Errorf("%w: invalid subject", domain.ErrUnauthenticated)
	}
	jti, err := uuid.Parse(claims.ID)
	if err != nil {
		return verified{}, fmt.Errorf("%w: invalid token id", domain.ErrUnauthenticated)
	}
	return verified{
		ident:     domain.Identity{OwnerID: ownerID, Name: claims.Name},
		jti:       jti,
		expiresAt: claims.ExpiresAt.Time,
	}, nil
}

// checkRevoked fails closed: a store error rejects the token.
func (m *TokenManager) checkRevoked(ctx context.Context, jti uuid.UUID) error {
	revoked, err := m.revoked.IsRevoked(ctx, jti)
	if err != nil {
		return fmt.Errorf("%w: revocation check: %v", domain.ErrUnauthenticated, err)
	}
	if revoked {
		return fmt.Errorf("%w: token revoked", domain.ErrUnauthenticated)
	}
	return nil
}

// Watch turns a token into an identity feed: the identity it carries, then
// the unauthenticated identity once it expires or is revoked. An invalid or
// already revoked token yields only the unauthenticated identity. The channel
// closes after the last value or when ctx is done.
func (m *TokenManager) Watch(ctx context.Context, token string) <-chan domain.Identity {
	out := make(chan domain.Identity, 1)

	go func() {
		defer close(out)
		send := func(id domain.Identity) bool {
			select {
			case out <- id:
				return true
			case <-ctx.Done():
				return false
			}
		}

		v, err := m.verify(token)
		if err != nil {
			send(domain.Identity{})
			return
		}

		// Listen before the denylist check so a Revoke racing with Watch is
		// seen by one or the other.
		revoked, stop, err := m.signals.Listen(ctx, v.jti)
		if err != nil {
			send(domain.Identity{})
			return
		}
		defer stop()
		if m.checkRevoked(ctx, v.jti) != nil {
			send(domain.Identity{})
			return
		}
		if !send(v.ident) {
			return
		}

		timer := time.NewTimer(time.Until(v.expiresAt))
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			send(domain.Identity{})
		case <-revoked:
			// A closed channel means the transport went away; the session
			// can no longer learn of a logout, so it ends too.
			send(domain.Identity{})
		}
	}()

	return out
}

// memoryRevocations is the in-process RevocationStore.
type memoryRevocations struct {
	mu      sync.Mutex
	entries map[uuid.UUID]time.Time
}

func newMemoryRevocations() *memoryRevocations {
	return &memoryRevocations{entries: make(map[uuid.UUID]time.Time)}
}

func (r *memoryRevocations) Revoke(_ context.Context, jti uuid.UUID, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for id, exp := range r.entries {
		if !exp.After(now) {
			delete(r.entries, id)
		}
	}
	r.entries[jti] = expiresAt
	return nil
}

func (r *memoryRevocations) IsRevoked(_ context.Context, jti uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.entries[jti]
	return ok && exp.After(time.Now()), nil
}
