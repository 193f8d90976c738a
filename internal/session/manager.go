// Package session tracks who the current owner is and keeps owner-scoped
// resources in step with it.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/itinerary-sync/backend/internal/domain"
)

// DefaultDisplayName is shown when neither the profile nor the identity
// provider supplies a name.
const DefaultDisplayName = "User"

// ProfileReader loads an owner profile. repo.OwnerRepo satisfies it.
type ProfileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Owner, error)
}

// Scoped is a resource bound to one owner at a time, such as a
// mirror.Synchronizer.
type Scoped interface {
	Start(ctx context.Context, ownerID uuid.UUID) error
	Stop()
}

// Session is the current value exposed by a Manager. The zero Session is
// unauthenticated. DisplayName is empty until resolved, and stays empty if
// resolution failed.
type Session struct {
	OwnerID     uuid.UUID
	DisplayName string
}

// Authenticated reports whether the session has an owner.
func (s Session) Authenticated() bool {
	return s.OwnerID != uuid.Nil
}

// Manager consumes an identity feed and exposes the current Session.
// When the owner goes away or changes, the scoped resource is stopped before
// anything is started for the new owner.
type Manager struct {
	profiles ProfileReader
	scoped   Scoped
	log      *slog.Logger

	mu      sync.RWMutex
	current Session
	err     error
	changed chan struct{}
}

// NewManager returns an unauthenticated Manager. scoped may be nil when there
// is nothing owner-scoped to manage (e.g. a one-shot profile lookup).
func NewManager(profiles ProfileReader, scoped Scoped, log *slog.Logger) *Manager {
	return &Manager{
		profiles: profiles,
		scoped:   scoped,
		log:      log,
		changed:  make(chan struct{}, 1),
	}
}

// Current returns the current session.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Changed signals after every session change. Signals coalesce.
func (m *Manager) Changed() <-chan struct{} {
	return m.changed
}

// Err returns the error of the last transition, or nil if it succeeded. A
// session whose scoped resource failed to start is reverted to
// unauthenticated and Err reports why.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Run applies identities from feed until it closes or ctx is done, then
// tears the session down. It returns ctx.Err() on cancellation and nil when
// the feed closes.
func (m *Manager) Run(ctx context.Context, feed <-chan domain.Identity) error {
	defer m.Apply(context.WithoutCancel(ctx), domain.Identity{})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ident, ok := <-feed:
			if !ok {
				return nil
			}
			if err := m.Apply(ctx, ident); err != nil {
				m.log.Warn("session transition failed", "owner_id", ident.OwnerID, "error", err)
			}
		}
	}
}

// Apply moves the session to ident. An unauthenticated ident stops the scoped
// resource and clears the session. A new owner stops the old scope, starts a
// new one, and resolves the display name. Only the scoped Start error is
// returned; the session is then cleared so the same identity retries Start.
func (m *Manager) Apply(ctx context.Context, ident domain.Identity) error {
	prev := m.Current()

	if !ident.Authenticated() {
		if m.scoped != nil {
			m.scoped.Stop()
		}
		m.setErr(nil)
		m.set(Session{})
		if prev.Authenticated() {
			m.log.Info("session ended", "owner_id", prev.OwnerID)
		}
		return nil
	}

	if prev.OwnerID != ident.OwnerID {
		if m.scoped != nil {
			m.scoped.Stop()
		}
		m.set(Session{OwnerID: ident.OwnerID})
		m.log.Info("session started", "owner_id", ident.OwnerID)

		if m.scoped != nil {
			if err := m.scoped.Start(ctx, ident.OwnerID); err != nil {
				m.setErr(err)
				m.set(Session{})
				return err
			}
		}
	}
	m.setErr(nil)

	name := m.resolveName(ctx, ident)
	m.mu.Lock()
	if m.current.OwnerID == ident.OwnerID {
		m.current.DisplayName = name
	}
	m.mu.Unlock()
	m.notify()
	return nil
}

// resolveName picks the profile name, then the provider name, then the
// default. A lookup error other than not-found yields "" with no retry.
func (m *Manager) resolveName(ctx context.Context, ident domain.Identity) string {
	profile, err := m.profiles.GetByID(ctx, ident.OwnerID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		m.log.Debug("display name unresolved", "owner_id", ident.OwnerID, "error", err)
		return ""
	}
	if err == nil {
		if name := strings.TrimSpace(profile.Name); name != "" {
			return name
		}
	}
	if name := strings.TrimSpace(ident.Name); name != "" {
		return name
	}
	return DefaultDisplayName
}

func (m *Manager) set(s Session) {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()
	m.notify()
}

func (m *Manager) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *Manager) notify() {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}
