// Package mirror keeps a live, ordered copy of one owner's itineraries.
//
// A Synchronizer holds at most one open feed.Stream. Every snapshot the stream
// delivers replaces the mirror wholesale; snapshots from a stream that has
// since been closed are dropped by comparing subscription generations.
package mirror

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/itinerary-sync/backend/internal/domain"
	"github.com/pkordes/itinerary-sync/backend/internal/feed"
)

// State is the subscription lifecycle of a Synchronizer.
type State int

const (
	// StateIdle means no owner and no open subscription.
	StateIdle State = iota
	// StateConnecting means a subscription is open but has not delivered yet.
	StateConnecting
	// StateSynced means the mirror reflects the latest delivered snapshot.
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSynced:
		return "synced"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Source opens owner-scoped snapshot streams. *feed.Source satisfies it.
type Source interface {
	Subscribe(ctx context.Context, ownerID uuid.UUID) (feed.Stream, error)
}

// View is a consistent read of the synchronizer at one instant.
// Dropped is set when the last subscription was closed by the source rather
// than by Stop; the synchronizer is then idle until the next Start.
type View struct {
	State   State
	OwnerID uuid.UUID
	Items   []domain.Itinerary
	Dropped bool
}

// Synchronizer maintains the mirror for one owner at a time.
// It is safe for concurrent use.
type Synchronizer struct {
	source Source
	log    *slog.Logger

	// lifecycle serialises Start and Stop so a subscription is fully closed
	// before the next one is opened.
	lifecycle sync.Mutex

	mu     sync.Mutex
	state  State
	owner  uuid.UUID
	items  []domain.Itinerary
	gen     uint64
	stream  feed.Stream
	dropped bool

	changed chan struct{}
}

// New returns an idle Synchronizer.
func New(source Source, log *slog.Logger) *Synchronizer {
	return &Synchronizer{
		source:  source,
		log:     log,
		changed: make(chan struct{}, 1),
	}
}

// Start opens the subscription for ownerID. Calling Start again for the owner
// already being mirrored is a no-op; calling it for a different owner closes
// the previous subscription and discards its mirror before subscribing.
// ctx bounds the lifetime of the subscription, not just the call.
func (s *Synchronizer) Start(ctx context.Context, ownerID uuid.UUID) error {
	if ownerID == uuid.Nil {
		return fmt.Errorf("mirror.Synchronizer.Start: %w", domain.ErrUnauthenticated)
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.state != StateIdle && s.owner == ownerID {
		s.mu.Unlock()
		return nil
	}
	prev := s.stream
	s.stream = nil
	s.gen++
	gen := s.gen
	s.state = StateConnecting
	s.owner = ownerID
	s.items = nil
	s.dropped = false
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	s.notify()

	stream, err := s.source.Subscribe(ctx, ownerID)
	if err != nil {
		s.mu.Lock()
		s.reset()
		s.mu.Unlock()
		s.notify()
		return fmt.Errorf("mirror.Synchronizer.Start: %w", err)
	}

	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()

	s.log.Debug("mirror subscribed", "owner_id", ownerID)
	go s.pump(gen, stream)
	return nil
}

// Stop closes the subscription and discards the mirror. No snapshot is
// accepted after Stop returns. Stopping an idle Synchronizer is a no-op.
func (s *Synchronizer) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if s.state == StateIdle && s.stream == nil {
		s.mu.Unlock()
		return
	}
	prev := s.stream
	owner := s.owner
	s.reset()
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	s.log.Debug("mirror stopped", "owner_id", owner)
	s.notify()
}

// reset returns to idle and invalidates the current generation.
// Caller holds s.mu.
func (s *Synchronizer) reset() {
	s.gen++
	s.stream = nil
	s.state = StateIdle
	s.owner = uuid.Nil
	s.items = nil
	s.dropped = false
}

// pump forwards snapshots from one stream until it closes. A close that
// Stop or Start did not ask for drops the mirror to idle and marks it Dropped.
func (s *Synchronizer) pump(gen uint64, stream feed.Stream) {
	for items := range stream.Snapshots() {
		s.apply(gen, items)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	owner := s.owner
	s.reset()
	s.dropped = true
	s.mu.Unlock()

	s.log.Warn("mirror subscription ended", "owner_id", owner)
	s.notify()
}

// apply replaces the mirror with items if gen is still the live subscription.
// It reports whether the snapshot was accepted.
func (s *Synchronizer) apply(gen uint64, items []domain.Itinerary) bool {
	sorted := make([]domain.Itinerary, len(items))
	copy(sorted, items)
	slices.SortStableFunc(sorted, func(a, b domain.Itinerary) int {
		return cmp.Compare(b.CreatedAt.UnixNano(), a.CreatedAt.UnixNano())
	})

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.items = sorted
	s.state = StateSynced
	s.mu.Unlock()

	s.notify()
	return true
}

func (s *Synchronizer) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// Changed signals after every state or mirror change. Signals coalesce; read
// View after each one.
func (s *Synchronizer) Changed() <-chan struct{} {
	return s.changed
}

// View returns the current state, owner, and a copy of the mirror.
func (s *Synchronizer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{State: s.state, OwnerID: s.owner, Items: slices.Clone(s.items), Dropped: s.dropped}
}

// State returns the current lifecycle state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Owner returns the owner being mirrored, or uuid.Nil when idle.
func (s *Synchronizer) Owner() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Loading reports whether a subscription is open but has not delivered yet.
func (s *Synchronizer) Loading() bool {
	return s.State() == StateConnecting
}

// Items returns a copy of the mirror, newest first. Nil when idle.
func (s *Synchronizer) Items() []domain.Itinerary {
	return s.View().Items
}
