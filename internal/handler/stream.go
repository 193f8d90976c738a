package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/itinerary-sync/backend/internal/domain"
	"github.com/pkordes/itinerary-sync/backend/internal/filter"
	"github.com/pkordes/itinerary-sync/backend/internal/middleware"
	"github.com/pkordes/itinerary-sync/backend/internal/mirror"
	"github.com/pkordes/itinerary-sync/backend/internal/session"
)

// SnapshotEvent is the data of an "event: snapshot" message.
type SnapshotEvent struct {
	State       string      `json:"state"`
	OwnerId     uuid.UUID   `json:"owner_id"`
	DisplayName string      `json:"display_name"`
	Items       []Itinerary `json:"items"`
}

// SessionEvent is the data of an "event: session" message, sent once when
// the session ends (token expiry or logout). The stream closes right after it.
type SessionEvent struct {
	Authenticated bool `json:"authenticated"`
}

// Error codes carried by "event: error" messages. The stream closes right
// after an error event.
const (
	streamSubscriptionFailed = "subscription_failed"
	streamSubscriptionLost   = "subscription_lost"
)

// StreamItineraries handles GET /itineraries/stream.
// Each connection runs its own session: the token's identity feed drives a
// session.Manager, which starts a mirror.Synchronizer for the owner. Every
// mirror change is filtered with ?q= and ?category= and written as a
// snapshot event. When the token expires or is revoked a session event is
// written and the stream ends. If the subscription cannot be opened, or the
// source closes it, an error event is written instead.
func (s *Server) StreamItineraries(w http.ResponseWriter, r *http.Request) {
	search, cat, ok := filterParams(w, r)
	if !ok {
		return
	}
	token, _ := middleware.TokenFrom(r.Context())

	rc := http.NewResponseController(w)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	syncer := mirror.New(s.source, s.log)
	mgr := session.NewManager(s.profiles, syncer, s.log)
	var authed atomic.Bool
	idents := relayIdentities(ctx, s.tokens.Watch(ctx, token), &authed)
	done := make(chan error, 1)
	go func() { done <- mgr.Run(ctx, idents) }()
	defer func() {
		cancel()
		<-done
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.log.WarnContext(ctx, "stream flush unsupported", "error", err)
		return
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	var last *SnapshotEvent
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if rc.Flush() != nil {
				return
			}

		case <-mgr.Changed():
			cur := mgr.Current()
			if cur.Authenticated() {
				if last != nil && last.DisplayName != cur.DisplayName {
					last = s.writeSnapshot(w, rc, last, syncer.View(), cur, search, cat, true)
				}
				continue
			}
			if err := mgr.Err(); err != nil {
				s.log.WarnContext(ctx, "stream subscription failed", "error", err)
				s.writeEvent(w, rc, "error", errorBody(streamSubscriptionFailed, "could not subscribe to itineraries"))
				return
			}
			if authed.Load() {
				s.writeEvent(w, rc, "session", SessionEvent{Authenticated: false})
				return
			}

		case <-syncer.Changed():
			view := syncer.View()
			if view.Dropped {
				s.writeEvent(w, rc, "error", errorBody(streamSubscriptionLost, "itinerary subscription closed"))
				return
			}
			if view.State == mirror.StateIdle {
				continue
			}
			last = s.writeSnapshot(w, rc, last, view, mgr.Current(), search, cat, false)

		case err := <-done:
			done <- err
			if authed.Load() {
				s.writeEvent(w, rc, "session", SessionEvent{Authenticated: false})
			}
			return
		}
	}
}

// relayIdentities forwards in to the returned channel, marking authed before
// any authenticated identity is handed on. Session change signals coalesce,
// so a login followed at once by a logout may never be observed as a session.
func relayIdentities(ctx context.Context, in <-chan domain.Identity, authed *atomic.Bool) <-chan domain.Identity {
	out := make(chan domain.Identity)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ident, ok := <-in:
				if !ok {
					return
				}
				if ident.Authenticated() {
					authed.Store(true)
				}
				select {
				case out <- ident:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// writeSnapshot writes the filtered view unless it matches the last event
// written. force skips the comparison. It returns the event now current.
func (s *Server) writeSnapshot(w http.ResponseWriter, rc *http.ResponseController, last *SnapshotEvent,
	view mirror.View, cur session.Session, search string, cat filter.Category, force bool,
) *SnapshotEvent {
	ev := &SnapshotEvent{
		State:       view.State.String(),
		OwnerId:     view.OwnerID,
		DisplayName: cur.DisplayName,
		Items:       itinerariesToResponse(filter.Apply(view.Items, search, cat)),
	}
	if !force && last != nil && sameSnapshot(*last, *ev) {
		return last
	}
	s.writeEvent(w, rc, "snapshot", ev)
	return ev
}

func (s *Server) writeEvent(w http.ResponseWriter, rc *http.ResponseController, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("stream event encode failed", "event", event, "error", err)
		return
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return
	}
	_ = rc.Flush()
}

func sameSnapshot(a, b SnapshotEvent) bool {
	return a.State == b.State && a.OwnerId == b.OwnerId && a.DisplayName == b.DisplayName &&
		slices.EqualFunc(a.Items, b.Items, func(x, y Itinerary) bool {
			return x.Id == y.Id && x.Favorite == y.Favorite
		})
}
