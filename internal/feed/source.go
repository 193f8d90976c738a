package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pkordes/itinerary-sync/backend/internal/domain"
)

// Lister reads an owner's full collection, newest first.
// repo.ItineraryRepo satisfies it.
type Lister interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Itinerary, error)
}

// Stream is one open subscription. Snapshots is closed once the stream ends;
// Close releases the subscription and is safe to call more than once.
type Stream interface {
	Snapshots() <-chan []domain.Itinerary
	Close()
}

// Source opens snapshot streams over a Lister and a Notifier.
type Source struct {
	lister   Lister
	notifier Notifier
	log      *slog.Logger
}

// NewSource constructs a Source.
func NewSource(lister Lister, notifier Notifier, log *slog.Logger) *Source {
	return &Source{lister: lister, notifier: notifier, log: log}
}

// subscription is the Stream returned by Source.Subscribe.
type subscription struct {
	ch     chan []domain.Itinerary
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *subscription) Snapshots() <-chan []domain.Itinerary { return s.ch }

// Close cancels the reader goroutine and waits for it to exit, so no snapshot
// is produced after Close returns.
func (s *subscription) Close() {
	s.cancel()
	<-s.done
}

// Subscribe opens a stream for ownerID. The first snapshot is the collection
// as of subscription time; each later one follows a change signal. A reader
// that falls behind only ever sees the latest snapshot.
//
// The stream ends when ctx is cancelled, Close is called, or the notifier
// transport drops. There is no reconnect.
func (s *Source) Subscribe(ctx context.Context, ownerID uuid.UUID) (Stream, error) {
	ctx, cancel := context.WithCancel(ctx)

	// Listen before the initial read so a write landing in between still
	// produces a signal.
	signals, stop, err := s.notifier.Listen(ctx, ownerID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("feed.Source.Subscribe: %w", err)
	}

	sub := &subscription{
		ch:     make(chan []domain.Itinerary, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx, ownerID, signals, stop, sub)
	return sub, nil
}

func (s *Source) run(ctx context.Context, ownerID uuid.UUID, signals <-chan struct{}, stop func(), sub *subscription) {
	defer close(sub.done)
	defer close(sub.ch)
	defer stop()

	s.push(ctx, ownerID, sub.ch)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signals:
			if !ok {
				s.log.Warn("change feed closed", "owner_id", ownerID)
				return
			}
			s.push(ctx, ownerID, sub.ch)
		}
	}
}

// push reads the collection and replaces any undelivered snapshot with it.
// run is the only sender on ch, so after the drain the send cannot block.
func (s *Source) push(ctx context.Context, ownerID uuid.UUID, ch chan []domain.Itinerary) {
	items, err := s.lister.ListByOwner(ctx, ownerID)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("snapshot read failed", "owner_id", ownerID, "error", err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}
	if items == nil {
		items = []domain.Itinerary{}
	}

	select {
	case <-ch:
	default:
	}
	ch <- items
}
