// Package feed turns owner-scoped change notifications into a push stream of
// full, ordered itinerary snapshots.
//
// Writers call Notifier.Notify after a mutation is acknowledged. Readers call
// Source.Subscribe, which re-reads the owner's whole collection on every
// notification and delivers it as one snapshot.
package feed

import (
	"context"

	"github.com/google/uuid"
)

// Notifier publishes and listens for "this owner's collection changed" signals.
// Signals carry no payload; listeners re-read the collection.
type Notifier interface {
	// Notify signals every listener of ownerID.
	Notify(ctx context.Context, ownerID uuid.UUID) error

	// Listen registers for ownerID's signals. The returned channel is closed
	// after stop is called or when the underlying transport goes away.
	// Bursts of signals may be coalesced into one.
	Listen(ctx context.Context, ownerID uuid.UUID) (signals <-chan struct{}, stop func(), err error)
}

// signal performs a non-blocking send on a buffered(1) channel so a slow
// listener sees at most one pending signal.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
