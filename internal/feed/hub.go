package feed

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Hub is an in-process Notifier. It is used when no Redis URL is configured
// and in tests; it only reaches listeners inside the same process.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[uuid.UUID]map[int]chan struct{}
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]map[int]chan struct{})}
}

// Notify fans the signal out to every listener of ownerID. It never blocks.
func (h *Hub) Notify(_ context.Context, ownerID uuid.UUID) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[ownerID] {
		signal(ch)
	}
	return nil
}

// Listen registers a listener for ownerID.
func (h *Hub) Listen(_ context.Context, ownerID uuid.UUID) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = make(map[int]chan struct{})
	}
	h.subs[ownerID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[ownerID], id)
			if len(h.subs[ownerID]) == 0 {
				delete(h.subs, ownerID)
			}
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, stop, nil
}

// Listeners reports how many listeners are registered for ownerID.
func (h *Hub) Listeners(ownerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[ownerID])
}
