package realtime

import (
	"context"
	"sync"

	"github.com/BASTARDsol/Mafia2Forum/internal/models"
)

const subscriberBuffer = 16

// Hub keeps process-local subscribers grouped by realtime group.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[chan models.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{groups: make(map[string]map[chan models.Event]struct{})}
}

// Subscribe registers a subscriber on group. The returned function removes it
// and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(group string) (<-chan models.Event, func()) {
	ch := make(chan models.Event, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.groups[group]
	if !ok {
		set = make(map[chan models.Event]struct{})
		h.groups[group] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(set, ch)
			if cur, ok := h.groups[group]; ok && len(cur) == 0 {
				delete(h.groups, group)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsubscribe
}

// Publish delivers ev to every local subscriber of group. Slow subscribers
// miss the event instead of blocking the producer. It never fails.
func (h *Hub) Publish(_ context.Context, group string, ev models.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.groups[group] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (h *Hub) SubscriberCount(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
