package canvas

import "sync"

// Hub fans store change notifications out to subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan uint64]struct{}
}

// NewHub creates a new hub.
func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan uint64]struct{})}
}

// Subscribe registers a listener. The returned cancel func removes and
// closes the channel.
func (h *Hub) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Broadcast delivers version to every subscriber, replacing any value the
// subscriber has not consumed yet.
func (h *Hub) Broadcast(version uint64) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- version:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- version:
		default:
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
