package http

import (
	"context"
	"sync"

	"live-quiz-service/internal/app"
)

var _ app.Notifier = (*Hub)(nil)

const subscriberBuffer = 16

// Hub fans session events out to the WebSocket connections watching each session.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string]map[chan app.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]map[chan app.Event]struct{})}
}

// Subscribe returns a channel of events for sessionID and a cancel func that closes it.
func (h *Hub) Subscribe(sessionID string) (<-chan app.Event, func()) {
	ch := make(chan app.Event, subscriberBuffer)

	h.mu.Lock()
	subs, ok := h.subscribers[sessionID]
	if !ok {
		subs = make(map[chan app.Event]struct{})
		h.subscribers[sessionID] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs := h.subscribers[sessionID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.subscribers, sessionID)
		}
	}
	return ch, cancel
}

// Notify never blocks: a subscriber whose buffer is full loses its oldest pending event.
func (h *Hub) Notify(_ context.Context, event app.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[event.SessionID] {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
	return nil
}

// Subscribers counts live subscriptions for a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[sessionID])
}
