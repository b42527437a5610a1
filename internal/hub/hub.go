// Package hub is the in-process, mutex-protected subscriber set the
// scheduler's broadcast loop publishes snapshots through. Transport
// (WebSocket framing, etc.) lives one layer up in internal/fanoutws.
package hub

import "sync"

// Subscriber receives broadcast payloads on a buffered channel. A full
// channel means a slow subscriber: the broadcast drops the message for
// that subscriber rather than blocking the publisher.
type Subscriber struct {
	ch   chan any
	done chan struct{}
}

func (s *Subscriber) C() <-chan any      { return s.ch }
func (s *Subscriber) Done() <-chan struct{} { return s.done }

const subscriberBuf = 32

// Hub is a mutex-protected set of active subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
	drop func()
}

func New() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

// OnDrop registers a callback invoked whenever a broadcast is dropped for a
// slow subscriber, letting the caller wire it into telemetry without this
// package importing telemetry directly.
func (h *Hub) OnDrop(fn func()) { h.drop = fn }

// Subscribe registers a new subscriber and returns it. Callers must call
// Unsubscribe when done (typically deferred from their read loop).
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{ch: make(chan any, subscriberBuf), done: make(chan struct{})}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unsubscribe removes a subscriber and closes its done channel.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.done)
	}
	h.mu.Unlock()
}

// Broadcast sends payload to every subscriber, non-blocking: a subscriber
// whose channel is full has the message dropped rather than stalling the
// publisher.
func (h *Hub) Broadcast(payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		select {
		case s.ch <- payload:
		default:
			if h.drop != nil {
				h.drop()
			}
		}
	}
}

// SubscriberCount reports the current number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
