// Package realtime pushes order and menu events to connected clients.
package realtime

import (
	"sync"

	"comanda/internal/events"
	"comanda/internal/models"

	"github.com/sirupsen/logrus"
)

// DefaultBuffer is the number of events queued per subscriber before it is
// considered too slow and dropped.
const DefaultBuffer = 64

// Filter selects the events a subscriber receives. A nil Filter accepts
// everything.
type Filter func(events.Event) bool

// StatusFilter accepts only order events whose order has status.
func StatusFilter(status models.OrderStatus) Filter {
	return func(ev events.Event) bool {
		return ev.Order != nil && ev.Order.Status == status
	}
}

// Subscription is one consumer of the hub. C is closed when the
// subscription ends, either by Unsubscribe or because the consumer fell
// behind.
type Subscription struct {
	C <-chan events.Event

	id     uint64
	ch     chan events.Event
	filter Filter
}

// Hub fans events out to subscribers. Publish never blocks.
type Hub struct {
	mu       sync.Mutex
	subs     map[uint64]*Subscription
	nextID   uint64
	buffer   int
	closed   bool
	onChange func(int)
	log      logrus.FieldLogger
}

// HubOption customizes a Hub.
type HubOption func(*Hub)

// WithBuffer sets the per-subscriber queue length.
func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithSubscriberGauge calls fn with the subscriber count whenever it changes.
func WithSubscriberGauge(fn func(int)) HubOption {
	return func(h *Hub) { h.onChange = fn }
}

// NewHub creates an empty hub.
func NewHub(logger logrus.FieldLogger, opts ...HubOption) *Hub {
	h := &Hub{
		subs:   make(map[uint64]*Subscription),
		buffer: DefaultBuffer,
		log:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a consumer. Subscribing to a closed hub returns a
// subscription whose channel is already closed.
func (h *Hub) Subscribe(filter Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan events.Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, filter: filter}
	if h.closed {
		close(ch)
		return sub
	}

	h.nextID++
	sub.id = h.nextID
	h.subs[sub.id] = sub
	h.changed()
	return sub
}

// Unsubscribe removes sub and closes its channel. It is safe to call more
// than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(sub)
}

// Publish delivers ev to every matching subscriber. A subscriber whose
// queue is full is removed.
func (h *Hub) Publish(ev events.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.log.WithField("subscriber", sub.id).Warn("subscriber too slow, dropping")
			h.remove(sub)
		}
	}
}

// Count returns the number of live subscriptions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Later publishes are discarded.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, sub := range h.subs {
		h.remove(sub)
	}
}

func (h *Hub) remove(sub *Subscription) {
	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	close(sub.ch)
	h.changed()
}

func (h *Hub) changed() {
	if h.onChange != nil {
		h.onChange(len(h.subs))
	}
}
