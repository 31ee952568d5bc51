package notify

import (
	"sync"

	"github.com/paylinkhq/qrorder/internal/observability"
)

// Notification is the payload delivered to connected observers of an order.
type Notification struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Source  string `json:"source"`
}

// Hub fans paid notifications out to observers subscribed to a specific
// order. Broadcast never blocks: an observer whose buffer is full misses
// the message. Delivery is best-effort; status can always be re-read from
// the registry.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Notification]struct{}
	log  observability.Logger
}

const subscriberBuffer = 4

func NewHub(logger observability.Logger) *Hub {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Hub{
		subs: make(map[string]map[chan Notification]struct{}),
		log:  logger.With(observability.F("component", "notify_hub")),
	}
}

// Subscribe registers an observer for one order. The returned cancel func
// must be called when the observer disconnects; it closes the channel.
func (h *Hub) Subscribe(orderID string) (<-chan Notification, func()) {
	ch := make(chan Notification, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[orderID]
	if !ok {
		set = make(map[chan Notification]struct{})
		h.subs[orderID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[orderID]; ok {
			if _, present := set[ch]; present {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, orderID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Broadcast delivers the notification to every observer of the order.
func (h *Hub) Broadcast(n Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subs[n.OrderID] {
		select {
		case ch <- n:
			delivered++
		default:
			// observer too slow; drop rather than block the fan-out
		}
	}

	h.log.Debug("notification_broadcast",
		observability.F("order_id", n.OrderID),
		observability.F("delivered", delivered),
	)
}
