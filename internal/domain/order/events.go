package order

import "time"

// OrderCreatedEvent is emitted when a new payment request is registered.
type OrderCreatedEvent struct {
	OrderID    string
	Name       string
	Amount     int64
	OccurredAt time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:    o.ID,
		Name:       o.Name,
		Amount:     o.Amount,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderPaidEvent is emitted exactly once per order, on the genuine
// Unpaid -> Paid transition, whichever signal source performed it.
type OrderPaidEvent struct {
	OrderID    string
	Amount     int64
	Source     string // "poll" or "webhook"
	OccurredAt time.Time
}

func (OrderPaidEvent) EventName() string { return "order.paid" }

func NewOrderPaidEvent(o *Order, source string) OrderPaidEvent {
	return OrderPaidEvent{
		OrderID:    o.ID,
		Amount:     o.Amount,
		Source:     source,
		OccurredAt: time.Now().UTC(),
	}
}
