package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("order: not found")
	ErrConflict      = errors.New("order: already exists")
	ErrInvalidName   = errors.New("order: name is required")
	ErrInvalidAmount = errors.New("order: amount must be greater than zero")
)

type Status string

const (
	StatusUnpaid Status = "Unpaid"
	StatusPaid   Status = "Paid"
)

// Order is a single payment request tracked from creation to confirmed
// settlement. ID doubles as the correlation token embedded in QR transfers,
// verification lookups, and webhook payloads.
type Order struct {
	ID        string
	Name      string
	Amount    int64
	Status    Status
	CreatedAt time.Time
	PaidAt    time.Time
}

func New(id, name string, amount int64) (*Order, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	return &Order{
		ID:        id,
		Name:      name,
		Amount:    amount,
		Status:    StatusUnpaid,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// MarkPaid flips the order to Paid and reports whether this call performed
// the transition. Paid is terminal; re-signals return false and change
// nothing. Callers must hold whatever lock serializes access to the order.
func (o *Order) MarkPaid() bool {
	if o.Status == StatusPaid {
		return false
	}
	o.Status = StatusPaid
	o.PaidAt = time.Now().UTC()
	return true
}

func (o *Order) Paid() bool { return o.Status == StatusPaid }

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}
