package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/paylinkhq/qrorder/internal/domain/order"
)

// OrderRepository is the in-memory order registry. It is the single source
// of truth for payment status; all mutation of a given order is serialized
// behind one mutex, and reads hand out clones so callers can never mutate
// registry state from outside.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}

	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	return order.Clone(), nil
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		out = append(out, order.Clone())
	}
	return out, nil
}

// MarkPaid performs the check-and-flip as a single critical section. Under
// racing poll and webhook signals exactly one caller observes
// transitioned=true; every other caller gets the already-Paid record and
// transitioned=false.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string) (*domain.Order, bool, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, false, domain.ErrNotFound
	}

	transitioned := order.MarkPaid()
	return order.Clone(), transitioned, nil
}
