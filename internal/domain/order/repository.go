package order

import "context"

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]*Order, error)

	// MarkPaid atomically flips the order to Paid. The check-and-flip must
	// be a single critical section so that racing signals observe exactly
	// one transitioned=true result per order.
	MarkPaid(ctx context.Context, id string) (order *Order, transitioned bool, err error)
}
