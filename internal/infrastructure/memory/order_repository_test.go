package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	domain "github.com/paylinkhq/qrorder/internal/domain/order"
)

func mustOrder(t *testing.T, id string) *domain.Order {
	t.Helper()
	o, err := domain.New(id, "A", 100000)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return o
}

func TestOrderRepository_Insert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("inserts and reads back a clone", func(t *testing.T) {
		repo := NewOrderRepository()
		o := mustOrder(t, "ORDER1")

		if err := repo.Insert(ctx, o); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, err := repo.Get(ctx, "ORDER1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got.MarkPaid()

		again, _ := repo.Get(ctx, "ORDER1")
		if again.Paid() {
			t.Fatalf("mutating a returned order must not touch registry state")
		}
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		repo := NewOrderRepository()
		if err := repo.Insert(ctx, mustOrder(t, "ORDER1")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := repo.Insert(ctx, mustOrder(t, "ORDER1")); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("missing id rejected", func(t *testing.T) {
		repo := NewOrderRepository()
		if err := repo.Insert(ctx, &domain.Order{}); err == nil {
			t.Fatalf("expected error for empty id")
		}
	})
}

func TestOrderRepository_Get_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewOrderRepository()
	if _, err := repo.Get(context.Background(), "ORDER_DOES_NOT_EXIST"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOrderRepository_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := NewOrderRepository()
	for _, id := range []string{"ORDER1", "ORDER2", "ORDER3"} {
		if err := repo.Insert(ctx, mustOrder(t, id)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}

	orders, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
}

func TestOrderRepository_MarkPaid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("first call transitions, later calls do not", func(t *testing.T) {
		repo := NewOrderRepository()
		if err := repo.Insert(ctx, mustOrder(t, "ORDER1")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, transitioned, err := repo.MarkPaid(ctx, "ORDER1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !transitioned {
			t.Fatalf("expected transitioned=true on first call")
		}
		if got.Status != domain.StatusPaid {
			t.Fatalf("expected status Paid, got %s", got.Status)
		}

		_, transitioned, err = repo.MarkPaid(ctx, "ORDER1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if transitioned {
			t.Fatalf("expected transitioned=false on re-signal")
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		repo := NewOrderRepository()
		if _, _, err := repo.MarkPaid(ctx, "ORDER_DOES_NOT_EXIST"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("racing signals observe exactly one transition", func(t *testing.T) {
		repo := NewOrderRepository()
		if err := repo.Insert(ctx, mustOrder(t, "ORDER1")); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		const racers = 64
		var wg sync.WaitGroup
		var mu sync.Mutex
		transitions := 0

		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, transitioned, err := repo.MarkPaid(ctx, "ORDER1")
				if err != nil {
					t.Errorf("expected no error, got %v", err)
					return
				}
				if transitioned {
					mu.Lock()
					transitions++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if transitions != 1 {
			t.Fatalf("expected exactly 1 transition, got %d", transitions)
		}
	})
}
