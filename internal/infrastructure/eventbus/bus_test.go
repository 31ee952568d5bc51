package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	domevent "github.com/paylinkhq/qrorder/internal/domain/event"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestBus_PublishSubscribe(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	bus := NewBus(nil)
	bus.Start(ctx)
	t.Cleanup(func() { bus.Stop(context.Background()) })

	var mu sync.Mutex
	received := 0
	done := make(chan struct{})

	bus.Subscribe("order.paid", func(_ context.Context, e domevent.Event) error {
		if e.EventName() != "order.paid" {
			t.Errorf("expected order.paid, got %s", e.EventName())
		}
		mu.Lock()
		received++
		mu.Unlock()
		close(done)
		return nil
	})

	if err := bus.Publish(ctx, testEvent{name: "order.paid"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("handler was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	if received != 1 {
		t.Fatalf("expected 1 delivery, got %d", received)
	}
}

func TestBus_FanoutToAllHandlers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	bus := NewBus(nil)
	bus.Start(ctx)
	t.Cleanup(func() { bus.Stop(context.Background()) })

	const handlers = 3
	var wg sync.WaitGroup
	wg.Add(handlers)
	for i := 0; i < handlers; i++ {
		bus.Subscribe("order.created", func(context.Context, domevent.Event) error {
			wg.Done()
			return nil
		})
	}

	if err := bus.Publish(ctx, testEvent{name: "order.created"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("not all handlers were invoked")
	}
}

func TestBus_EventWithoutSubscriberIsDropped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	bus := NewBus(nil)
	bus.Start(ctx)
	t.Cleanup(func() { bus.Stop(context.Background()) })

	// nothing to assert beyond "does not block or panic"
	if err := bus.Publish(ctx, testEvent{name: "order.unknown"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestBus_HandlerPanicDoesNotKillDispatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	bus := NewBus(nil)
	bus.Start(ctx)
	t.Cleanup(func() { bus.Stop(context.Background()) })

	done := make(chan struct{})
	bus.Subscribe("order.paid", func(context.Context, domevent.Event) error {
		panic("boom")
	})
	bus.Subscribe("order.paid", func(context.Context, domevent.Event) error {
		close(done)
		return nil
	})

	if err := bus.Publish(ctx, testEvent{name: "order.paid"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("second handler was not invoked after sibling panic")
	}
}
