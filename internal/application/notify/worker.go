package notify

import (
	"context"
	"time"

	domevent "github.com/paylinkhq/qrorder/internal/domain/event"
	domain "github.com/paylinkhq/qrorder/internal/domain/order"
	"github.com/paylinkhq/qrorder/internal/infrastructure/notify"
	"github.com/paylinkhq/qrorder/internal/observability"
	"github.com/paylinkhq/qrorder/internal/observability/logctx"
)

const workerService = "notify-worker"

// Worker bridges paid events from the bus to connected observers.
type Worker struct {
	subscriber domevent.Subscriber
	hub        *notify.Hub
	tel        observability.Telemetry

	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

func New(subscriber domevent.Subscriber, hub *notify.Hub, tel observability.Telemetry, logger observability.Logger) *Worker {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	base := logger
	if base == nil {
		base = tel.Logger()
	}
	base = base.With(observability.F("service", workerService))

	return &Worker{
		subscriber:   subscriber,
		hub:          hub,
		tel:          tel,
		log:          base,
		reqCounter:   tel.Counter("usecase_requests_total"),
		durHistogram: tel.Histogram("usecase_duration_seconds"),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.hub == nil {
		return
	}
	w.subscriber.Subscribe(domain.OrderPaidEvent{}.EventName(), w.handleOrderPaid)
}

func (w *Worker) handleOrderPaid(ctx context.Context, e domevent.Event) error {
	const useCase = "notify.worker.order_paid"
	evt, ok := e.(domain.OrderPaidEvent)
	if !ok {
		w.count(useCase, "ignored")
		return nil
	}

	start := time.Now()
	logger := logctx.FromOr(ctx, w.log).With(
		observability.F("use_case", useCase),
		observability.F("order_id", evt.OrderID),
	)

	w.hub.Broadcast(notify.Notification{
		OrderID: evt.OrderID,
		Status:  string(domain.StatusPaid),
		Source:  evt.Source,
	})

	lat := time.Since(start).Seconds()
	w.count(useCase, "success")
	w.durHistogram.Observe(lat, observability.L("use_case", useCase))
	logger.Info("use_case_done",
		observability.F("outcome", "success"),
		observability.F("latency_seconds", lat),
	)
	return nil
}

func (w *Worker) count(useCase, outcome string) {
	w.reqCounter.Add(1,
		observability.L("use_case", useCase),
		observability.L("outcome", outcome),
	)
}
