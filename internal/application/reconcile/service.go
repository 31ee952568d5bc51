package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	domevent "github.com/paylinkhq/qrorder/internal/domain/event"
	domain "github.com/paylinkhq/qrorder/internal/domain/order"
	"github.com/paylinkhq/qrorder/internal/domain/verification"
	"github.com/paylinkhq/qrorder/internal/observability"
	"github.com/paylinkhq/qrorder/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	componentEngine = "reconcile_engine"
	spanPrefix      = "UC."

	useCasePoll    = "reconcile.poll"
	useCaseWebhook = "reconcile.webhook"

	sourcePoll    = "poll"
	sourceWebhook = "webhook"

	publishTimeout = 300 * time.Millisecond
)

var (
	// ErrMalformedPayload means no correlation token could be extracted
	// from a webhook delivery.
	ErrMalformedPayload = errors.New("reconcile: no correlation token in payload")

	// ErrVerificationUnavailable is surfaced when the external authority
	// could not be consulted. The order's status is untouched; callers must
	// not read this as "still unpaid".
	ErrVerificationUnavailable = verification.ErrUnavailable

	ErrNotFound = domain.ErrNotFound
)

// Service is the reconciliation engine: both signal paths converge on the
// registry's atomic MarkPaid, so whichever source reports first wins and
// every later signal is a no-op. The paid event fires at most once per
// order, gated exclusively on the transitioned result of MarkPaid.
type Service struct {
	repo      domain.Repository
	verifier  verification.Client
	publisher domevent.Publisher
	tel       observability.Telemetry

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	pubFailures  observability.Counter   // order_event_publish_failed_total{event}
}

func NewService(
	repo domain.Repository,
	verifier verification.Client,
	publisher domevent.Publisher,
	tel observability.Telemetry,
	logger observability.Logger,
) *Service {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	base := logger
	if base == nil {
		base = tel.Logger()
	}
	base = base.With(observability.F("component", componentEngine))

	return &Service{
		repo:         repo,
		verifier:     verifier,
		publisher:    publisher,
		tel:          tel,
		log:          base,
		reqCounter:   tel.Counter("usecase_requests_total"),
		durHistogram: tel.Histogram("usecase_duration_seconds"),
		pubFailures:  tel.Counter("order_event_publish_failed_total"),
	}
}

// ReconcileByPoll consults the external authority for an unpaid order and
// applies the result. Already-paid orders short-circuit without a
// verification call. The verification call runs outside any registry lock;
// only the MarkPaid commit is serialized.
func (s *Service) ReconcileByPoll(ctx context.Context, orderID string) (_ *domain.Order, err error) {
	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"ReconcileByPoll",
		attribute.String("use_case", useCasePoll),
		attribute.String("order.id", orderID),
	)
	start := time.Now()
	outcome, status := "success", "OK"
	logger := logctx.FromOr(ctx, s.log).With(
		observability.F("use_case", useCasePoll),
		observability.F("order_id", orderID),
	)
	ctx = logctx.With(ctx, logger)

	defer func() {
		lat := time.Since(start).Seconds()
		s.observe(useCasePoll, outcome, lat)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", status),
			observability.F("latency_seconds", lat),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, status)
		}
		logger.Info("use_case_done", fields...)
		span.End()
	}()

	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		outcome, status = "error", "ORDER_NOT_FOUND"
		return nil, err
	}

	if order.Paid() {
		status = "ALREADY_PAID"
		span.SetAttributes(attribute.String("order.status", string(order.Status)))
		return order, nil
	}

	verdict, verr := s.verifier.CheckStatus(ctx, orderID)
	span.SetAttributes(attribute.String("verification.outcome", string(verdict)))

	switch verdict {
	case verification.OutcomeConfirmed:
		updated, transitioned, merr := s.repo.MarkPaid(ctx, orderID)
		if merr != nil {
			outcome, status = "error", "MARK_PAID_FAILED"
			return nil, merr
		}
		if transitioned {
			status = "PAID"
			s.emitPaid(ctx, logger, updated, sourcePoll)
		} else {
			status = "ALREADY_PAID"
		}
		return updated, nil

	case verification.OutcomeUnavailable:
		outcome, status = "error", "VERIFICATION_UNAVAILABLE"
		return order, fmt.Errorf("reconcile: %w", verr)

	default:
		status = "NOT_CONFIRMED"
		return order, nil
	}
}

// ReconcileByWebhook applies an inbound payer notification. Duplicate
// deliveries resolve to a successful no-op; the sender must never be given
// a reason to stop retrying on its side.
func (s *Service) ReconcileByWebhook(ctx context.Context, payload WebhookPayload) (_ *domain.Order, err error) {
	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"ReconcileByWebhook",
		attribute.String("use_case", useCaseWebhook),
	)
	start := time.Now()
	outcome, status := "success", "OK"
	var orderID string
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCaseWebhook))

	defer func() {
		lat := time.Since(start).Seconds()
		s.observe(useCaseWebhook, outcome, lat)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", status),
			observability.F("latency_seconds", lat),
		}
		if orderID != "" {
			fields = append(fields, observability.F("order_id", orderID))
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		} else {
			span.SetStatus(codes.Ok, status)
		}
		logger.Info("use_case_done", fields...)
		span.End()
	}()

	token, ok := payload.Token()
	if !ok {
		outcome, status = "error", "MALFORMED_PAYLOAD"
		return nil, ErrMalformedPayload
	}
	orderID = token
	logger = logger.With(observability.F("order_id", orderID))
	ctx = logctx.With(ctx, logger)
	span.SetAttributes(attribute.String("order.id", orderID))

	if !payload.ConfirmsPayment() {
		order, gerr := s.repo.Get(ctx, orderID)
		if gerr != nil {
			outcome, status = "error", "ORDER_NOT_FOUND"
			return nil, gerr
		}
		status = "NOT_CONFIRMING"
		return order, nil
	}

	order, transitioned, merr := s.repo.MarkPaid(ctx, orderID)
	if merr != nil {
		outcome, status = "error", "ORDER_NOT_FOUND"
		return nil, merr
	}
	if transitioned {
		status = "PAID"
		s.emitPaid(ctx, logger, order, sourceWebhook)
	} else {
		status = "ALREADY_PAID"
	}
	return order, nil
}

// emitPaid publishes the one-time paid event. Fire-and-forget: a publish
// failure is recorded but never rolls the transition back.
func (s *Service) emitPaid(ctx context.Context, logger observability.Logger, order *domain.Order, source string) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, domain.NewOrderPaidEvent(order, source)); err != nil {
		s.pubFailures.Add(1, observability.L("event", "order.paid"))
		logger.Warn("event_publish_failed",
			observability.F("event", "order.paid"),
			observability.F("order_id", order.ID),
			observability.F("error", err.Error()),
		)
	}
}

func (s *Service) observe(useCase, outcome string, latencySeconds float64) {
	s.reqCounter.Add(1,
		observability.L("use_case", useCase),
		observability.L("outcome", outcome),
	)
	s.durHistogram.Observe(latencySeconds,
		observability.L("use_case", useCase),
	)
}
