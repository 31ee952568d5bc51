package order

import (
	"context"
	"fmt"
	"time"

	domevent "github.com/paylinkhq/qrorder/internal/domain/event"
	domain "github.com/paylinkhq/qrorder/internal/domain/order"
	"github.com/paylinkhq/qrorder/internal/observability"
	"github.com/paylinkhq/qrorder/internal/observability/logctx"
)

const (
	componentOrderService = "order_service"
	publishTimeout        = 300 * time.Millisecond
)

// Service owns order creation and read access. Status mutation is the
// reconciliation engine's job; this service never touches it.
type Service struct {
	repo        domain.Repository
	idGenerator IDGenerator
	qr          QRURLBuilder
	publisher   domevent.Publisher
	log         observability.Logger
}

func NewService(repo domain.Repository, idGen IDGenerator, qr QRURLBuilder, publisher domevent.Publisher, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		repo:        repo,
		idGenerator: idGen,
		qr:          qr,
		publisher:   publisher,
		log:         logger.With(observability.F("component", componentOrderService)),
	}
}

type CreateOrderInput struct {
	Name   string
	Amount int64
}

type CreateOrderResult struct {
	OrderID string
	QRURL   string
	Status  domain.Status
}

func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	logger := logctx.FromOr(ctx, s.log)
	logger.Info("create_order_start", observability.F("name", input.Name), observability.F("amount", input.Amount))

	orderID := s.idGenerator.NewID()

	entity, err := domain.New(orderID, input.Name, input.Amount)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, entity); err != nil {
		logger.Error("order_insert_failed", observability.F("order_id", entity.ID), observability.F("error", err.Error()))
		return nil, fmt.Errorf("order: insert: %w", err)
	}

	var qrURL string
	if s.qr != nil {
		qrURL = s.qr.Build(entity.ID, entity.Amount)
	}

	// best-effort; creation stands whether or not the event lands
	if s.publisher != nil {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		if err := s.publisher.Publish(pubCtx, domain.NewOrderCreatedEvent(entity)); err != nil {
			logger.Warn("event_publish_failed",
				observability.F("event", "order.created"),
				observability.F("order_id", entity.ID),
				observability.F("error", err.Error()),
			)
		}
		cancel()
	}

	logger.Info("create_order_success", observability.F("order_id", entity.ID), observability.F("status", entity.Status))
	return &CreateOrderResult{
		OrderID: entity.ID,
		QRURL:   qrURL,
		Status:  entity.Status,
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.List(ctx)
}
