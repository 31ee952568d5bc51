package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	appOrder "github.com/paylinkhq/qrorder/internal/application/order"
	"github.com/paylinkhq/qrorder/internal/application/reconcile"
	domainOrder "github.com/paylinkhq/qrorder/internal/domain/order"
	"github.com/paylinkhq/qrorder/internal/infrastructure/notify"
	"github.com/paylinkhq/qrorder/internal/observability"
	"github.com/paylinkhq/qrorder/internal/observability/logctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// OrderService is the creation/read surface consumed by the handler.
type OrderService interface {
	CreateOrder(ctx context.Context, input appOrder.CreateOrderInput) (*appOrder.CreateOrderResult, error)
	Get(ctx context.Context, id string) (*domainOrder.Order, error)
	List(ctx context.Context) ([]*domainOrder.Order, error)
}

// Reconciler is the reconciliation engine surface consumed by the handler.
type Reconciler interface {
	ReconcileByPoll(ctx context.Context, orderID string) (*domainOrder.Order, error)
	ReconcileByWebhook(ctx context.Context, payload reconcile.WebhookPayload) (*domainOrder.Order, error)
}

type Handler struct {
	orderService OrderService
	reconciler   Reconciler
	hub          *notify.Hub
	log          observability.Logger
	tel          observability.Telemetry
}

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
)

func NewHandler(orderSvc OrderService, reconciler Reconciler, hub *notify.Hub, logger observability.Logger,
	tel observability.Telemetry,
) *Handler {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = observability.NopLogger()
	}
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Handler{
		orderService: orderSvc,
		reconciler:   reconciler,
		hub:          hub,
		log:          baseLogger.With(observability.F("component", componentHTTPHandler)),
		tel:          tel,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// Wire each route with middlewares:
	// Trace → ObservabilityMiddleware (request logger) → HTTP metrics → Access log → Handler
	h.muxHandle(mux, http.MethodPost, "/api/create-order", h.handleCreateOrder)
	h.muxHandle(mux, http.MethodPost, "/api/check-payment-status", h.handleCheckPaymentStatus)
	h.muxHandle(mux, http.MethodGet, "/api/orders", h.handleListOrders)
	h.muxHandle(mux, http.MethodPost, "/api/webhook", h.handleWebhook)
	h.muxHandle(mux, http.MethodGet, "/api/orders/{orderID}/stream", h.handleOrderStream)
	h.muxHandle(mux, http.MethodGet, "/health", h.handleHealth)

	return mux
}

func (h *Handler) muxHandle(mux *http.ServeMux, method, route string, handler http.HandlerFunc) {
	mux.HandleFunc(method+" "+route, func(w http.ResponseWriter, r *http.Request) {
		// Store stable route template for low-cardinality labels
		ctx := contextWithRoute(r.Context(), route)
		r = r.WithContext(ctx)

		// Wrap: Trace → Request Logger → Metrics → Access Log → Handler
		wrapped := h.withTrace(
			ObservabilityMiddleware(
				logctx.FromOr(ctx, h.log),
				func(r *http.Request) string {
					return r.Header.Get(headerRequestID)
				},
				h.tel,
			)(
				h.withAccessLog(http.HandlerFunc(handler)),
			),
		)
		wrapped.ServeHTTP(w, r)
	})
}

type createOrderRequest struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

type createOrderResponse struct {
	OrderID string             `json:"order_id"`
	QRURL   string             `json:"qr_url"`
	Status  domainOrder.Status `json:"status"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.orderService.CreateOrder(r.Context(), appOrder.CreateOrderInput{
		Name:   req.Name,
		Amount: req.Amount,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createOrderResponse{
		OrderID: result.OrderID,
		QRURL:   result.QRURL,
		Status:  result.Status,
	})
}

type checkPaymentStatusRequest struct {
	OrderID string `json:"order_id"`
}

type orderView struct {
	OrderID string             `json:"order_id"`
	Name    string             `json:"name"`
	Amount  int64              `json:"amount"`
	Status  domainOrder.Status `json:"status"`
}

func viewOf(o *domainOrder.Order) orderView {
	return orderView{
		OrderID: o.ID,
		Name:    o.Name,
		Amount:  o.Amount,
		Status:  o.Status,
	}
}

func (h *Handler) handleCheckPaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req checkPaymentStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	order, err := h.reconciler.ReconcileByPoll(r.Context(), req.OrderID)
	if err != nil {
		// "couldn't check" is not "unpaid": surface it, order view included,
		// so pollers can keep showing the last known status.
		if errors.Is(err, reconcile.ErrVerificationUnavailable) && order != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"error": "verification unavailable",
				"order": viewOf(order),
			})
			return
		}
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, viewOf(order))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, viewOf(o))
	}
	writeJSON(w, http.StatusOK, views)
}

type webhookResponse struct {
	Message string `json:"message"`
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	// The payer's webhook schema is not stable; decode leniently and let the
	// engine's payload parse decide what the delivery means.
	var payload reconcile.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if _, err := h.reconciler.ReconcileByWebhook(r.Context(), payload); err != nil {
		writeDomainError(w, err)
		return
	}

	// duplicates land here too; they are successful no-ops
	writeJSON(w, http.StatusOK, webhookResponse{Message: "webhook processed"})
}

func (h *Handler) handleOrderStream(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")

	if _, err := h.orderService.Get(r.Context(), orderID); err != nil {
		writeDomainError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	events, cancel := h.hub.Subscribe(orderID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case n, open := <-events:
			if !open {
				return
			}
			body, err := json.Marshal(n)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("data: " + string(body) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer("qrorder.http")
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		spanName := r.Method + " " + route
		if route == "unknown" {
			spanName = r.Method + " " + r.URL.Path
			route = r.URL.Path
		}

		ctxWithSpan, span := tracer.Start(parentCtx,
			spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctxWithSpan))
	})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainOrder.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domainOrder.ErrInvalidName),
		errors.Is(err, domainOrder.ErrInvalidAmount),
		errors.Is(err, reconcile.ErrMalformedPayload):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, reconcile.ErrVerificationUnavailable):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
