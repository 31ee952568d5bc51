package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	appNotify "github.com/paylinkhq/qrorder/internal/application/notify"
	appOrder "github.com/paylinkhq/qrorder/internal/application/order"
	appReconcile "github.com/paylinkhq/qrorder/internal/application/reconcile"
	"github.com/paylinkhq/qrorder/internal/infrastructure/eventbus"
	"github.com/paylinkhq/qrorder/internal/infrastructure/id"
	"github.com/paylinkhq/qrorder/internal/infrastructure/memory"
	"github.com/paylinkhq/qrorder/internal/infrastructure/notify"
	"github.com/paylinkhq/qrorder/internal/infrastructure/observability/oteltrace"
	"github.com/paylinkhq/qrorder/internal/infrastructure/observability/prometrics"
	"github.com/paylinkhq/qrorder/internal/infrastructure/observability/telemetry"
	"github.com/paylinkhq/qrorder/internal/infrastructure/observability/zaplogger"
	"github.com/paylinkhq/qrorder/internal/infrastructure/qr"
	"github.com/paylinkhq/qrorder/internal/infrastructure/sepay"
	"github.com/paylinkhq/qrorder/internal/observability"
	httppresentation "github.com/paylinkhq/qrorder/internal/presentation/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	serviceName := getenvDefault("SERVICE_NAME", "qrorder")
	env := getenvDefault("ENV", "dev")
	addr := getenvDefault("ADDR", ":4000")

	logger := zaplogger.New(
		observability.F("service", serviceName),
		observability.F("env", env),
	)
	if syncer, ok := logger.(interface{ Sync() error }); ok {
		defer func() { _ = syncer.Sync() }()
	}

	metrics := prometrics.New("", "")
	counters := map[string]observability.Counter{
		"usecase_requests_total": metrics.Counter(
			"usecase_requests_total", "Total number of use case invocations.",
			"use_case", "outcome"),
		"http_requests_total": metrics.Counter(
			"http_requests_total", "Total number of HTTP requests.",
			"method", "route", "status"),
		"external_requests_total": metrics.Counter(
			"external_requests_total", "Total number of outbound calls to external peers.",
			"peer", "endpoint", "outcome"),
		"order_event_publish_failed_total": metrics.Counter(
			"order_event_publish_failed_total", "Count of order-related event publish failures.",
			"event"),
	}
	histograms := map[string]observability.Histogram{
		"usecase_duration_seconds": metrics.Histogram(
			"usecase_duration_seconds", "Duration of use case execution in seconds.",
			prometheus.DefBuckets, "use_case"),
		"http_request_duration_seconds": metrics.Histogram(
			"http_request_duration_seconds", "Duration of HTTP request handling in seconds.",
			prometheus.DefBuckets, "method", "route", "status"),
		"external_request_duration_seconds": metrics.Histogram(
			"external_request_duration_seconds", "Duration of outbound calls in seconds.",
			prometheus.DefBuckets, "peer", "endpoint"),
	}
	tel := telemetry.New(oteltrace.New(serviceName), logger, counters, histograms)

	orderRepo := memory.NewOrderRepository()
	tokens := id.NewTokenGenerator()
	qrBuilder := qr.NewURLBuilder(
		getenvDefault("QR_BANK", "MB"),
		getenvDefault("QR_ACCOUNT", "0917436401"),
	)

	verifier := sepay.NewClient(
		getenvDefault("SEPAY_BASE_URL", "https://my.sepay.vn"),
		os.Getenv("SEPAY_API_KEY"),
		time.Duration(getenvInt("SEPAY_TIMEOUT_MS", 5000))*time.Millisecond,
		logger,
		tel,
	)

	// In-memory event bus carries the order events channel.
	bus := eventbus.NewBus(logger)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	orderService := appOrder.NewService(orderRepo, tokens, qrBuilder, bus, logger)
	reconciler := appReconcile.NewService(orderRepo, verifier, bus, tel, logger)

	hub := notify.NewHub(logger)
	notifyWorker := appNotify.New(bus, hub, tel, logger)
	notifyWorker.Start()

	handler := httppresentation.NewHandler(orderService, reconciler, hub, logger, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http_server_start",
			observability.F("addr", server.Addr),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error",
				observability.F("error", err.Error()),
			)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error",
			observability.F("error", err.Error()),
		)
	} else {
		logger.Info("http_server_stopped")
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
