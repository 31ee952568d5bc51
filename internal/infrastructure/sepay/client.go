package sepay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paylinkhq/qrorder/internal/domain/verification"
	"github.com/paylinkhq/qrorder/internal/observability"
	"github.com/paylinkhq/qrorder/internal/observability/logctx"
)

const (
	componentClient = "sepay_client"
	searchPath      = "/userapi/transactions/search"
	paidSentinel    = "PAID"

	peerLabel     = "sepay"
	endpointLabel = "transactions.search"
)

// Client consults SePay's transaction search for a settled transaction
// carrying the order's correlation token. One best-effort lookup per call;
// every transport, status, or decode failure maps to OutcomeUnavailable so
// the caller can tell "couldn't check" apart from "not paid".
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	log     observability.Logger

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger observability.Logger, tel observability.Telemetry) *Client {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		httpc:        &http.Client{Timeout: timeout},
		log:          logger.With(observability.F("component", componentClient)),
		extCounter:   tel.Counter("external_requests_total"),
		extHistogram: tel.Histogram("external_request_duration_seconds"),
	}
}

// searchResponse tolerates both response generations SePay has shipped:
// data as a result list (first element wins) or as a single object.
type searchResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type transaction struct {
	Status string `json:"status"`
}

func (c *Client) CheckStatus(ctx context.Context, orderID string) (outcome verification.Outcome, err error) {
	logger := logctx.FromOr(ctx, c.log).With(observability.F("order_id", orderID))

	start := time.Now()
	defer func() {
		c.extCounter.Add(1,
			observability.L("peer", peerLabel),
			observability.L("endpoint", endpointLabel),
			observability.L("outcome", string(outcome)),
		)
		c.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", peerLabel),
			observability.L("endpoint", endpointLabel),
		)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+searchPath+"?addInfo="+url.QueryEscape(orderID), nil)
	if err != nil {
		return verification.OutcomeUnavailable,
			fmt.Errorf("%w: build request: %w", verification.ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		logger.Warn("verification_request_failed", observability.F("error", err.Error()))
		return verification.OutcomeUnavailable,
			fmt.Errorf("%w: %w", verification.ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn("verification_bad_status", observability.F("status", resp.StatusCode))
		return verification.OutcomeUnavailable,
			fmt.Errorf("%w: unexpected status %d", verification.ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return verification.OutcomeUnavailable,
			fmt.Errorf("%w: read body: %w", verification.ErrUnavailable, err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		logger.Warn("verification_decode_failed", observability.F("error", err.Error()))
		return verification.OutcomeUnavailable,
			fmt.Errorf("%w: decode response: %w", verification.ErrUnavailable, err)
	}

	if !parsed.Success {
		logger.Info("verification_not_confirmed", observability.F("reason", "success_false"))
		return verification.OutcomeNotConfirmed, nil
	}

	tx, ok, err := firstTransaction(parsed.Data)
	if err != nil {
		return verification.OutcomeUnavailable,
			fmt.Errorf("%w: decode data: %w", verification.ErrUnavailable, err)
	}
	if !ok {
		logger.Info("verification_not_confirmed", observability.F("reason", "no_match"))
		return verification.OutcomeNotConfirmed, nil
	}

	if strings.EqualFold(tx.Status, paidSentinel) {
		logger.Info("verification_confirmed")
		return verification.OutcomeConfirmed, nil
	}

	logger.Info("verification_not_confirmed", observability.F("status", tx.Status))
	return verification.OutcomeNotConfirmed, nil
}

func firstTransaction(data json.RawMessage) (transaction, bool, error) {
	if len(data) == 0 || string(data) == "null" {
		return transaction{}, false, nil
	}

	var list []transaction
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) == 0 {
			return transaction{}, false, nil
		}
		return list[0], true, nil
	}

	var single transaction
	if err := json.Unmarshal(data, &single); err != nil {
		return transaction{}, false, err
	}
	return single, true, nil
}
