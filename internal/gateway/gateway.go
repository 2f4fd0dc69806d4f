package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Gateway is the payment-provider boundary. Both calls are idempotent on
// the provider side, keyed by Params.Key, so a confirmed-but-lost capture
// can be replayed by reconciliation without double-charging.
//
//go:generate mockgen -source=gateway.go -destination=gateway_mock.go -package=gateway
type Gateway interface {
	Capture(ctx context.Context, p CaptureParams) error
	Refund(ctx context.Context, p RefundParams) error
}

type CaptureParams struct {
	Key        string // idempotency key, "<transaction id>:capture"
	CustomerID uuid.UUID
	Amount     int64 // KRW
}

type RefundParams struct {
	Key        string // idempotency key, "<transaction id>:refund"
	CustomerID uuid.UUID
	Amount     int64 // KRW
}

// CaptureError reports a failed or timed-out capture. The caller must not
// apply the funded transition; reconciliation may replay it later.
type CaptureError struct {
	Key string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("payment capture %s failed: %v", e.Key, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// RefundError reports a failed or timed-out refund.
type RefundError struct {
	Key string
	Err error
}

func (e *RefundError) Error() string {
	return fmt.Sprintf("payment refund %s failed: %v", e.Key, e.Err)
}

func (e *RefundError) Unwrap() error { return e.Err }

// Client talks to the payment provider's REST API. Timeouts are bounded by
// the HTTP client; a timeout surfaces as a Capture/RefundError and never
// leaves a transition half-applied.
type Client struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
	}
}

type apiResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

func (c *Client) Capture(ctx context.Context, p CaptureParams) error {
	payload := map[string]any{
		"reference":   p.Key,
		"customer_id": p.CustomerID,
		"amount":      p.Amount,
		"currency":    "KRW",
	}

	if err := c.post(ctx, "/v1/payments/capture", payload); err != nil {
		return &CaptureError{Key: p.Key, Err: err}
	}

	return nil
}

func (c *Client) Refund(ctx context.Context, p RefundParams) error {
	payload := map[string]any{
		"reference":   p.Key,
		"customer_id": p.CustomerID,
		"amount":      p.Amount,
		"currency":    "KRW",
	}

	if err := c.post(ctx, "/v1/payments/refund", payload); err != nil {
		return &RefundError{Key: p.Key, Err: err}
	}

	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !result.Status {
		return fmt.Errorf("gateway declined: %s", result.Message)
	}

	return nil
}
