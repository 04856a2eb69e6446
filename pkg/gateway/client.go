package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meshbazaar/marketplace-backend/pkg/config"
)

// Client talks to the external payment processor. It is stateless: gateway
// order creation is delegated remotely and signature verification is a local
// HMAC recomputation against the shared secret.
type Client struct {
	baseURL  string
	keyID    string
	secret   string
	currency string
	http     *http.Client
}

// Order is the remote payment intent the buyer completes out-of-band.
type Order struct {
	ID          string `json:"id"`
	AmountCents int    `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

// New builds a gateway client from configuration.
func New(cfg config.GatewayConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("gateway base url is required")
	}
	if cfg.KeyID == "" || cfg.Secret == "" {
		return nil, fmt.Errorf("gateway credentials are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		keyID:    cfg.KeyID,
		secret:   cfg.Secret,
		currency: cfg.Currency,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// Currency returns the configured settlement currency.
func (c *Client) Currency() string {
	return c.currency
}

type createOrderRequest struct {
	Amount   int    `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder registers a payment intent with the processor and returns the
// gateway-side order. The receipt carries our order id for reconciliation.
func (c *Client) CreateOrder(ctx context.Context, amountCents int, receipt string) (*Order, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("gateway order amount must be positive")
	}

	payload, err := json.Marshal(createOrderRequest{
		Amount:   amountCents,
		Currency: c.currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding gateway order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gateway: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decoding gateway order: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("gateway order id missing in response")
	}
	return &order, nil
}
