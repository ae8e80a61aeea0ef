// Package fx fetches the USD exchange rate used by the promotion fee engine
// and caches it with a short TTL.
package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint serves latest rates with USD as base.
const DefaultEndpoint = "https://open.er-api.com/v6/latest/USD"

// RateSource yields the current local-currency-per-USD rate.
type RateSource interface {
	FetchRate(ctx context.Context) (float64, error)
}

// Client calls an external FX endpoint. A request timeout is always applied;
// a hung rate fetch must not hang the promotion flow.
type Client struct {
	HTTP     *http.Client
	Endpoint string
	Currency string
	Logger   *slog.Logger
}

func NewClient(endpoint, currency string, logger *slog.Logger) *Client {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	if strings.TrimSpace(currency) == "" {
		currency = "TRY"
	}
	return &Client{
		HTTP:     &http.Client{Timeout: 5 * time.Second},
		Endpoint: endpoint,
		Currency: currency,
		Logger:   logger,
	}
}

type ratesResponse struct {
	Rates map[string]float64 `json:"rates"`
}

func (c *Client) FetchRate(ctx context.Context) (float64, error) {
	if c.HTTP == nil {
		return 0, errors.New("fx: http client not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fx: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("fx: endpoint returned status %d: %s", resp.StatusCode, string(snippet))
	}
	var payload ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("fx: decode response: %w", err)
	}
	rate, ok := payload.Rates[c.Currency]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("fx: no usable rate for %s", c.Currency)
	}
	return rate, nil
}

var _ RateSource = (*Client)(nil)
