// Package marketdata provides the external quote provider client with a
// daily request budget and per-call timeout.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Quote is one last-price sample for a symbol as returned by the provider.
type Quote struct {
	Symbol        string
	Open          decimal.Decimal
	High          decimal.Decimal
	Low           decimal.Decimal
	Price         decimal.Decimal
	Volume        int64
	Change        decimal.Decimal
	ChangePercent decimal.Decimal
}

// ErrRateLimitExceeded is returned when the daily request budget is spent.
// Callers treat it as "skip and retry next tick", not as a failure.
type ErrRateLimitExceeded struct {
	Budget int
}

func (e ErrRateLimitExceeded) Error() string {
	return fmt.Sprintf("provider daily budget of %d requests exhausted", e.Budget)
}

// Config holds client configuration.
type Config struct {
	BaseURL     string
	APIKey      string
	DailyBudget int           // requests per UTC day, 0 disables the provider
	Timeout     time.Duration // per-call timeout
}

// Client talks to an Alpha Vantage style quote endpoint. Every call, failed
// or not, consumes one unit of the daily budget; the counter resets at UTC
// midnight.
type Client struct {
	baseURL string
	apiKey  string
	budget  int
	timeout time.Duration
	client  *http.Client
	log     zerolog.Logger

	mu       sync.Mutex
	used     int
	countDay string // YYYY-MM-DD, UTC day the counter belongs to
}

// NewClient creates a new provider client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		budget:  cfg.DailyBudget,
		timeout: cfg.Timeout,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log.With().Str("client", "marketdata").Logger(),
		countDay: time.Now().UTC().Format("2006-01-02"),
	}
}

// GetRemainingRequests returns how many requests are left in today's budget.
func (c *Client) GetRemainingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollDayLocked()
	remaining := c.budget - c.used
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResetDailyCounter resets the budget counter. Exposed for operational use;
// the counter also rolls over automatically at UTC midnight.
func (c *Client) ResetDailyCounter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.used = 0
	c.countDay = time.Now().UTC().Format("2006-01-02")
}

// checkRateLimit consumes one unit of the daily budget, or fails with
// ErrRateLimitExceeded. The unit is consumed up front so failed provider
// calls still count against the budget.
func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollDayLocked()
	if c.used >= c.budget {
		return ErrRateLimitExceeded{Budget: c.budget}
	}
	c.used++
	return nil
}

func (c *Client) rollDayLocked() {
	today := time.Now().UTC().Format("2006-01-02")
	if today != c.countDay {
		c.used = 0
		c.countDay = today
	}
}

// GetQuote fetches the current quote for a symbol. The call is bounded by
// the configured per-call timeout and counts against the daily budget
// whether it succeeds or fails.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}

	c.log.Debug().Str("symbol", symbol).Msg("Fetching quote")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d for %s", resp.StatusCode, symbol)
	}

	var body struct {
		GlobalQuote map[string]string `json:"Global Quote"`
		Note        string            `json:"Note"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to parse quote response for %s: %w", symbol, err)
	}
	if body.Note != "" {
		return nil, fmt.Errorf("provider throttled request for %s: %s", symbol, body.Note)
	}
	if len(body.GlobalQuote) == 0 {
		return nil, fmt.Errorf("provider returned no quote for %s", symbol)
	}

	quote, err := parseGlobalQuote(symbol, body.GlobalQuote)
	if err != nil {
		return nil, fmt.Errorf("invalid quote payload for %s: %w", symbol, err)
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("price", quote.Price.String()).
		Msg("Quote fetched")

	return quote, nil
}

func parseGlobalQuote(symbol string, fields map[string]string) (*Quote, error) {
	price, err := parseDecimalField(fields, "05. price")
	if err != nil {
		return nil, err
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("non-positive price %s", price)
	}

	open, err := parseDecimalField(fields, "02. open")
	if err != nil {
		open = price
	}
	high, err := parseDecimalField(fields, "03. high")
	if err != nil {
		high = price
	}
	low, err := parseDecimalField(fields, "04. low")
	if err != nil {
		low = price
	}
	change, err := parseDecimalField(fields, "09. change")
	if err != nil {
		change = decimal.Zero
	}

	changePct := decimal.Zero
	if raw, ok := fields["10. change percent"]; ok {
		if d, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(raw), "%")); err == nil {
			changePct = d
		}
	}

	var volume int64
	if raw, ok := fields["06. volume"]; ok {
		if v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			volume = v
		}
	}

	return &Quote{
		Symbol:        symbol,
		Open:          open,
		High:          high,
		Low:           low,
		Price:         price,
		Volume:        volume,
		Change:        change,
		ChangePercent: changePct,
	}, nil
}

func parseDecimalField(fields map[string]string, key string) (decimal.Decimal, error) {
	raw, ok := fields[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return decimal.Zero, fmt.Errorf("missing field %q", key)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed field %q: %w", key, err)
	}
	return d, nil
}
