// Package finance fetches authoritative market data for a ticker. When a
// lookup succeeds, the research engine suppresses the financial gap
// categories instead of re-searching the web for numbers the API already
// provided.
package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// Snapshot holds the numeric fields a quote API returns.
type Snapshot struct {
	Ticker    string  `json:"ticker"`
	Currency  string  `json:"currency"`
	Price     float64 `json:"price"`
	MarketCap float64 `json:"market_cap"`
	FetchedAt time.Time
}

// Client queries a quote endpoint. Implements research.FinancialSource.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// NewClientWithBaseURL overrides the endpoint, used by tests.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  slog.Default(),
	}
}

// Lookup fetches a snapshot for the ticker.
func (c *Client) Lookup(ctx context.Context, ticker string) (*Snapshot, error) {
	if ticker == "" {
		return nil, fmt.Errorf("ticker is empty")
	}

	endpoint := c.baseURL + url.PathEscape(ticker)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "company-researcher/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote API returned status %d", resp.StatusCode)
	}

	var payload struct {
		Chart struct {
			Result []struct {
				Meta struct {
					Currency           string  `json:"currency"`
					RegularMarketPrice float64 `json:"regularMarketPrice"`
					MarketCap          float64 `json:"marketCap"`
				} `json:"meta"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("no quote data for %s", ticker)
	}

	meta := payload.Chart.Result[0].Meta
	return &Snapshot{
		Ticker:    ticker,
		Currency:  meta.Currency,
		Price:     meta.RegularMarketPrice,
		MarketCap: meta.MarketCap,
		FetchedAt: time.Now(),
	}, nil
}

// HasData implements research.FinancialSource. Lookup failures only mean
// the gap categories stay active, so errors degrade to false.
func (c *Client) HasData(ctx context.Context, ticker string) bool {
	snap, err := c.Lookup(ctx, ticker)
	if err != nil {
		c.logger.Warn("Financial lookup failed", "ticker", ticker, "error", err)
		return false
	}
	return snap.Price > 0
}
