// Package exchange holds the thin Binance REST client used by the price
// updater.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"pump-detector/database"
)

const defaultBaseURL = "https://api.binance.com"

// Ticker is one entry of the 24h ticker snapshot. Binance returns numbers
// as strings; values stay raw until a candidate actually needs them.
type Ticker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
}

// Price parses the last price; ok is false on a malformed value
func (t Ticker) Price() (float64, bool) {
	v, err := strconv.ParseFloat(t.LastPrice, 64)
	return v, err == nil
}

// ChangePercent parses the 24h change; ok is false on a malformed value
func (t Ticker) ChangePercent() (float64, bool) {
	v, err := strconv.ParseFloat(t.PriceChangePercent, 64)
	return v, err == nil
}

// Client fetches public market data from Binance
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Binance client with the standard 10 second deadline
func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: database.HTTPClientTimeout,
		},
	}
}

// FetchTickers downloads the full 24h ticker snapshot for all symbols
func (c *Client) FetchTickers(ctx context.Context) ([]Ticker, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v3/ticker/24hr", nil)
	if err != nil {
		return nil, fmt.Errorf("FetchTickers: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FetchTickers: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FetchTickers: binance status %d", resp.StatusCode)
	}

	var tickers []Ticker
	if err := json.NewDecoder(resp.Body).Decode(&tickers); err != nil {
		return nil, fmt.Errorf("FetchTickers: decode: %w", err)
	}
	return tickers, nil
}
