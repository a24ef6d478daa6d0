// Package client talks to the stock backend REST API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/stock-portal/internal/cache"
	"github.com/bobmcallan/stock-portal/internal/models"
)

// envelope is the response wrapper used by every backend endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// StockClient communicates with the stock backend.
type StockClient struct {
	baseURL      string
	httpClient   *http.Client
	updateClient *http.Client
	series       *cache.SeriesCache
}

// Option configures a StockClient.
type Option func(*StockClient)

// WithTimeout sets the timeout for read requests.
func WithTimeout(d time.Duration) Option {
	return func(c *StockClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithUpdateTimeout sets the timeout for POST /api/update-data.
func WithUpdateTimeout(d time.Duration) Option {
	return func(c *StockClient) {
		if d > 0 {
			c.updateClient.Timeout = d
		}
	}
}

// WithSeriesCache enables caching of chart series. A nil cache or one with
// a non-positive TTL leaves caching off, so every chart request reaches the
// backend.
func WithSeriesCache(sc *cache.SeriesCache) Option {
	return func(c *StockClient) {
		if sc == nil || sc.TTL() <= 0 {
			c.series = nil
			return
		}
		c.series = sc
	}
}

// NewStockClient creates a new client targeting the given backend URL.
func NewStockClient(baseURL string, opts ...Option) *StockClient {
	c := &StockClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		updateClient: &http.Client{Timeout: 3 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend URL.
func (c *StockClient) BaseURL() string {
	return c.baseURL
}

// ListStocks fetches the stock summary list.
// GET /api/stocks -> { success, data: Stock[] }
func (c *StockClient) ListStocks(ctx context.Context) ([]models.Stock, error) {
	var stocks []models.Stock
	if _, err := c.do(ctx, c.httpClient, http.MethodGet, "/api/stocks", "list stocks", &stocks); err != nil {
		return nil, err
	}
	if stocks == nil {
		stocks = []models.Stock{}
	}
	return stocks, nil
}

// StockDetail fetches the analysis of one stock. An unknown symbol is a
// BackendError with StatusCode 404.
// GET /api/stocks/{symbol} -> { success, data: StockDetail }
func (c *StockClient) StockDetail(ctx context.Context, symbol string) (models.StockDetail, error) {
	if symbol == "" {
		return models.StockDetail{}, fmt.Errorf("stock detail: symbol is required")
	}
	var detail models.StockDetail
	if _, err := c.do(ctx, c.httpClient, http.MethodGet, "/api/stocks/"+url.PathEscape(symbol), "stock detail", &detail); err != nil {
		return models.StockDetail{}, err
	}
	return detail, nil
}

// TriggerUpdate asks the backend to re-collect price data. The call blocks
// for as long as the backend takes (typically one to two minutes).
// POST /api/update-data -> { success, message }
func (c *StockClient) TriggerUpdate(ctx context.Context) (string, error) {
	msg, err := c.do(ctx, c.updateClient, http.MethodPost, "/api/update-data", "update data", nil)
	if err != nil {
		return "", err
	}
	if c.series != nil {
		c.series.Clear()
	}
	return msg, nil
}

// ChartData fetches the price history for symbol over the last days days.
// GET /api/chart-data/{symbol}?days=N -> { success, data: {labels, prices, volumes} }
func (c *StockClient) ChartData(ctx context.Context, symbol string, days int) (models.ChartSeries, error) {
	if symbol == "" {
		return models.ChartSeries{}, fmt.Errorf("chart data: symbol is required")
	}
	if days <= 0 {
		return models.ChartSeries{}, fmt.Errorf("chart data: days must be positive (got %d)", days)
	}

	key := cache.MakeKey(symbol, days)
	if c.series != nil {
		if s, ok := c.series.Get(key); ok {
			return s, nil
		}
	}

	path := "/api/chart-data/" + url.PathEscape(symbol) + "?days=" + strconv.Itoa(days)
	var series models.ChartSeries
	if _, err := c.do(ctx, c.httpClient, http.MethodGet, path, "chart data", &series); err != nil {
		return models.ChartSeries{}, err
	}
	if err := series.Validate(); err != nil {
		return models.ChartSeries{}, &BackendError{Op: "chart data", StatusCode: http.StatusOK, Message: err.Error()}
	}

	if c.series != nil {
		c.series.Set(key, series)
	}
	return series, nil
}

// ListCompanies fetches the registered companies.
// GET /api/companies -> { success, data: Company[] }
func (c *StockClient) ListCompanies(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	if _, err := c.do(ctx, c.httpClient, http.MethodGet, "/api/companies", "list companies", &companies); err != nil {
		return nil, err
	}
	return companies, nil
}

// Health probes the backend. Any 200 response counts as reachable.
func (c *StockClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return &TransportError{Op: "health", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "health", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode != http.StatusOK {
		return &BackendError{Op: "health", StatusCode: resp.StatusCode}
	}
	return nil
}

// do issues a request and decodes the envelope. On success the data field
// is decoded into out (when non-nil) and the envelope message is returned.
// Non-2xx responses that still carry a JSON envelope are reported as
// backend failures; anything undecodable is a transport failure.
func (c *StockClient) do(ctx context.Context, hc *http.Client, method, path, op string, out any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return "", &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return "", &TransportError{Op: op, Err: fmt.Errorf("failed to reach backend: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &TransportError{Op: op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", &TransportError{Op: op, Err: fmt.Errorf("server returned %d: %s", resp.StatusCode, truncate(string(body), 200))}
		}
		return "", &TransportError{Op: op, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	if !env.Success {
		return "", &BackendError{Op: op, StatusCode: resp.StatusCode, Message: env.Error}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &BackendError{Op: op, StatusCode: resp.StatusCode, Message: env.Error}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", &TransportError{Op: op, Err: fmt.Errorf("failed to parse data: %w", err)}
		}
	}
	return env.Message, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
