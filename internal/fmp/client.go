// Package fmp is a client for the Financial Modeling Prep v3 REST API,
// covering the statement and historical price endpoints the valuation needs
package fmp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"resty.dev/v3"

	"fairvalue/internal/fetcher"
	"fairvalue/internal/ratelimit"
	"fairvalue/internal/statement"
	"fairvalue/internal/valuation"
)

const (
	// DefaultBaseURL is the production API root
	DefaultBaseURL = "https://financialmodelingprep.com/api/v3"

	// DefaultStatementLimit is how many yearly records each statement call asks for
	DefaultStatementLimit = 20

	endpointIncome   = "/income-statement/"
	endpointCashFlow = "/cash-flow-statement/"
	endpointMetrics  = "/key-metrics/"
	endpointPrices   = "/historical-price-full/"
)

// errorResponse is the body FMP sends when it rejects a request
type errorResponse struct {
	Message string `json:"Error Message"`
}

// historicalPrice is one daily bar of the historical-price-full endpoint
type historicalPrice struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// historicalPriceResponse is the historical-price-full payload
type historicalPriceResponse struct {
	Symbol     string            `json:"symbol"`
	Historical []historicalPrice `json:"historical"`
}

// Client fetches statements and prices from Financial Modeling Prep
type Client struct {
	apiKey  string
	limit   int
	client  *resty.Client
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

var _ fetcher.Provider = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithStatementLimit sets the number of yearly records requested per statement call
func WithStatementLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithLimiter sets the rate limiter shared by all requests
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithHTTPClient replaces the default retrying HTTP client
func WithHTTPClient(rc *resty.Client) Option {
	return func(c *Client) {
		c.client = rc
	}
}

// WithLogger sets the logger for request diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Financial Modeling Prep client
func NewClient(apiKey, baseURL string, opts ...Option) *Client {
	c := &Client{
		apiKey: apiKey,
		limit:  DefaultStatementLimit,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = fetcher.NewHTTPClient(baseURL, fetcher.WithLogger(c.logger))
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(ratelimit.DefaultLimits())
	}
	return c
}

// get performs a rate-limited GET and returns the raw JSON body
func (c *Client) get(ctx context.Context, api ratelimit.API, path string, params map[string]string) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx, api); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	query := map[string]string{"apikey": c.apiKey}
	for k, v := range params {
		query[k] = v
	}

	var (
		body   json.RawMessage
		apiErr errorResponse
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(&body).
		SetError(&apiErr).
		Get(path)

	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case isTimeout(err):
			return nil, fetcher.NewTimeoutError(err).WithEndpoint(path)
		case isDecodeError(err):
			return nil, fetcher.NewDecodeError(err).WithEndpoint(path)
		default:
			return nil, fetcher.NewNetworkError(err).WithEndpoint(path)
		}
	}

	if !resp.IsSuccess() {
		return nil, fetcher.ClassifyHTTPError(resp.StatusCode(), apiErr.Message).WithEndpoint(path)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fetcher.NewValidationError("empty response").WithEndpoint(path)
	}

	// FMP reports bad keys and exhausted quotas with a 200 and an error object
	if body[0] == '{' {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Message != "" {
			return nil, fetcher.NewValidationError(e.Message).WithEndpoint(path)
		}
	}

	return body, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout())
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// statements fetches one statement collection for ticker
func (c *Client) statements(ctx context.Context, endpoint, ticker string) (statement.Collection, error) {
	path := endpoint + url.PathEscape(ticker)
	body, err := c.get(ctx, ratelimit.APIStatements, path, map[string]string{
		"limit": strconv.Itoa(c.limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s for %s: %w", endpoint, ticker, err)
	}

	// an empty object means the provider knows nothing about ticker
	if body[0] == '{' {
		return statement.Collection{}, nil
	}

	var coll statement.Collection
	if err := json.Unmarshal(body, &coll); err != nil {
		return nil, fmt.Errorf("failed to decode %s for %s: %w", endpoint, ticker,
			fetcher.NewDecodeError(err).WithEndpoint(path))
	}
	return coll, nil
}

// IncomeStatements fetches the yearly income statements for ticker
func (c *Client) IncomeStatements(ctx context.Context, ticker string) (statement.Collection, error) {
	return c.statements(ctx, endpointIncome, ticker)
}

// CashFlowStatements fetches the yearly cash flow statements for ticker
func (c *Client) CashFlowStatements(ctx context.Context, ticker string) (statement.Collection, error) {
	return c.statements(ctx, endpointCashFlow, ticker)
}

// KeyMetrics fetches the yearly key metrics for ticker
func (c *Client) KeyMetrics(ctx context.Context, ticker string) (statement.Collection, error) {
	return c.statements(ctx, endpointMetrics, ticker)
}

// ClosePrice returns the closing price of ticker on date. ok is false when
// the provider has no bar for that day (weekend, holiday, not yet listed)
func (c *Client) ClosePrice(ctx context.Context, ticker string, date time.Time) (float64, bool, error) {
	day := date.Format(valuation.DateLayout)
	c.logger.Debug("requesting stock price", "ticker", ticker, "date", day)

	path := endpointPrices + url.PathEscape(ticker)
	body, err := c.get(ctx, ratelimit.APIPrices, path, map[string]string{
		"from": day,
		"to":   day,
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to fetch price for %s on %s: %w", ticker, day, err)
	}

	// no data comes back as {} or []
	if body[0] != '{' {
		return 0, false, nil
	}

	var result historicalPriceResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, false, fmt.Errorf("failed to decode price for %s on %s: %w", ticker, day,
			fetcher.NewDecodeError(err).WithEndpoint(path))
	}
	if len(result.Historical) == 0 {
		c.logger.Debug("no price found", "ticker", ticker, "date", day)
		return 0, false, nil
	}

	price := result.Historical[0].Close
	c.logger.Debug("price found", "ticker", ticker, "date", day, "price", price)
	return price, true, nil
}
