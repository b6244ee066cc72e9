// Package feed is the CoinGecko market-data client. It is the only
// component that talks to the price feed.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"crypto-monitor/internal/breaker"
	"crypto-monitor/internal/model"
	"crypto-monitor/pkg/retrier"
)

// DefaultBaseURL is the public CoinGecko v3 API.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

const maxErrorBody = 512

// StatusError is a non-200 response from the feed.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("feed: unexpected status %d: %s", e.Code, e.Body)
}

// Temporary reports whether retrying may help: 429 and 5xx.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client fetches market listings and price history.
type Client struct {
	baseURL  string
	currency string
	topN     int
	http     *http.Client
	retrier  *retrier.Retrier
	breaker  *breaker.Breaker
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default 10s-timeout client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetrier replaces the default retrier.
func WithRetrier(r *retrier.Retrier) Option {
	return func(c *Client) { c.retrier = r }
}

// WithBreaker guards every request (including its retries) with b.
func WithBreaker(b *breaker.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// New creates a client for baseURL listing the top topN coins quoted in
// currency. An empty baseURL uses DefaultBaseURL.
func New(baseURL, currency string, topN int, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:  baseURL,
		currency: currency,
		topN:     topN,
		http:     &http.Client{Timeout: 10 * time.Second},
		retrier: retrier.New(
			retrier.WithInitialInterval(2*time.Second),
			retrier.WithMaxRetries(3),
			retrier.WithRetryIf(retryable),
		),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Markets fetches the top coins ordered by market cap descending.
func (c *Client) Markets(ctx context.Context) ([]model.Coin, error) {
	q := url.Values{}
	q.Set("vs_currency", c.currency)
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(c.topN))
	q.Set("page", "1")
	q.Set("sparkline", "false")

	var coins []model.Coin
	if err := c.get(ctx, "/coins/markets", q, &coins); err != nil {
		return nil, errors.Wrap(err, "markets")
	}

	out := coins[:0]
	for _, coin := range coins {
		if coin.ID == "" {
			continue
		}
		out = append(out, coin)
	}
	return out, nil
}

type marketChart struct {
	Prices [][2]float64 `json:"prices"` // [unix ms, price]
}

// History returns up to days of past prices for id, oldest first.
// CoinGecko picks the granularity: 5-minutely for 1 day, hourly up to 90.
func (c *Client) History(ctx context.Context, id string, days int) ([]float64, error) {
	if days < 1 {
		return nil, errors.Errorf("history: days must be >= 1, got %d", days)
	}
	q := url.Values{}
	q.Set("vs_currency", c.currency)
	q.Set("days", strconv.Itoa(days))

	var chart marketChart
	if err := c.get(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", q, &chart); err != nil {
		return nil, errors.Wrapf(err, "history %s", id)
	}

	prices := make([]float64, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		if math.IsNaN(p[1]) || math.IsInf(p[1], 0) {
			continue
		}
		prices = append(prices, p[1])
	}
	return prices, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	call := func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.do(ctx, path, q, out)
		})
	}
	if c.breaker != nil {
		return c.breaker.Execute(ctx, call)
	}
	return call(ctx)
}

func (c *Client) do(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return retrier.Permanent(errors.Wrap(err, "create request"))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retrier.Permanent(errors.Wrap(err, "decode"))
	}
	return nil
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
