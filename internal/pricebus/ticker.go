package pricebus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrRateLimited is returned for HTTP 429 responses and is the only retried failure.
	ErrRateLimited = errors.New("ticker rate limited")
	// ErrNoPrice means the response had neither a price nor a usable bid/ask pair.
	ErrNoPrice = errors.New("ticker response has no price")
)

// StatusError is a non-2xx ticker response other than 429.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ticker returned status %d", e.Code)
}

// Ticker is one parsed ticker reading.
type Ticker struct {
	Symbol string
	Price  decimal.Decimal
	Bid    *decimal.Decimal
	Ask    *decimal.Decimal
	Volume *decimal.Decimal
	Time   time.Time
}

type tickerResponse struct {
	Price  json.RawMessage `json:"price"`
	Bid    json.RawMessage `json:"bid"`
	Ask    json.RawMessage `json:"ask"`
	Volume json.RawMessage `json:"volume"`
	Time   time.Time       `json:"time"`
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TickerClient reads GET {base}/products/{pair}/ticker.
type TickerClient struct {
	baseURL string
	http    HTTPDoer
	timeout time.Duration
	now     func() time.Time
}

func NewTickerClient(baseURL string, doer HTTPDoer, timeout time.Duration) *TickerClient {
	if doer == nil {
		doer = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TickerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		timeout: timeout,
		now:     time.Now,
	}
}

func (c *TickerClient) FetchTicker(ctx context.Context, symbol string) (Ticker, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/products/%s/ticker", c.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Ticker{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Ticker{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return Ticker{}, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Ticker{}, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Ticker{}, err
	}
	return c.parse(symbol, body)
}

func (c *TickerClient) parse(symbol string, body []byte) (Ticker, error) {
	var raw tickerResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return Ticker{}, fmt.Errorf("decode ticker: %w", err)
	}

	t := Ticker{
		Symbol: symbol,
		Bid:    parseDecimal(raw.Bid),
		Ask:    parseDecimal(raw.Ask),
		Volume: parseDecimal(raw.Volume),
		Time:   raw.Time.UTC(),
	}
	if t.Time.IsZero() {
		t.Time = c.now().UTC()
	}

	if p := parseDecimal(raw.Price); p != nil && p.IsPositive() {
		t.Price = *p
		return t, nil
	}
	if t.Bid != nil && t.Ask != nil && t.Bid.IsPositive() && t.Ask.IsPositive() {
		t.Price = t.Bid.Add(*t.Ask).Div(decimal.NewFromInt(2))
		return t, nil
	}
	return Ticker{}, ErrNoPrice
}

// parseDecimal accepts JSON strings or numbers and returns nil for anything else.
func parseDecimal(raw json.RawMessage) *decimal.Decimal {
	s := string(bytes.TrimSpace(raw))
	if s == "" || s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &d
}
