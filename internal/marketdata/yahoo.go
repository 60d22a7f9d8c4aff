// Package marketdata fetches OHLCV history from the Yahoo Finance chart
// endpoint. Transient failures are retried a bounded number of times;
// exhausted retries yield an empty series, never an error, so one dead
// instrument cannot abort a scan cycle.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"ironclad/internal/model"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	maxAttempts    = 3

	// StaleAfter is the bar age past which an instrument is skipped.
	StaleAfter = 20 * time.Minute
)

type Client struct {
	base       string
	http       *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
	retryDelay time.Duration
}

type Option func(*Client)

func WithBaseURL(base string) Option {
	return func(c *Client) { c.base = base }
}

func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

func NewClient(log *slog.Logger, opts ...Option) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{
		base: defaultBaseURL,
		http: &http.Client{Timeout: 10 * time.Second},
		// Yahoo throttles aggressively; 5 req/s with a small burst
		// keeps a 17-instrument sweep under the radar.
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		log:        log,
		retryDelay: 2 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// chart endpoint response, trimmed to the fields we read.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch downloads period/interval history for ticker. After maxAttempts
// failed tries it returns an empty series and a nil error; only context
// cancellation surfaces as an error.
func (c *Client) Fetch(ctx context.Context, ticker, period, interval string) (model.Series, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		bars, err := c.fetchOnce(ctx, ticker, period, interval)
		if err == nil && len(bars) > 0 {
			return bars, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			c.log.Warn("fetch failed", "ticker", ticker, "attempt", attempt, "err", err)
		} else {
			c.log.Warn("fetch returned no bars", "ticker", ticker, "attempt", attempt)
		}
		if attempt < maxAttempts {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return model.Series{}, nil
}

func (c *Client) fetchOnce(ctx context.Context, ticker, period, interval string) (model.Series, error) {
	u := fmt.Sprintf("%s/%s?range=%s&interval=%s",
		c.base, url.PathEscape(ticker), url.QueryEscape(period), url.QueryEscape(interval))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("chart %s: status %d", ticker, resp.StatusCode)
	}

	var cr chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("chart %s: decode: %w", ticker, err)
	}
	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("chart %s: %s", ticker, cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	res := cr.Chart.Result[0]
	q := res.Indicators.Quote[0]
	bars := make(model.Series, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		// Yahoo pads live candles with nulls and may truncate the
		// quote arrays; drop incomplete rows.
		if i >= len(q.Open) || i >= len(q.High) || i >= len(q.Low) || i >= len(q.Close) ||
			q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil {
			continue
		}
		var vol float64
		if i < len(q.Volume) && q.Volume[i] != nil {
			vol = *q.Volume[i]
		}
		bars = append(bars, model.Bar{
			Ticker: ticker,
			TS:     time.Unix(ts, 0),
			Open:   *q.Open[i],
			High:   *q.High[i],
			Low:    *q.Low[i],
			Close:  *q.Close[i],
			Volume: vol,
		})
	}
	return bars, nil
}

// LatestPrice returns the most recent traded price for ticker.
func (c *Client) LatestPrice(ctx context.Context, ticker string) (float64, bool) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, false
	}
	bars, err := c.fetchOnce(ctx, ticker, "1d", "1m")
	if err != nil {
		c.log.Warn("latest price fetch failed", "ticker", ticker, "err", err)
		return 0, false
	}
	if len(bars) == 0 {
		return 0, false
	}
	return bars[len(bars)-1].Close, true
}

// IsStale reports whether the latest bar is too old to trade on.
func IsStale(bars model.Series, now time.Time) bool {
	if len(bars) == 0 {
		return true
	}
	return now.Sub(bars[len(bars)-1].TS) > StaleAfter
}
