// Package sentiment scores news flow for an instrument in [-1, 1] by
// running recent Google News headlines through a small finance lexicon.
// Scores are cached for an hour per instrument; no data scores 0.
package sentiment

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://news.google.com/rss/search"
	CacheTTL       = time.Hour
	maxHeadlines   = 20
)

// Root forms only; substring matching picks up plurals and inflections.
var positiveWords = []string{
	"surge", "rally", "jump", "gain", "profit", "record", "beat", "strong",
	"growth", "upgrade", "bullish", "soar", "outperform", "buy",
}

var negativeWords = []string{
	"fall", "drop", "plunge", "loss", "weak", "crash", "decline",
	"downgrade", "bearish", "miss", "fraud", "probe", "scam", "slump",
	"sell-off", "underperform",
}

// Cache stores per-instrument scores with a TTL. The redis store
// satisfies this; memCache is the in-process fallback.
type Cache interface {
	GetSentiment(ctx context.Context, ticker string) (float64, bool)
	SetSentiment(ctx context.Context, ticker string, score float64, ttl time.Duration)
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

type memEntry struct {
	score   float64
	expires time.Time
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]memEntry)}
}

func (m *memCache) GetSentiment(_ context.Context, ticker string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[ticker]
	if !ok || time.Now().After(e.expires) {
		delete(m.entries, ticker)
		return 0, false
	}
	return e.score, true
}

func (m *memCache) SetSentiment(_ context.Context, ticker string, score float64, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[ticker] = memEntry{score: score, expires: time.Now().Add(ttl)}
}

type Provider struct {
	base  string
	http  *http.Client
	cache Cache
	log   *slog.Logger
}

type Option func(*Provider)

func WithBaseURL(base string) Option {
	return func(p *Provider) { p.base = base }
}

func WithCache(c Cache) Option {
	return func(p *Provider) { p.cache = c }
}

func NewProvider(log *slog.Logger, opts ...Option) *Provider {
	if log == nil {
		log = slog.Default()
	}
	p := &Provider{
		base:  defaultBaseURL,
		http:  &http.Client{Timeout: 10 * time.Second},
		cache: newMemCache(),
		log:   log,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Score returns the cached or freshly computed sentiment for ticker.
// Any failure downgrades to a neutral 0.
func (p *Provider) Score(ctx context.Context, ticker string) float64 {
	if score, ok := p.cache.GetSentiment(ctx, ticker); ok {
		return score
	}
	headlines, err := p.fetchHeadlines(ctx, ticker)
	if err != nil {
		p.log.Warn("headline fetch failed", "ticker", ticker, "err", err)
		return 0
	}
	score := ScoreHeadlines(headlines)
	p.cache.SetSentiment(ctx, ticker, score, CacheTTL)
	return score
}

// RefreshLoop sweeps the universe on the given interval, warming the
// cache so scan cycles read it hot. Runs until ctx is cancelled.
func (p *Provider) RefreshLoop(ctx context.Context, tickers []string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, t := range tickers {
				if ctx.Err() != nil {
					return
				}
				headlines, err := p.fetchHeadlines(ctx, t)
				if err != nil {
					p.log.Warn("sentiment refresh failed", "ticker", t, "err", err)
					continue
				}
				p.cache.SetSentiment(ctx, t, ScoreHeadlines(headlines), CacheTTL)
			}
		}
	}
}

type rssFeed struct {
	Channel struct {
		Items []struct {
			Title string `xml:"title"`
		} `xml:"item"`
	} `xml:"channel"`
}

func (p *Provider) fetchHeadlines(ctx context.Context, ticker string) ([]string, error) {
	query := strings.TrimSuffix(ticker, ".NS") + " stock"
	u := fmt.Sprintf("%s?q=%s&hl=en-IN&gl=IN&ceid=IN:en", p.base, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss %s: status %d", ticker, resp.StatusCode)
	}

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("rss %s: decode: %w", ticker, err)
	}
	titles := make([]string, 0, maxHeadlines)
	for _, item := range feed.Channel.Items {
		titles = append(titles, item.Title)
		if len(titles) == maxHeadlines {
			break
		}
	}
	return titles, nil
}

// ScoreHeadlines maps lexicon hits across headlines to [-1, 1]:
// (positive - negative) / (positive + negative), 0 when nothing matches.
func ScoreHeadlines(headlines []string) float64 {
	var pos, neg int
	for _, h := range headlines {
		lower := strings.ToLower(h)
		for _, w := range positiveWords {
			if strings.Contains(lower, w) {
				pos++
			}
		}
		for _, w := range negativeWords {
			if strings.Contains(lower, w) {
				neg++
			}
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}
