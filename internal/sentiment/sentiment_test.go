package sentiment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestScoreHeadlines(t *testing.T) {
	cases := []struct {
		name      string
		headlines []string
		want      float64
	}{
		{"no headlines", nil, 0},
		{"no lexicon hits", []string{"Quarterly results announced on Friday"}, 0},
		{"all positive", []string{"Shares surge on record profit"}, 1},
		{"all negative", []string{"Stock plunges after fraud probe"}, -1},
		{"mixed", []string{"Shares surge", "Stock drops on weak outlook", "Rally continues"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreHeadlines(tc.headlines)
			if got != tc.want {
				t.Errorf("score = %v, want %v", got, tc.want)
			}
			if got < -1 || got > 1 {
				t.Errorf("score %v outside [-1,1]", got)
			}
		})
	}
}

func rssBody(titles ...string) string {
	items := ""
	for _, title := range titles {
		items += "<item><title>" + title + "</title></item>"
	}
	return `<?xml version="1.0"?><rss><channel>` + items + `</channel></rss>`
}

func TestScoreFetchesAndCaches(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		fmt.Fprint(w, rssBody("SBIN shares surge on strong growth"))
	}))
	defer srv.Close()

	p := NewProvider(nil, WithBaseURL(srv.URL))
	ctx := context.Background()

	first := p.Score(ctx, "SBIN.NS")
	if first <= 0 {
		t.Fatalf("expected positive score, got %v", first)
	}
	second := p.Score(ctx, "SBIN.NS")
	if second != first {
		t.Errorf("cached score changed: %v vs %v", second, first)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1 (second read from cache)", got)
	}
}

func TestScoreNeutralOnFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewProvider(nil, WithBaseURL(srv.URL))
	if score := p.Score(context.Background(), "SBIN.NS"); score != 0 {
		t.Errorf("failed fetch must score neutral, got %v", score)
	}
}

func TestMemCacheExpiry(t *testing.T) {
	c := newMemCache()
	ctx := context.Background()

	c.SetSentiment(ctx, "SBIN.NS", 0.4, 50*time.Millisecond)
	if score, ok := c.GetSentiment(ctx, "SBIN.NS"); !ok || score != 0.4 {
		t.Fatalf("expected fresh entry, got %v %v", score, ok)
	}
	time.Sleep(60 * time.Millisecond)
	if _, ok := c.GetSentiment(ctx, "SBIN.NS"); ok {
		t.Error("entry should have expired")
	}
}
