// Package redis caches the live scan snapshot and per-instrument
// sentiment scores. It is optional: when no server is reachable the
// scanner falls back to its in-process cache and the sentiment
// provider's memory cache.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"ironclad/internal/model"
	"ironclad/internal/sentiment"
)

var _ sentiment.Cache = (*Cache)(nil)

const (
	signalSnapshotKey = "ironclad:signals:latest"
	sentimentKeyFmt   = "ironclad:sentiment:%s"

	defaultSnapshotTTL = 30 * time.Minute
)

type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Cache wraps a Redis client for the scan snapshot and sentiment keys.
type Cache struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// New connects and pings the server.
func New(cfg Config) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Cache{client: client}, nil
}

func (c *Cache) Close() error { return c.client.Close() }

// SignalSnapshot is the serialized form of one completed scan cycle.
type SignalSnapshot struct {
	Signals   []model.Signal `json:"signals"`
	ScannedAt time.Time      `json:"scanned_at"`
}

// PublishSnapshot overwrites the latest-scan key. Failures are logged
// by the caller; the in-process cache remains the source of truth.
func (c *Cache) PublishSnapshot(ctx context.Context, snap SignalSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, signalSnapshotKey, data, defaultSnapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis set snapshot: %w", err)
	}
	return nil
}

// PublishSignals adapts PublishSnapshot to the scanner's publisher port.
func (c *Cache) PublishSignals(ctx context.Context, signals []model.Signal, at time.Time) error {
	return c.PublishSnapshot(ctx, SignalSnapshot{Signals: signals, ScannedAt: at})
}

// LatestSnapshot reads the last published scan, ok=false when absent.
func (c *Cache) LatestSnapshot(ctx context.Context) (SignalSnapshot, bool) {
	data, err := c.client.Get(ctx, signalSnapshotKey).Bytes()
	if err != nil {
		return SignalSnapshot{}, false
	}
	var snap SignalSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("[redis] corrupt snapshot: %v", err)
		return SignalSnapshot{}, false
	}
	return snap, true
}

// GetSentiment and SetSentiment satisfy the sentiment provider's cache
// interface, sharing scores across processes.
func (c *Cache) GetSentiment(ctx context.Context, ticker string) (float64, bool) {
	val, err := c.client.Get(ctx, fmt.Sprintf(sentimentKeyFmt, ticker)).Result()
	if err != nil {
		return 0, false
	}
	score, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return score, true
}

func (c *Cache) SetSentiment(ctx context.Context, ticker string, score float64, ttl time.Duration) {
	key := fmt.Sprintf(sentimentKeyFmt, ticker)
	if err := c.client.Set(ctx, key, strconv.FormatFloat(score, 'f', -1, 64), ttl).Err(); err != nil {
		log.Printf("[redis] set sentiment %s: %v", ticker, err)
	}
}
