package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal scanner.
type Metrics struct {
	ScanCyclesTotal prometheus.Counter
	ScanDuration    prometheus.Histogram

	SignalsTotal      *prometheus.CounterVec // labels: strategy, direction
	VetoesTotal       *prometheus.CounterVec // labels: stage
	PredictionsTotal  prometheus.Counter
	PredictionsGraded *prometheus.CounterVec // labels: outcome

	KillSwitchActive   prometheus.Gauge
	OpenPositions      prometheus.Gauge
	AccountBalance     prometheus.Gauge
	InstrumentsSkipped prometheus.Counter
	FetchFailures      prometheus.Counter
	TradesTotal        *prometheus.CounterVec // labels: side
	ModelsTrained      prometheus.Gauge
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		ScanCyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_scan_cycles_total",
			Help: "Completed scan sweeps over the instrument universe",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_scan_duration_seconds",
			Help:    "Wall time of one full scan sweep",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_signals_total",
			Help: "Signals surviving the veto pipeline (by strategy and direction)",
		}, []string{"strategy", "direction"}),
		VetoesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_vetoes_total",
			Help: "Signals killed by the veto pipeline (by stage)",
		}, []string{"stage"}),
		PredictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_predictions_logged_total",
			Help: "Prediction rows written for the validation loop",
		}),
		PredictionsGraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_predictions_graded_total",
			Help: "Predictions resolved by the validator (by outcome)",
		}, []string{"outcome"}),
		KillSwitchActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_kill_switch_active",
			Help: "Daily loss kill switch state (0=armed, 1=tripped)",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_open_positions",
			Help: "Currently held paper positions",
		}),
		AccountBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_account_balance",
			Help: "Paper account cash balance",
		}),
		InstrumentsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_instruments_skipped_total",
			Help: "Instruments skipped for stale or missing data",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_fetch_failures_total",
			Help: "Market data fetches that exhausted retries",
		}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_trades_total",
			Help: "Paper trades executed (by side)",
		}, []string{"side"}),
		ModelsTrained: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_models_trained",
			Help: "Instruments with a trained confidence model",
		}),
	}

	prometheus.MustRegister(
		m.ScanCyclesTotal,
		m.ScanDuration,
		m.SignalsTotal,
		m.VetoesTotal,
		m.PredictionsTotal,
		m.PredictionsGraded,
		m.KillSwitchActive,
		m.OpenPositions,
		m.AccountBalance,
		m.InstrumentsSkipped,
		m.FetchFailures,
		m.TradesTotal,
		m.ModelsTrained,
	)

	return m
}

// HealthStatus represents the scanner's health.
type HealthStatus struct {
	mu sync.RWMutex

	ScannerOK      bool      `json:"scanner_ok"`
	LastScanTime   time.Time `json:"last_scan_time"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetScannerOK(v bool) {
	h.mu.Lock()
	h.ScannerOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastScanTime(t time.Time) {
	h.mu.Lock()
	h.LastScanTime = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.ScannerOK || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	scanAge := ""
	if !h.LastScanTime.IsZero() {
		scanAge = time.Since(h.LastScanTime).Round(time.Second).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		ScannerOK       bool    `json:"scanner_ok"`
		LastScanTime    string  `json:"last_scan_time"`
		ScanAge         string  `json:"scan_age"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		ScannerOK:       h.ScannerOK,
		LastScanTime:    h.LastScanTime.Format(time.RFC3339),
		ScanAge:         scanAge,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv:    &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
