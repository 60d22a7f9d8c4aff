package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ironclad/config"
	"ironclad/internal/brain"
	"ironclad/internal/engine"
	"ironclad/internal/gateway"
	"ironclad/internal/logger"
	"ironclad/internal/marketdata"
	"ironclad/internal/metrics"
	"ironclad/internal/model"
	"ironclad/internal/notification"
	"ironclad/internal/risk"
	"ironclad/internal/sentiment"
	redisstore "ironclad/internal/store/redis"
	"ironclad/internal/store/sqlite"
	"ironclad/internal/validator"
	"ironclad/internal/veto"

	goredis "github.com/go-redis/redis/v8"
)

const (
	validatorInterval = time.Minute
	sentimentInterval = 30 * time.Minute
	shutdownTimeout   = 10 * time.Second
)

func main() {
	cfg := config.Load()

	ring := logger.NewRing(logger.DefaultRingCapacity)
	slogger := logger.Init("scanner", slog.LevelInfo, ring)

	universe, err := config.LoadUniverse(cfg.UniversePath)
	if err != nil {
		log.Fatalf("[scanner] universe: %v", err)
	}
	slogger.Info("universe loaded", "tickers", len(universe.Tickers), "market_index", universe.MarketIndex)

	store, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[scanner] sqlite: %v", err)
	}
	defer store.Close()
	if err := store.EnsureAccount(cfg.StartingCapital); err != nil {
		log.Fatalf("[scanner] seed account: %v", err)
	}

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Redis is optional: without it the dashboard still works off the
	// in-process cache, only cross-process snapshot sharing is lost.
	var rdb *redisstore.Cache
	var sentCache sentiment.Cache
	if cfg.RedisAddr != "" {
		rdb, err = redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			slogger.Warn("redis unavailable, continuing without snapshot publishing", "err", err)
			rdb = nil
		} else {
			defer rdb.Close()
			sentCache = rdb
		}
	}
	var rdbClient *goredis.Client
	if rdb != nil {
		rdbClient = rdb.Client()
	}
	health.StartLivenessChecker(ctx, rdbClient, store.DB(), 15*time.Second)

	md := marketdata.NewClient(slogger)

	sentOpts := []sentiment.Option{}
	if sentCache != nil {
		sentOpts = append(sentOpts, sentiment.WithCache(sentCache))
	}
	sent := sentiment.NewProvider(slogger, sentOpts...)

	registry := brain.NewRegistry(slogger)

	riskMgr := risk.NewManager(riskConfigFrom(cfg), cfg.StartingCapital, slogger)
	riskMgr.OnKillSwitch = func(active bool) {
		if active {
			m.KillSwitchActive.Set(1)
		} else {
			m.KillSwitchActive.Set(0)
		}
	}

	pipeline := veto.NewPipeline(registry, store, slogger)
	pipeline.OnVeto = func(stage string) {
		m.VetoesTotal.WithLabelValues(stage).Inc()
	}

	accountGauges := func() {
		if bal, err := store.Balance(); err == nil {
			m.AccountBalance.Set(bal)
		}
		if holdings, err := store.Holdings(); err == nil {
			m.OpenPositions.Set(float64(len(holdings)))
		}
	}
	accountGauges()

	trader := engine.NewTrader(store, slogger)
	trader.OnRealized = riskMgr.ApplyPnL
	trader.OnTrade = func(side model.Direction) {
		m.TradesTotal.WithLabelValues(string(side)).Inc()
		accountGauges()
	}

	backends := []notification.Backend{notification.NewLogBackend()}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramBackend(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookBackend(cfg.WebhookURL))
	}
	notifier := notification.NewService(slogger, backends...)

	cache := engine.NewScanCache()
	hub := gateway.NewHub()

	var publisher engine.SnapshotPublisher = hub
	if rdb != nil {
		publisher = fanoutPublisher{hub, rdb}
	}

	scanner := engine.NewScanner(engine.ScannerConfig{
		Tickers:      universe.Tickers,
		MarketIndex:  universe.MarketIndex,
		SectorIndex:  universe.Sectors,
		ScanInterval: cfg.ScanInterval,
		Workers:      cfg.Workers,
		AutoTrade:    cfg.AutoTrade,
	}, engine.ScannerDeps{
		MarketData: md,
		Sentiment:  sent,
		Pipeline:   pipeline,
		Brain:      registry,
		Risk:       riskMgr,
		Trader:     trader,
		Notifier:   notifier,
		Cache:      cache,
		Publisher:  publisher,
		Metrics:    m,
		Health:     health,
		Log:        slogger,
	})

	val := validator.New(store, md, slogger)
	val.OnGrade = func(outcome model.PredictionOutcome) {
		m.PredictionsGraded.WithLabelValues(string(outcome)).Inc()
	}

	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, hub, gateway.Deps{
		Cache:   cache,
		Trades:  store,
		Preds:   store,
		Trader:  trader,
		Market:  md,
		Ring:    ring,
		Tickers: universe.Tickers,
	})
	httpSrv := &http.Server{Addr: cfg.GatewayAddr, Handler: mux}

	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	go func() {
		slogger.Info("gateway listening", "addr", cfg.GatewayAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[scanner] gateway: %v", err)
		}
	}()

	go sent.RefreshLoop(ctx, universe.Tickers, sentimentInterval)
	go val.Loop(ctx, validatorInterval)

	scanner.TrainModels(ctx)
	scanner.Run(ctx)

	// Run returned: context cancelled. Let the current HTTP requests
	// drain before exiting.
	slogger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slogger.Warn("gateway shutdown", "err", err)
	}
	metricsSrv.Stop(shutdownCtx)
	slogger.Info("goodbye")
}

// riskConfigFrom maps the env-level risk knobs onto the manager's
// config.
func riskConfigFrom(cfg *config.Config) risk.Config {
	return risk.Config{
		MaxDailyLossPct:  cfg.DailyLossPct,
		RiskPerTradePct:  cfg.RiskPerTradePct,
		StopLossMult:     cfg.ATRStopMultiple,
		ConcentrationPct: cfg.MaxConcentrationPct,
	}
}

// fanoutPublisher sends each snapshot to the WebSocket hub and Redis.
// Redis failures are the cache's problem to log; the hub always gets
// the frame.
type fanoutPublisher struct {
	hub *gateway.Hub
	rdb *redisstore.Cache
}

func (f fanoutPublisher) PublishSignals(ctx context.Context, signals []model.Signal, at time.Time) error {
	if err := f.hub.PublishSignals(ctx, signals, at); err != nil {
		return err
	}
	return f.rdb.PublishSignals(ctx, signals, at)
}
