package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment
// variables. A .env file in the working directory is applied first when
// present; real environment variables win.
type Config struct {
	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	MetricsAddr   string
	GatewayAddr   string

	// Alert channels. Empty values disable the channel.
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string

	// Scanner
	UniversePath string
	ScanInterval time.Duration
	Workers      int
	AutoTrade    bool

	// Risk
	StartingCapital     float64
	DailyLossPct        float64
	RiskPerTradePct     float64
	ATRStopMultiple     float64
	MaxConcentrationPct float64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] .env not loaded: %v", err)
	}

	return &Config{
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),
		SQLitePath:    getEnv("SQLITE_PATH", "data/ironclad.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		GatewayAddr:   getEnv("GATEWAY_ADDR", ":8080"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		UniversePath: getEnv("UNIVERSE_PATH", ""),
		ScanInterval: time.Duration(getInt("SCAN_INTERVAL_SEC", 300)) * time.Second,
		Workers:      getInt("SCAN_WORKERS", 4),
		AutoTrade:    getBool("AUTO_TRADE", true),

		StartingCapital:     getFloat("STARTING_CAPITAL", 1_000_000),
		DailyLossPct:        getFloat("DAILY_LOSS_PCT", 0.02),
		RiskPerTradePct:     getFloat("RISK_PER_TRADE_PCT", 0.01),
		ATRStopMultiple:     getFloat("ATR_STOP_MULTIPLE", 2.0),
		MaxConcentrationPct: getFloat("MAX_CONCENTRATION_PCT", 0.20),
	}
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return b
}
