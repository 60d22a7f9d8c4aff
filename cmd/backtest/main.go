package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"ironclad/config"
	"ironclad/internal/engine"
	"ironclad/internal/logger"
	"ironclad/internal/marketdata"
	"ironclad/internal/risk"
)

func main() {
	var (
		tickersFlag = flag.String("tickers", "", "comma-separated tickers (default: configured universe)")
		period      = flag.String("period", "30d", "history window to replay, e.g. 30d")
		interval    = flag.String("interval", "5m", "bar interval, e.g. 5m")
		capital     = flag.Float64("capital", 0, "starting capital (default: STARTING_CAPITAL)")
	)
	flag.Parse()

	cfg := config.Load()
	slogger := logger.Init("backtest", slog.LevelWarn, nil)

	tickers := splitTickers(*tickersFlag)
	if len(tickers) == 0 {
		universe, err := config.LoadUniverse(cfg.UniversePath)
		if err != nil {
			log.Fatalf("[backtest] universe: %v", err)
		}
		tickers = universe.Tickers
	}

	startingCapital := cfg.StartingCapital
	if *capital > 0 {
		startingCapital = *capital
	}

	bt := engine.NewBacktester(marketdata.NewClient(slogger), slogger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	fmt.Printf("Backtesting %d instruments over %s/%s with %.0f capital...\n\n",
		len(tickers), *period, *interval, startingCapital)

	res, err := bt.Run(ctx, engine.BacktestConfig{
		Tickers:         tickers,
		StartingCapital: startingCapital,
		Period:          *period,
		Interval:        *interval,
		RiskConfig: riskConfigFrom(cfg),
	})
	if err != nil {
		log.Fatalf("[backtest] %v", err)
	}

	printTrades(res)
	printSummary(res)
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

func splitTickers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printTrades(res engine.BacktestResult) {
	if len(res.Trades) == 0 {
		fmt.Println("No trades executed.")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Ticker", "Dir", "Qty", "Entry", "Exit", "PnL", "Strategy", "Exit Reason", "Closed")
	for _, t := range res.Trades {
		table.Append(
			t.Ticker,
			string(t.Direction),
			fmt.Sprintf("%d", t.Qty),
			fmt.Sprintf("%.2f", t.Entry),
			fmt.Sprintf("%.2f", t.Exit),
			fmt.Sprintf("%+.2f", t.PnL),
			t.Strategy,
			string(t.Reason),
			t.ExitTime.Format("2006-01-02 15:04"),
		)
	}
	table.Render()
}

func printSummary(res engine.BacktestResult) {
	netPnL := res.FinalCapital - res.StartingCapital
	fmt.Println()
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Value")
	table.Append("Trades", fmt.Sprintf("%d", len(res.Trades)))
	table.Append("Wins", fmt.Sprintf("%d", res.Wins))
	table.Append("Losses", fmt.Sprintf("%d", res.Losses))
	table.Append("Win Rate", fmt.Sprintf("%.1f%%", res.WinRate))
	table.Append("Starting Capital", fmt.Sprintf("%.2f", res.StartingCapital))
	table.Append("Final Capital", fmt.Sprintf("%.2f", res.FinalCapital))
	table.Append("Net PnL", fmt.Sprintf("%+.2f (%+.2f%%)", netPnL, netPnL/res.StartingCapital*100))
	table.Render()
}
