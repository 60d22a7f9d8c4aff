package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Universe is the set of instruments the scanner watches, plus the index
// symbols used for correlation vetoes. Sectors maps a ticker to its sector
// index; tickers without an entry skip the sector check.
type Universe struct {
	Tickers     []string          `yaml:"tickers"`
	MarketIndex string            `yaml:"market_index"`
	Sectors     map[string]string `yaml:"sectors"`
}

// DefaultUniverse is the built-in NSE large-cap watchlist used when no
// universe file is configured.
func DefaultUniverse() *Universe {
	return &Universe{
		MarketIndex: "^NSEI",
		Tickers: []string{
			"RELIANCE.NS",
			"TCS.NS",
			"HDFCBANK.NS",
			"INFY.NS",
			"ICICIBANK.NS",
			"SBIN.NS",
			"BHARTIARTL.NS",
			"ITC.NS",
			"LT.NS",
			"KOTAKBANK.NS",
			"AXISBANK.NS",
			"HINDUNILVR.NS",
			"MARUTI.NS",
			"TATAMOTORS.NS",
			"SUNPHARMA.NS",
		},
		Sectors: map[string]string{
			"HDFCBANK.NS":  "^NSEBANK",
			"ICICIBANK.NS": "^NSEBANK",
			"SBIN.NS":      "^NSEBANK",
			"KOTAKBANK.NS": "^NSEBANK",
			"AXISBANK.NS":  "^NSEBANK",
		},
	}
}

// LoadUniverse reads a YAML universe file. An empty path returns the
// built-in default watchlist.
func LoadUniverse(path string) (*Universe, error) {
	if path == "" {
		return DefaultUniverse(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}
	var u Universe
	if err := yaml.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("parse universe file: %w", err)
	}
	if len(u.Tickers) == 0 {
		return nil, fmt.Errorf("universe file %s lists no tickers", path)
	}
	if u.MarketIndex == "" {
		u.MarketIndex = "^NSEI"
	}
	return &u, nil
}
