package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"ironclad/internal/engine"
	"ironclad/internal/logger"
	"ironclad/internal/markethours"
	"ironclad/internal/model"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// Deps is everything the API reads. The gateway never computes: it
// reads the cache and the stores, and routes manual trades to the
// trader.
type Deps struct {
	Cache   *engine.ScanCache
	Trades  model.TradeStore
	Preds   model.PredictionStore
	Trader  *engine.Trader
	Market  model.MarketData
	Ring    *logger.Ring
	Tickers []string
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, deps Deps) {
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		go hub.HandleConn(conn)
	})

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		snap := deps.Cache.Get()
		writeJSON(w, map[string]any{
			"status":       "ok",
			"market":       markethours.StatusString(time.Now()),
			"last_scan":    snap.ScannedAt,
			"signal_count": len(snap.Signals),
		})
	})

	mux.HandleFunc("/api/signals", func(w http.ResponseWriter, r *http.Request) {
		snap := deps.Cache.Get()
		signals := snap.Signals
		if want := r.URL.Query().Get("strategy"); want != "" {
			filtered := signals[:0:0]
			for _, s := range signals {
				if s.Strategy == want {
					filtered = append(filtered, s)
				}
			}
			signals = filtered
		}
		writeJSON(w, map[string]any{"signals": signals, "scanned_at": snap.ScannedAt})
	})

	mux.HandleFunc("/api/account", func(w http.ResponseWriter, r *http.Request) {
		balance, err := deps.Trades.Balance()
		if err != nil {
			httpError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, map[string]any{"balance": balance})
	})

	mux.HandleFunc("/api/portfolio", func(w http.ResponseWriter, r *http.Request) {
		holdings, err := deps.Trades.Holdings()
		if err != nil {
			httpError(w, http.StatusInternalServerError, err)
			return
		}
		type row struct {
			model.Holding
			LastPrice float64 `json:"last_price"`
			PnL       float64 `json:"pnl"`
		}
		out := make([]row, 0, len(holdings))
		for _, h := range holdings {
			r := row{Holding: h}
			if price, ok := deps.Market.LatestPrice(context.Background(), h.Ticker); ok {
				r.LastPrice = price
				r.PnL = (price - h.AvgPrice) * float64(h.Qty)
			}
			out = append(out, r)
		}
		writeJSON(w, map[string]any{"holdings": out})
	})

	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		trades, err := deps.Trades.TradeHistory(100)
		if err != nil {
			httpError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, map[string]any{"trades": trades})
	})

	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Preds.AccuracyStats()
		if err != nil {
			httpError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, stats)
	})

	mux.HandleFunc("/api/brain", func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Preds.StrategyStats()
		if err != nil {
			httpError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, map[string]any{"strategies": stats})
	})

	mux.HandleFunc("/api/logs", func(w http.ResponseWriter, r *http.Request) {
		var entries []logger.Entry
		if deps.Ring != nil {
			entries = deps.Ring.Entries()
		}
		writeJSON(w, map[string]any{"logs": entries})
	})

	mux.HandleFunc("/api/tickers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"tickers": deps.Tickers})
	})

	mux.HandleFunc("/api/trade", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			SetCORS(w)
			if r.Method == http.MethodOptions {
				return
			}
			httpErrorMsg(w, http.StatusMethodNotAllowed, "POST only")
			return
		}
		var req struct {
			Ticker string  `json:"ticker"`
			Side   string  `json:"side"`
			Qty    int64   `json:"qty"`
			Price  float64 `json:"price"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpErrorMsg(w, http.StatusBadRequest, "invalid request body")
			return
		}
		price := req.Price
		if price <= 0 {
			p, ok := deps.Market.LatestPrice(r.Context(), req.Ticker)
			if !ok {
				httpErrorMsg(w, http.StatusBadGateway, "no live price for "+req.Ticker)
				return
			}
			price = p
		}

		var err error
		switch strings.ToUpper(req.Side) {
		case "BUY":
			err = deps.Trader.Buy(req.Ticker, price, req.Qty, "manual")
		case "SELL":
			err = deps.Trader.Sell(req.Ticker, price, req.Qty, "manual")
		default:
			httpErrorMsg(w, http.StatusBadRequest, "side must be BUY or SELL")
			return
		}
		if err != nil {
			// Rejections are user-visible, not server faults.
			httpError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, map[string]any{"status": "executed", "ticker": req.Ticker, "price": price})
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, err error) {
	httpErrorMsg(w, code, err.Error())
}

func httpErrorMsg(w http.ResponseWriter, code int, msg string) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
