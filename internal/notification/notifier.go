// Package notification provides alert delivery to external channels
// (Telegram, webhooks) for trading signals. Delivery is best-effort:
// the Service logs failures and never propagates them.
package notification

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"

	"ironclad/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Backend is the interface for delivery channels.
type Backend interface {
	Send(ctx context.Context, alert Alert) error
}

// LogBackend logs alerts instead of delivering them (development mode).
type LogBackend struct{}

func NewLogBackend() *LogBackend { return &LogBackend{} }

func (n *LogBackend) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Service fans a signal alert out to every configured backend. It
// satisfies the pipeline's Notifier port.
type Service struct {
	backends []Backend
	log      *slog.Logger
}

var _ model.Notifier = (*Service)(nil)

func NewService(log *slog.Logger, backends ...Backend) *Service {
	if log == nil {
		log = slog.Default()
	}
	if len(backends) == 0 {
		backends = []Backend{NewLogBackend()}
	}
	return &Service{backends: backends, log: log}
}

// SendSignalAlert formats and delivers one signal. Backend failures are
// logged and swallowed; the pipeline never blocks on delivery.
func (s *Service) SendSignalAlert(ctx context.Context, sig model.Signal) error {
	alert := FormatSignal(sig)
	for _, b := range s.backends {
		if err := b.Send(ctx, alert); err != nil {
			s.log.Warn("alert delivery failed", "ticker", sig.Ticker, "err", err)
		}
	}
	return nil
}

// FormatSignal renders a signal as an alert.
func FormatSignal(sig model.Signal) Alert {
	icon := "🟢"
	if sig.Direction == model.Sell {
		icon = "🔴"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", icon, sig.Direction, sig.Ticker)
	fmt.Fprintf(&b, "Price: %.2f\n", sig.Price)
	fmt.Fprintf(&b, "Strategy: %s\n", sig.Strategy)
	fmt.Fprintf(&b, "Confidence: %.0f%%", sig.Confidence*100)
	return Alert{
		Level:   AlertInfo,
		Title:   fmt.Sprintf("Signal: %s %s", sig.Direction, sig.Ticker),
		Message: b.String(),
	}
}
