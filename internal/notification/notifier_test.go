package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ironclad/internal/model"
)

type recordingBackend struct {
	alerts []Alert
	err    error
}

func (r *recordingBackend) Send(_ context.Context, a Alert) error {
	r.alerts = append(r.alerts, a)
	return r.err
}

func testSignal() model.Signal {
	return model.Signal{
		Ticker:     "SBIN.NS",
		Direction:  model.Buy,
		Strategy:   "composite",
		Price:      620.5,
		Confidence: 0.72,
		TS:         time.Now(),
	}
}

func TestFormatSignal(t *testing.T) {
	a := FormatSignal(testSignal())
	if a.Title != "Signal: BUY SBIN.NS" {
		t.Errorf("title = %q", a.Title)
	}
	for _, want := range []string{"🟢", "620.50", "composite", "72%"} {
		if !strings.Contains(a.Message, want) {
			t.Errorf("message missing %q:\n%s", want, a.Message)
		}
	}

	sell := testSignal()
	sell.Direction = model.Sell
	if !strings.Contains(FormatSignal(sell).Message, "🔴") {
		t.Error("sell alert missing red icon")
	}
}

func TestServiceFansOut(t *testing.T) {
	b1 := &recordingBackend{}
	b2 := &recordingBackend{}
	s := NewService(nil, b1, b2)

	if err := s.SendSignalAlert(context.Background(), testSignal()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(b1.alerts) != 1 || len(b2.alerts) != 1 {
		t.Errorf("fan-out incomplete: %d, %d", len(b1.alerts), len(b2.alerts))
	}
}

func TestServiceSwallowsBackendErrors(t *testing.T) {
	bad := &recordingBackend{err: errors.New("telegram down")}
	good := &recordingBackend{}
	s := NewService(nil, bad, good)

	if err := s.SendSignalAlert(context.Background(), testSignal()); err != nil {
		t.Fatalf("backend failure must not propagate, got %v", err)
	}
	if len(good.alerts) != 1 {
		t.Error("later backends must still receive the alert")
	}
}
