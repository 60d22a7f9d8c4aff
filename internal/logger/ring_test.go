package logger

import (
	"fmt"
	"log/slog"
	"testing"
	"time"
)

func TestRingNewestFirst(t *testing.T) {
	r := NewRing(3)
	for i := 1; i <= 3; i++ {
		r.Add(Entry{Message: fmt.Sprintf("m%d", i)})
	}
	got := r.Entries()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Message != "m3" || got[2].Message != "m1" {
		t.Errorf("order wrong: %v", got)
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	r := NewRing(3)
	for i := 1; i <= 5; i++ {
		r.Add(Entry{Message: fmt.Sprintf("m%d", i)})
	}
	got := r.Entries()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Message != "m5" || got[2].Message != "m3" {
		t.Errorf("overwrite wrong: %v", got)
	}
}

func TestRingPartialFill(t *testing.T) {
	r := NewRing(10)
	r.Add(Entry{Message: "only"})
	got := r.Entries()
	if len(got) != 1 || got[0].Message != "only" {
		t.Errorf("partial fill wrong: %v", got)
	}
}

func TestInitCapturesIntoRing(t *testing.T) {
	ring := NewRing(5)
	log := Init("test", slog.LevelInfo, ring)

	log.Info("scan complete")
	log.Debug("dropped below level")

	entries := ring.Entries()
	if len(entries) != 1 {
		t.Fatalf("captured %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Message != "scan complete" || e.Level != "INFO" {
		t.Errorf("entry = %+v", e)
	}
	if time.Since(e.Time) > time.Minute {
		t.Errorf("timestamp not set: %v", e.Time)
	}
}
