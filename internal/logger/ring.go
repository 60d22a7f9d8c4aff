package logger

import (
	"sync"
	"time"
)

// DefaultRingCapacity matches the /api/logs page size.
const DefaultRingCapacity = 50

// Entry is one captured log record.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Ring is a fixed-capacity buffer of recent log entries. Writers
// overwrite the oldest entry once full; Entries returns newest first.
// Safe for concurrent use.
type Ring struct {
	mu   sync.Mutex
	buf  []Entry
	next int
	size int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &Ring{buf: make([]Entry, capacity)}
}

func (r *Ring) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = e
	r.next = (r.next + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// Entries returns a copy of the buffered entries, newest first.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, r.size)
	for i := 1; i <= r.size; i++ {
		idx := (r.next - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}
