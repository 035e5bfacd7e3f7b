package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounter is the per-process fallback counter. It is explicitly
// constructed and injected rather than living as package state, so tests
// can supply a fresh store and a deterministic clock.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	now     func() time.Time
}

type memEntry struct {
	count   int64
	resetAt time.Time
}

// NewMemoryCounter creates an in-process counter. now may be nil, in which
// case the wall clock is used.
func NewMemoryCounter(now func() time.Time) *MemoryCounter {
	if now == nil {
		now = time.Now
	}
	return &MemoryCounter{
		entries: make(map[string]*memEntry),
		now:     now,
	}
}

// Incr increments the window counter for key, starting a new window when
// the previous one has elapsed. It never returns an error.
func (m *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &memEntry{resetAt: now.Add(window)}
		m.entries[key] = e
		m.sweepLocked(now)
	}
	e.count++
	return e.count, e.resetAt.Sub(now), nil
}

// sweepLocked drops expired windows so the map does not grow unbounded
// across many distinct keys. Caller holds the lock.
func (m *MemoryCounter) sweepLocked(now time.Time) {
	if len(m.entries) < 1024 {
		return
	}
	for k, e := range m.entries {
		if !now.Before(e.resetAt) {
			delete(m.entries, k)
		}
	}
}
