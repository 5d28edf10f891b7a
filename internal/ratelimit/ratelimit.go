// Package ratelimit bounds message frequency per connection per message
// type using fixed-window counters.
package ratelimit

import (
	"strings"
	"sync"
	"time"
)

// counter is one (connection, message-type) throttle window.
type counter struct {
	count   int
	resetAt time.Time
}

// Limiter tracks fixed-window counters keyed by an opaque string,
// conventionally "<message-type>:<connection-id>".
//
// This is a fixed window, not a sliding log: bursts straddling a window
// boundary can momentarily admit up to twice the ceiling. The tradeoff
// buys O(1) memory and CPU per check.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*counter

	now func() time.Time // overridable in tests
}

// NewLimiter creates an empty Limiter.
func NewLimiter() *Limiter {
	return &Limiter{
		entries: make(map[string]*counter),
		now:     time.Now,
	}
}

// Allow reports whether another event is admitted for key. A missing or
// expired counter is reset to count 1 with a fresh window. A counter at
// or above maxEvents rejects without incrementing.
func (l *Limiter) Allow(key string, maxEvents int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c := l.entries[key]
	if c == nil || c.resetAt.Before(now) {
		l.entries[key] = &counter{count: 1, resetAt: now.Add(window)}
		return true
	}

	if c.count >= maxEvents {
		return false
	}

	c.count++
	return true
}

// Forget drops all counters whose key ends in suffix. Called with
// ":<connection-id>" on disconnect so churned connections do not
// accumulate counters.
func (l *Limiter) Forget(suffix string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k := range l.entries {
		if strings.HasSuffix(k, suffix) {
			delete(l.entries, k)
		}
	}
}

// Size returns the number of live counters.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
