// Package ratelimit implements the per-route request limiter: a fixed window
// that fully resets once it expires. Bursts at window boundaries are possible
// and intentional; the retry-after value clients see depends on this exact
// behavior, so it must not be replaced with a stricter sliding window.
package ratelimit

import (
	"math"
	"sync"
	"time"
)

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter tracks request counts per key. State is process-local and not
// preserved across restarts. One Limiter is shared by all routes; each route
// supplies its own (maxRequests, window) pair to Allow.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	// now is swapped in tests.
	now func() time.Time
}

func New() *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allow records a request for key and reports whether it is within the limit.
// When rejected, retryAfter holds the whole seconds until the window resets,
// rounded up.
func (l *Limiter) Allow(key string, maxRequests int, window time.Duration) (allowed bool, retryAfter int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// A zero budget can never be satisfied, regardless of window state.
	if maxRequests <= 0 {
		return false, ceilSeconds(window)
	}

	e, ok := l.entries[key]
	if !ok || now.After(e.resetAt) {
		l.entries[key] = &entry{count: 1, resetAt: now.Add(window)}
		return true, 0
	}

	if e.count >= maxRequests {
		return false, ceilSeconds(e.resetAt.Sub(now))
	}

	e.count++
	return true, 0
}

// Cleanup drops entries whose window expired before now. Called periodically
// so the table does not grow without bound.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, e := range l.entries {
		if now.After(e.resetAt) {
			delete(l.entries, key)
		}
	}
}

func ceilSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
