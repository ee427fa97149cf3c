package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func newTestLimiter(start time.Time) (*Limiter, *time.Time) {
	now := start
	l := New()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestFirstRequestAllowedSecondRejected(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))

	allowed, _ := l.Allow("key", 1, time.Minute)
	if !allowed {
		t.Fatal("Expected first request to be allowed")
	}

	allowed, retryAfter := l.Allow("key", 1, time.Minute)
	if allowed {
		t.Fatal("Expected second request within the window to be rejected")
	}
	if retryAfter <= 0 {
		t.Errorf("Expected positive retryAfter, got %d", retryAfter)
	}
}

func TestZeroBudgetAlwaysRejects(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))

	for i := 0; i < 3; i++ {
		allowed, retryAfter := l.Allow("key", 0, time.Minute)
		if allowed {
			t.Fatal("Expected maxRequests=0 to always reject")
		}
		if retryAfter != 60 {
			t.Errorf("Expected retryAfter=60, got %d", retryAfter)
		}
	}
}

func TestWindowResetsAfterExpiry(t *testing.T) {
	l, now := newTestLimiter(time.Unix(1000, 0))

	for i := 0; i < 3; i++ {
		if allowed, _ := l.Allow("key", 3, time.Minute); !allowed {
			t.Fatalf("Expected request %d to be allowed", i+1)
		}
	}

	if allowed, _ := l.Allow("key", 3, time.Minute); allowed {
		t.Fatal("Expected fourth request to be rejected")
	}

	*now = now.Add(time.Minute + time.Second)

	if allowed, _ := l.Allow("key", 3, time.Minute); !allowed {
		t.Fatal("Expected request after window expiry to be allowed")
	}
}

func TestRetryAfterRoundsUp(t *testing.T) {
	l, now := newTestLimiter(time.Unix(1000, 0))

	l.Allow("key", 1, time.Minute)
	*now = now.Add(30*time.Second + 500*time.Millisecond)

	_, retryAfter := l.Allow("key", 1, time.Minute)
	if retryAfter != 30 {
		t.Errorf("Expected retryAfter=30 (ceil of 29.5s), got %d", retryAfter)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1000, 0))

	if allowed, _ := l.Allow("a", 1, time.Minute); !allowed {
		t.Fatal("Expected first request for key a to be allowed")
	}
	if allowed, _ := l.Allow("b", 1, time.Minute); !allowed {
		t.Fatal("Expected first request for key b to be allowed")
	}
	if allowed, _ := l.Allow("a", 1, time.Minute); allowed {
		t.Fatal("Expected second request for key a to be rejected")
	}
}

func TestCleanupDropsExpiredEntries(t *testing.T) {
	l, now := newTestLimiter(time.Unix(1000, 0))

	l.Allow("stale", 5, time.Minute)
	*now = now.Add(2 * time.Minute)
	l.Allow("fresh", 5, time.Minute)

	l.Cleanup()

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries["stale"]; ok {
		t.Error("Expected stale entry to be removed")
	}
	if _, ok := l.entries["fresh"]; !ok {
		t.Error("Expected fresh entry to survive cleanup")
	}
}

func TestConcurrentAccessDoesNotLoseUpdates(t *testing.T) {
	l := New()

	const workers = 20
	const perWorker = 50

	var wg sync.WaitGroup
	allowed := make([]int, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if ok, _ := l.Allow("shared", 100, time.Hour); ok {
					allowed[w]++
				}
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, n := range allowed {
		total += n
	}
	if total != 100 {
		t.Errorf("Expected exactly 100 allowed requests, got %d", total)
	}
}
