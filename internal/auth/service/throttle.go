package service

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// throttle holds per-identity limiters and failure counters. Unknown and known
// identities share the same bookkeeping.
type throttle struct {
	entries     sync.Map // map[string]*throttleEntry
	rps         float64
	burst       int
	maxAttempts int
	lockout     time.Duration
}

type throttleEntry struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	failures    int
	lockedUntil time.Time
	lastAccess  time.Time
}

// NewThrottle creates a throttle allowing rps attempts per second with burst,
// locking an identity for lockout after maxAttempts consecutive failures.
func NewThrottle(rps float64, burst, maxAttempts int, lockout time.Duration) Throttle {
	return &throttle{
		rps:         rps,
		burst:       burst,
		maxAttempts: maxAttempts,
		lockout:     lockout,
	}
}

func (t *throttle) entry(identity string) *throttleEntry {
	key := strings.ToLower(strings.TrimSpace(identity))
	if val, ok := t.entries.Load(key); ok {
		return val.(*throttleEntry)
	}
	val, _ := t.entries.LoadOrStore(key, &throttleEntry{
		limiter: rate.NewLimiter(rate.Limit(t.rps), t.burst),
	})
	return val.(*throttleEntry)
}

// Allow rejects attempts while the identity is locked or its limiter is exhausted.
func (t *throttle) Allow(identity string, now time.Time) bool {
	e := t.entry(identity)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastAccess = now
	if now.Before(e.lockedUntil) {
		return false
	}
	return e.limiter.AllowN(now, 1)
}

// Fail counts a failure; reaching maxAttempts locks the identity and resets the counter.
func (t *throttle) Fail(identity string, now time.Time) bool {
	e := t.entry(identity)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastAccess = now
	e.failures++
	if e.failures >= t.maxAttempts {
		e.failures = 0
		e.lockedUntil = now.Add(t.lockout)
		return true
	}
	return false
}

// Succeed resets the failure counter.
func (t *throttle) Succeed(identity string) {
	e := t.entry(identity)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failures = 0
	e.lockedUntil = time.Time{}
}

// Prune removes idle entries so the map does not grow with every guessed name.
func (t *throttle) Prune(threshold time.Time) {
	t.entries.Range(func(key, value any) bool {
		e := value.(*throttleEntry)
		e.mu.Lock()
		stale := e.lastAccess.Before(threshold) && !threshold.Before(e.lockedUntil)
		e.mu.Unlock()

		if stale {
			t.entries.Delete(key)
		}
		return true
	})
}
