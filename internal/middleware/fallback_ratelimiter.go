package middleware

import (
	"sync"
	"time"
)

// InMemoryRateLimiter is the fallback used when Redis is unreachable. Sliding window,
// one entry per key, with a background sweep so keys for IPs that stop sending requests
// don't accumulate forever.
type InMemoryRateLimiter struct {
	requests sync.Map // map[string]*requestWindow
	window   time.Duration
	limit    int
}

type requestWindow struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// NewInMemoryRateLimiter creates a limiter and starts its cleanup goroutine.
func NewInMemoryRateLimiter(limit int, window time.Duration) *InMemoryRateLimiter {
	limiter := &InMemoryRateLimiter{window: window, limit: limit}
	go limiter.cleanup()
	return limiter
}

// Allow reports whether key may proceed, and how many requests remain in its window.
func (r *InMemoryRateLimiter) Allow(key string) (bool, int) {
	now := time.Now()

	val, _ := r.requests.LoadOrStore(key, &requestWindow{timestamps: make([]time.Time, 0)})
	window := val.(*requestWindow)

	window.mu.Lock()
	defer window.mu.Unlock()

	cutoff := now.Add(-r.window)
	valid := window.timestamps[:0]
	for _, ts := range window.timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	window.timestamps = valid

	if len(window.timestamps) >= r.limit {
		return false, 0
	}

	window.timestamps = append(window.timestamps, now)
	return true, r.limit - len(window.timestamps)
}

// Peek reports whether key is already at its limit, without recording a new entry.
// Used by limiters that only want to count a subset of events (e.g. failures).
func (r *InMemoryRateLimiter) Peek(key string) bool {
	now := time.Now()
	val, ok := r.requests.Load(key)
	if !ok {
		return false
	}
	window := val.(*requestWindow)

	window.mu.Lock()
	defer window.mu.Unlock()

	cutoff := now.Add(-r.window)
	count := 0
	for _, ts := range window.timestamps {
		if ts.After(cutoff) {
			count++
		}
	}
	return count >= r.limit
}

// Record appends one entry for key unconditionally, independent of Allow's
// check-and-record combination.
func (r *InMemoryRateLimiter) Record(key string) {
	now := time.Now()
	val, _ := r.requests.LoadOrStore(key, &requestWindow{timestamps: make([]time.Time, 0)})
	window := val.(*requestWindow)

	window.mu.Lock()
	defer window.mu.Unlock()
	window.timestamps = append(window.timestamps, now)
}

func (r *InMemoryRateLimiter) cleanup() {
	ticker := time.NewTicker(r.window * 2)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-r.window * 3)
		r.requests.Range(func(key, val interface{}) bool {
			window := val.(*requestWindow)
			window.mu.Lock()
			allOld := true
			for _, ts := range window.timestamps {
				if ts.After(cutoff) {
					allOld = false
					break
				}
			}
			window.mu.Unlock()
			if allOld {
				r.requests.Delete(key)
			}
			return true
		})
	}
}
