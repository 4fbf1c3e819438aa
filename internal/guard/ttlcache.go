package guard

import (
	"sync"
	"time"
)

// TTLCache is a self-cleaning "have I seen this key recently" marker: a map of per-key
// state plus a background ticker that sweeps expired entries so the map never grows
// unbounded. Unlike the rate limiter (which keeps a sliding window of timestamps per
// key), a TTLCache only needs the single most recent mark, matching the
// duplicate-submission short-circuit's "seen within window" semantics.
type TTLCache struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	stopCh  chan struct{}
}

// NewTTLCache creates a cache and starts its background sweep, running every
// sweepInterval until Stop is called.
func NewTTLCache(sweepInterval time.Duration) *TTLCache {
	c := &TTLCache{
		entries: make(map[string]time.Time),
		stopCh:  make(chan struct{}),
	}
	go c.sweepLoop(sweepInterval)
	return c
}

// Seen reports whether key was already marked and still within its window, and marks it
// with a fresh expiry of now+window regardless. Callers use the boolean to decide
// whether to drop a duplicate submission.
func (c *TTLCache) Seen(key string, window time.Duration) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	expiry, ok := c.entries[key]
	wasSeen := ok && now.Before(expiry)
	c.entries[key] = now.Add(window)
	return wasSeen
}

func (c *TTLCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopCh:
			return
		}
	}
}

func (c *TTLCache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, expiry := range c.entries {
		if now.After(expiry) {
			delete(c.entries, k)
		}
	}
}

// Stop halts the background sweep goroutine.
func (c *TTLCache) Stop() {
	close(c.stopCh)
}

// Submission TTLs for the duplicate-submission short-circuit: UserSubmissionTTL caps how
// often a single submitter's URL is accepted, UrlSubmissionTTL caps how often the same
// URL is accepted regardless of submitter.
const (
	UserSubmissionTTL = 60 * time.Second
	UrlSubmissionTTL  = 5 * time.Second
)

// SubmissionCaches bundles the two caches and the per-platform burst guard the
// submission pipeline consults.
type SubmissionCaches struct {
	User     *TTLCache
	URL      *TTLCache
	Platform *BurstGuard
}

// NewSubmissionCaches creates both caches with a shared sweep cadence, plus a
// per-platform token bucket (5/s, burst 10) that protects upstream resolver APIs from
// a thundering herd of distinct submitters all submitting at once.
func NewSubmissionCaches() *SubmissionCaches {
	return &SubmissionCaches{
		User:     NewTTLCache(30 * time.Second),
		URL:      NewTTLCache(5 * time.Second),
		Platform: NewBurstGuard(5, 10),
	}
}

// Stop halts both caches' background sweeps.
func (s *SubmissionCaches) Stop() {
	s.User.Stop()
	s.URL.Stop()
}
