package guard

import (
	"sync"

	"golang.org/x/time/rate"
)

// BurstGuard is a per-key token bucket, distinct from TTLCache's "seen within window"
// dedupe: the submission pipeline keys it by platform, so it caps how many submissions
// of any URLs or submitters reach one platform's resolver in a short burst, rather than
// flagging repeats.
type BurstGuard struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

// NewBurstGuard creates a guard allowing each key r events per second with the given
// burst size.
func NewBurstGuard(r rate.Limit, burst int) *BurstGuard {
	return &BurstGuard{
		limiters: make(map[string]*rate.Limiter),
		r:        r,
		burst:    burst,
	}
}

// Allow reports whether key has a token available and consumes it if so.
func (g *BurstGuard) Allow(key string) bool {
	g.mu.Lock()
	limiter, ok := g.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(g.r, g.burst)
		g.limiters[key] = limiter
	}
	g.mu.Unlock()
	return limiter.Allow()
}
