package chatclient

import (
	"crypto/rand"
	"math/big"
	"time"
)

const (
	backoffBase           = 1 * time.Second
	backoffBaseRateLimited = 60 * time.Second
	backoffCap            = 5 * time.Minute
	backoffJitterFraction = 0.25
)

// nextBackoff computes the delay before the next reconnect attempt: base 1s (or 60s if
// the last failure was a rate limit), capped at 5min, with ±25% jitter. Uses crypto/rand
// rather than math/rand for the jitter draw, matching pkg/twitch/client.go's
// jitteredBackoff (thread-safe without a seeded global generator).
func nextBackoff(attempt int, rateLimited bool) time.Duration {
	base := backoffBase
	if rateLimited {
		base = backoffBaseRateLimited
	}

	if attempt > 20 {
		attempt = 20
	}
	delay := base * time.Duration(int64(1)<<uint(attempt))
	if delay > backoffCap || delay <= 0 {
		delay = backoffCap
	}

	jitterRange := time.Duration(float64(delay) * backoffJitterFraction)
	if jitterRange <= 0 {
		return delay
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(2*jitterRange)))
	if err != nil {
		return delay
	}
	offset := time.Duration(n.Int64()) - jitterRange
	result := delay + offset
	if result < 0 {
		result = 0
	}
	return result
}
