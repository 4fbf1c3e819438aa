package chatclient

import (
	"testing"
	"time"
)

func TestNextBackoffGrowsWithAttempt(t *testing.T) {
	d0 := nextBackoff(0, false)
	d5 := nextBackoff(5, false)
	if d5 <= d0 {
		t.Errorf("expected backoff to grow with attempt, got d0=%v d5=%v", d0, d5)
	}
}

func TestNextBackoffCapsAtFiveMinutes(t *testing.T) {
	d := nextBackoff(30, false)
	max := backoffCap + time.Duration(float64(backoffCap)*backoffJitterFraction)
	if d > max {
		t.Errorf("expected backoff to cap near %v, got %v", max, d)
	}
}

func TestNextBackoffRateLimitedUsesLargerBase(t *testing.T) {
	normal := nextBackoff(0, false)
	limited := nextBackoff(0, true)
	if limited <= normal {
		t.Errorf("expected rate-limited backoff to exceed normal backoff, got normal=%v limited=%v", normal, limited)
	}
}
