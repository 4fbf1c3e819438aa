package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/subculture-collective/clipqueue/internal/apperr"
	redispkg "github.com/subculture-collective/clipqueue/pkg/redis"
	"github.com/subculture-collective/clipqueue/pkg/utils"
)

var (
	ipFallbackLimiter   *InMemoryRateLimiter
	ipFallbackLimiterMu sync.Mutex

	rateLimitWhitelist   = map[string]bool{"127.0.0.1": true, "::1": true}
	rateLimitWhitelistMu sync.RWMutex
)

// InitRateLimitWhitelist seeds the IP whitelist from configuration. Call once at startup.
func InitRateLimitWhitelist(whitelistIPs string) {
	rateLimitWhitelistMu.Lock()
	defer rateLimitWhitelistMu.Unlock()
	for _, ip := range splitAndTrim(whitelistIPs) {
		rateLimitWhitelist[ip] = true
	}
}

func splitAndTrim(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			field := trimSpace(s[start:i])
			if field != "" {
				out = append(out, field)
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	for len(s) > 0 && s[0] == ' ' {
		s = s[1:]
	}
	for len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	return s
}

func isIPWhitelisted(ip string) bool {
	rateLimitWhitelistMu.RLock()
	defer rateLimitWhitelistMu.RUnlock()
	return rateLimitWhitelist[ip]
}

// RateLimitMiddleware throttles REST traffic per client IP with a Redis-backed sliding
// window, falling back to an in-memory limiter when Redis is unreachable. This is the
// ambient REST abuse guard (returning the RATE_LIMITED error code); it is independent of
// the submission-specific 60s per-submitter cache in internal/guard.
func RateLimitMiddleware(redis *redispkg.Client, requests int, window time.Duration) gin.HandlerFunc {
	ipFallbackLimiterMu.Lock()
	if ipFallbackLimiter == nil {
		ipFallbackLimiter = NewInMemoryRateLimiter(requests, window)
	}
	ipFallbackLimiterMu.Unlock()

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if isIPWhitelisted(ip) {
			c.Header("X-RateLimit-Bypass", "whitelisted")
			c.Next()
			return
		}

		if redis == nil {
			enforceFallback(c, ip, requests)
			return
		}

		ctx := c.Request.Context()
		now := time.Now()
		windowSeconds := int64(window.Seconds())
		currentWindow := now.Unix() / windowSeconds
		key := fmt.Sprintf("ratelimit:%s:%s", c.Request.URL.Path, ip)
		currentKey := fmt.Sprintf("%s:%d", key, currentWindow)
		previousKey := fmt.Sprintf("%s:%d", key, currentWindow-1)

		pipe := redis.Pipeline()
		currentCmd := pipe.Get(ctx, currentKey)
		previousCmd := pipe.Get(ctx, previousKey)
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, goredis.Nil) {
			utils.GetLogger().Warn("rate limit redis pipeline failed, using fallback", map[string]interface{}{"error": err.Error()})
			enforceFallback(c, ip, requests)
			return
		}

		currentCount := parseCount(currentCmd)
		previousCount := parseCount(previousCmd)

		elapsed := float64(now.Unix() % windowSeconds)
		weight := (float64(windowSeconds) - elapsed) / float64(windowSeconds)
		weighted := int64(float64(previousCount)*weight) + currentCount

		if weighted >= int64(requests) {
			retryAfter := int(float64(windowSeconds) - elapsed)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			apperr.Respond(c, apperr.New(apperr.CodeRateLimited, "rate limit exceeded"))
			c.Abort()
			return
		}

		count, err := redis.Increment(ctx, currentKey)
		if err != nil {
			utils.GetLogger().Warn("rate limit redis increment failed, using fallback", map[string]interface{}{"error": err.Error()})
			enforceFallback(c, ip, requests)
			return
		}
		if count == 1 {
			_ = redis.Expire(ctx, currentKey, window*2)
		}

		remaining := int64(requests) - (weighted + 1)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(requests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		c.Next()
	}
}

func parseCount(cmd *goredis.StringCmd) int64 {
	val, err := cmd.Result()
	if err != nil {
		return 0
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func enforceFallback(c *gin.Context, ip string, requests int) {
	allowed, remaining := ipFallbackLimiter.Allow(ip)
	c.Header("X-RateLimit-Limit", strconv.Itoa(requests))
	c.Header("X-RateLimit-Fallback", "true")
	if !allowed {
		c.Header("X-RateLimit-Remaining", "0")
		apperr.Respond(c, apperr.New(apperr.CodeRateLimited, "rate limit exceeded"))
		c.Abort()
		return
	}
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Next()
}
