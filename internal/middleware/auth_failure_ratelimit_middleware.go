package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
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
	authFailFallbackLimiter   *InMemoryRateLimiter
	authFailFallbackLimiterMu sync.Mutex
)

// AuthFailureLimitMiddleware enforces the independent "auth failures" bucket: it
// counts only responses that end in 401/403 (as RequireRole sets them), rather
// than every authenticated request like RateLimitMiddleware's authLimit does. It must
// be installed ahead of RequireRole on a route group so it can both pre-empt an
// already-exhausted caller and inspect the status RequireRole sets downstream.
func AuthFailureLimitMiddleware(redis *redispkg.Client, requests int, window time.Duration) gin.HandlerFunc {
	authFailFallbackLimiterMu.Lock()
	if authFailFallbackLimiter == nil {
		authFailFallbackLimiter = NewInMemoryRateLimiter(requests, window)
	}
	authFailFallbackLimiterMu.Unlock()

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if isIPWhitelisted(ip) {
			c.Next()
			return
		}

		if redis == nil {
			runAuthFailureFallback(c, ip)
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("ratelimit:authfail:%s", ip)

		blocked, err := authFailureBlocked(ctx, redis, key, requests)
		if err != nil {
			utils.GetLogger().Warn("auth failure rate limit redis check failed, using fallback", map[string]interface{}{"error": err.Error()})
			runAuthFailureFallback(c, ip)
			return
		}
		if blocked {
			respondAuthFailureLimited(c)
			return
		}

		c.Next()

		if isAuthFailureStatus(c.Writer.Status()) {
			count, err := redis.Increment(ctx, key)
			if err != nil {
				utils.GetLogger().Warn("auth failure rate limit redis increment failed", map[string]interface{}{"error": err.Error()})
				return
			}
			if count == 1 {
				_ = redis.Expire(ctx, key, window)
			}
		}
	}
}

func runAuthFailureFallback(c *gin.Context, ip string) {
	if authFailFallbackLimiter.Peek(ip) {
		respondAuthFailureLimited(c)
		return
	}
	c.Next()
	if isAuthFailureStatus(c.Writer.Status()) {
		authFailFallbackLimiter.Record(ip)
	}
}

func authFailureBlocked(ctx context.Context, redis *redispkg.Client, key string, requests int) (bool, error) {
	val, err := redis.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, nil
	}
	return count >= int64(requests), nil
}

func isAuthFailureStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func respondAuthFailureLimited(c *gin.Context) {
	apperr.Respond(c, apperr.New(apperr.CodeRateLimited, "too many authentication failures"))
	c.Abort()
}
