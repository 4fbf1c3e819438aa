package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	redispkg "github.com/subculture-collective/clipqueue/pkg/redis"
)

func newAuthFailureRouter(requests int, window time.Duration, status int) *gin.Engine {
	router := gin.New()
	router.Use(AuthFailureLimitMiddleware((*redispkg.Client)(nil), requests, window))
	router.GET("/test", func(c *gin.Context) {
		c.Status(status)
	})
	return router
}

func TestAuthFailureLimitMiddleware_OnlyCountsFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authFailFallbackLimiter = nil

	router := newAuthFailureRouter(2, time.Minute, http.StatusOK)
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "198.51.100.1:1234"
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("success request %d: expected 200, got %d", i+1, w.Code)
		}
	}
}

func TestAuthFailureLimitMiddleware_BlocksAfterLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authFailFallbackLimiter = nil

	router := newAuthFailureRouter(2, time.Minute, http.StatusUnauthorized)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "198.51.100.2:1234"
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("failure %d: expected 401, got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "198.51.100.2:1234"
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("3rd failure: expected 429, got %d", w.Code)
	}
}

func TestAuthFailureLimitMiddleware_ForbiddenAlsoCounts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authFailFallbackLimiter = nil

	router := newAuthFailureRouter(1, time.Minute, http.StatusForbidden)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "198.51.100.3:1234"
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "198.51.100.3:1234"
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("2nd request after a single-request limit: expected 429, got %d", w.Code)
	}
}

func TestAuthFailureLimitMiddleware_WhitelistBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authFailFallbackLimiter = nil
	InitRateLimitWhitelist("203.0.113.9")

	router := newAuthFailureRouter(1, time.Minute, http.StatusUnauthorized)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "203.0.113.9:1234"
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("whitelisted request %d: expected 401 passthrough, got %d", i+1, w.Code)
		}
	}
}
