package twitch

import "fmt"

// Typed errors this package's Client and AuthManager return, so callers in
// internal/resolver (C3) and internal/auth (C9) can distinguish failure modes without
// string-matching.
type (
	// AuthError wraps a failure to obtain or refresh the app access token
	// (AuthManager.RefreshToken). internal/token.Manager has its own distinct error
	// path for the bot-account token it manages; this one is Helix-client-local.
	AuthError struct {
		Message string
		Err     error
	}

	// RateLimitError is returned when Helix itself rejects a request as rate-limited
	// (distinct from RateLimiter, which throttles proactively to stay under that limit).
	RateLimitError struct {
		Message    string
		RetryAfter int
		Err        error
	}

	// APIError wraps a non-2xx Helix response; GetClips/GetUserByID/GetModerators
	// (endpoints.go) all surface it so C3's resolve retries and C9's role cache miss
	// on 404 rather than on every error.
	APIError struct {
		StatusCode int
		Message    string
		Err        error
	}

	// CircuitBreakerError is returned by CircuitBreaker.Allow while open, short-circuiting
	// Helix calls during a sustained upstream outage instead of queuing behind RateLimiter.
	CircuitBreakerError struct {
		Message string
	}
)

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("auth error: %s", e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *RateLimitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rate limit error: %s (retry after %d seconds): %v", e.Message, e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limit error: %s (retry after %d seconds)", e.Message, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("circuit breaker open: %s", e.Message)
}
