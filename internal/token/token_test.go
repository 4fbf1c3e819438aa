package token

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetAccessTokenReturnsSeeded(t *testing.T) {
	m := New("cid", "secret", "initial-token", "refresh-token", nil)
	if m.GetAccessToken() != "initial-token" {
		t.Errorf("expected initial-token, got %s", m.GetAccessToken())
	}
}

func TestRefreshTokenNoRefreshTokenOnFile(t *testing.T) {
	m := New("cid", "secret", "initial-token", "", nil)
	err := m.RefreshToken(context.Background())
	if err != ErrNoRefreshToken {
		t.Errorf("expected ErrNoRefreshToken, got %v", err)
	}
}

func TestRefreshTokenSuccessNotifiesCallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_in":    14400,
		})
	}))
	defer server.Close()

	m := New("cid", "secret", "old-access", "old-refresh", nil)
	m.httpClient = server.Client()
	overrideTokenURLForTest(t, server.URL)

	var notified string
	m.OnRefresh(func(token string) { notified = token })

	if err := m.RefreshToken(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.GetAccessToken() != "new-access" {
		t.Errorf("expected access token to update, got %s", m.GetAccessToken())
	}
	if notified != "new-access" {
		t.Errorf("expected callback to be notified with new-access, got %s", notified)
	}
}

func TestRefreshTokenRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid refresh token"}`))
	}))
	defer server.Close()

	m := New("cid", "secret", "old-access", "old-refresh", nil)
	m.httpClient = server.Client()
	overrideTokenURLForTest(t, server.URL)

	err := m.RefreshToken(context.Background())
	if _, ok := err.(*RefreshRejectedError); !ok {
		t.Errorf("expected RefreshRejectedError, got %T: %v", err, err)
	}
}

func TestValidateInvalidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	m := New("cid", "secret", "expired", "refresh", nil)
	m.httpClient = server.Client()
	overrideValidateURLForTest(t, server.URL)

	result, err := m.Validate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsValid {
		t.Error("expected IsValid=false for a 401 response")
	}
}

func TestStartStopMonitoringIsIdempotent(t *testing.T) {
	m := New("cid", "secret", "token", "refresh", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.StartMonitoring(ctx)
	m.StartMonitoring(ctx) // second call must be a no-op, not panic on double-close
	time.Sleep(10 * time.Millisecond)
	m.StopMonitoring()
	m.StopMonitoring() // idempotent
}

// overrideTokenURLForTest and overrideValidateURLForTest point the package-level endpoint
// variables (tokenURLVar, validateURLVar) at an httptest server for one test and restore
// the originals on cleanup.
func overrideTokenURLForTest(t *testing.T, url string) {
	t.Helper()
	origTokenURL := tokenURLVar
	tokenURLVar = url
	t.Cleanup(func() { tokenURLVar = origTokenURL })
}

func overrideValidateURLForTest(t *testing.T, url string) {
	t.Helper()
	origValidateURL := validateURLVar
	validateURLVar = url
	t.Cleanup(func() { validateURLVar = origValidateURL })
}
