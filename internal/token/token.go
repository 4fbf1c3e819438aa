// Package token implements the Token Manager: owns the bot's access and refresh tokens,
// validates them against the upstream OAuth endpoints, refreshes proactively before
// expiry, and notifies registered consumers (the chat client) of a new access token. Uses
// the refresh_token bot-credential grant rather than a client_credentials app-token grant.
package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/subculture-collective/clipqueue/pkg/utils"
)

const (
	monitorPeriod = 24 * time.Hour
	proactiveLead = 2 * time.Hour
)

// tokenURLVar and validateURLVar are vars rather than consts so tests can point them at an
// httptest server; production code never reassigns them.
var (
	tokenURLVar    = "https://id.twitch.tv/oauth2/token"    // #nosec G101 -- OAuth endpoint URL, not a credential
	validateURLVar = "https://id.twitch.tv/oauth2/validate" // #nosec G101
)

// ErrNoRefreshToken is returned when RefreshToken is called without a refresh token on
// file; the operator must re-run the OAuth setup flow.
var ErrNoRefreshToken = errors.New("token: no refresh token on file, re-run setup")

// RefreshRejectedError wraps an HTTP 400 from the token endpoint (refresh token revoked
// or expired).
type RefreshRejectedError struct {
	Body string
}

func (e *RefreshRejectedError) Error() string {
	return fmt.Sprintf("token: refresh rejected: %s", e.Body)
}

// NetworkError wraps a transport-level failure talking to the token endpoint.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("token: network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// Credentials is the pair persisted to the process's configuration source on refresh.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// ValidateResult mirrors the upstream OAuth validate endpoint's response.
type ValidateResult struct {
	IsValid   bool
	ExpiresIn time.Duration
	UserID    string
	Login     string
}

// PersistFunc writes refreshed credentials back to the process's configuration source
// (e.g. an .env-style file).
type PersistFunc func(Credentials) error

// Manager owns the bot's access/refresh token pair and its refresh lifecycle.
type Manager struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client
	persist      PersistFunc

	mu           sync.RWMutex
	accessToken  string
	refreshToken string

	callbacksMu sync.Mutex
	callbacks   []func(accessToken string)

	stopCh  chan struct{}
	running bool
	runMu   sync.Mutex
}

// New creates a Manager seeded with the bot's current access/refresh tokens.
func New(clientID, clientSecret, accessToken, refreshToken string, persist PersistFunc) *Manager {
	return &Manager{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		persist:      persist,
		accessToken:  accessToken,
		refreshToken: refreshToken,
	}
}

// GetAccessToken returns the current access token.
func (m *Manager) GetAccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken
}

// OnRefresh registers a callback invoked with the new access token after every
// successful refresh, modeled as a callback registry since multiple consumers may listen.
func (m *Manager) OnRefresh(cb func(accessToken string)) {
	m.callbacksMu.Lock()
	defer m.callbacksMu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

func (m *Manager) notifyRefresh(accessToken string) {
	m.callbacksMu.Lock()
	cbs := append([]func(string){}, m.callbacks...)
	m.callbacksMu.Unlock()
	for _, cb := range cbs {
		cb(accessToken)
	}
}

// Validate calls the upstream OAuth validate endpoint for the current access token.
func (m *Manager) Validate(ctx context.Context) (*ValidateResult, error) {
	token := m.GetAccessToken()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, validateURLVar, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("token: build validate request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+token) // #nosec G101 (OAuth token, not a credential literal)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return &ValidateResult{IsValid: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("token: validate failed with status %d: %s", resp.StatusCode, string(body))
	}

	var v struct {
		UserID    string `json:"user_id"`
		Login     string `json:"login"`
		ExpiresIn int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("token: decode validate response: %w", err)
	}

	return &ValidateResult{
		IsValid:   true,
		ExpiresIn: time.Duration(v.ExpiresIn) * time.Second,
		UserID:    v.UserID,
		Login:     v.Login,
	}, nil
}

// RefreshToken exchanges the refresh token for a new access/refresh token pair, persists
// both, then notifies registered consumers.
func (m *Manager) RefreshToken(ctx context.Context) error {
	m.mu.RLock()
	refreshToken := m.refreshToken
	m.mu.RUnlock()

	if refreshToken == "" {
		return ErrNoRefreshToken
	}

	data := url.Values{}
	data.Set("client_id", m.clientID)
	data.Set("client_secret", m.clientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURLVar, http.NoBody)
	if err != nil {
		return fmt.Errorf("token: build refresh request: %w", err)
	}
	req.URL.RawQuery = data.Encode()
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		return &RefreshRejectedError{Body: string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("token: refresh failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("token: decode refresh response: %w", err)
	}

	m.mu.Lock()
	m.accessToken = tokenResp.AccessToken
	m.refreshToken = tokenResp.RefreshToken
	m.mu.Unlock()

	if m.persist != nil {
		if err := m.persist(Credentials{AccessToken: tokenResp.AccessToken, RefreshToken: tokenResp.RefreshToken}); err != nil {
			utils.GetLogger().Warn("failed to persist refreshed token", map[string]interface{}{"error": err.Error()})
		}
	}

	m.notifyRefresh(tokenResp.AccessToken)
	return nil
}

// StartMonitoring runs validation immediately, then every 24h while active. If a
// validation reports expiresIn < 2h, it refreshes proactively. Safe to call once; a
// second call while already running is a no-op.
func (m *Manager) StartMonitoring(ctx context.Context) {
	m.runMu.Lock()
	if m.running {
		m.runMu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh
	m.runMu.Unlock()

	go func() {
		m.checkAndMaybeRefresh(ctx)

		ticker := time.NewTicker(monitorPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.checkAndMaybeRefresh(ctx)
			case <-stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Manager) checkAndMaybeRefresh(ctx context.Context) {
	result, err := m.Validate(ctx)
	if err != nil {
		utils.GetLogger().Warn("token validation failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if !result.IsValid || result.ExpiresIn < proactiveLead {
		if err := m.RefreshToken(ctx); err != nil {
			utils.GetLogger().Warn("token refresh failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// StopMonitoring halts the background monitor started by StartMonitoring.
func (m *Manager) StopMonitoring() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.running {
		return
	}
	close(m.stopCh)
	m.running = false
}
