// Package chatclient implements a single long-lived outbound WebSocket to the upstream
// chat push API, dispatching normalized chat messages into the command engine. Its
// connect/read loop mirrors a ReadPump/WritePump/ping-pong shape, inverted from an
// inbound Upgrade to an outbound websocket.DefaultDialer.DialContext.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/subculture-collective/clipqueue/pkg/metrics"
	"github.com/subculture-collective/clipqueue/pkg/utils"
)

// State is a lifecycle state of the client's single cooperative connection task:
// disconnected -> connecting -> subscribing -> active -> (reconnecting | disconnected).
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribing
	StateActive
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// ChatMessage is the normalized shape delivered to the registered Handler.
type ChatMessage struct {
	Username      string
	Text          string
	IsModerator   bool
	IsBroadcaster bool
}

// Handler is invoked once per inbound chat message, on the client's single read goroutine.
type Handler func(msg ChatMessage)

// TokenProvider is the slice of internal/token.Manager the chat client depends on: read
// the current bot token, and attempt a refresh when the upstream rejects it with 401.
type TokenProvider interface {
	GetAccessToken() string
	RefreshToken(ctx context.Context) error
}

// Config configures a Client. WSURL, SubscribeURL, ClientID, BroadcasterID and BotUserID
// are all required; Dialer and HTTPClient default when left zero.
type Config struct {
	WSURL         string
	SubscribeURL  string
	ClientID      string
	BroadcasterID string
	BotUserID     string
	TokenProvider TokenProvider
	Handler       Handler
	Dialer        *websocket.Dialer
	HTTPClient    *http.Client
}

// Client owns the single outbound WebSocket connection and its reconnect loop. No
// parallelism within the client: one goroutine drives connect/subscribe/read as a single
// cooperative task.
type Client struct {
	cfg Config

	state atomic.Int32

	mu            sync.RWMutex
	conn          *websocket.Conn
	connectedAt   time.Time
	lastMessageAt time.Time

	stopCh  chan struct{}
	doneCh  chan struct{}
	runMu   sync.Mutex
	running bool
}

// New constructs a Client. Handler and TokenProvider must be non-nil.
func New(cfg Config) *Client {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	c := &Client{cfg: cfg}
	c.state.Store(int32(StateDisconnected))
	return c
}

// State returns the client's current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

// ConnectedAt and LastMessageAt expose the connection and last-message timestamps for
// health checks.
func (c *Client) ConnectedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connectedAt
}

func (c *Client) LastMessageAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastMessageAt
}

// Start launches the connect/subscribe/read loop in the background. Safe to call once;
// a second call while already running is a no-op, mirroring internal/token.Manager's
// StartMonitoring idempotency.
func (c *Client) Start(ctx context.Context) {
	c.runMu.Lock()
	if c.running {
		c.runMu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	stopCh := c.stopCh
	doneCh := c.doneCh
	c.runMu.Unlock()

	go func() {
		defer close(doneCh)
		c.runLoop(ctx, stopCh)
	}()
}

// Stop halts the reconnect loop and closes any active connection. Idempotent.
func (c *Client) Stop() {
	c.runMu.Lock()
	if !c.running {
		c.runMu.Unlock()
		return
	}
	close(c.stopCh)
	doneCh := c.doneCh
	c.running = false
	c.runMu.Unlock()

	<-doneCh

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
	c.setState(StateDisconnected)
}

func (c *Client) runLoop(ctx context.Context, stopCh chan struct{}) {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		rateLimited, reachedActive, err := c.connectSubscribeAndRead(ctx, stopCh)
		if err == nil {
			// read loop exited because stopCh/ctx fired during a clean shutdown.
			return
		}

		// A connection that made it to StateActive, however briefly, proved the upstream
		// is reachable and credentials are good; the next backoff should start fresh
		// rather than continue counting from whatever churn preceded it.
		if reachedActive {
			attempt = 0
		}

		utils.GetLogger().Warn("chat client disconnected", map[string]interface{}{
			"error":   err.Error(),
			"attempt": attempt,
		})

		c.setState(StateReconnecting)
		metrics.ChatReconnectsTotal.Inc()
		delay := nextBackoff(attempt, rateLimited)
		attempt++

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		}
	}
}

// connectSubscribeAndRead drives one full connection lifetime: dial, await
// session_welcome, register the subscription, then read frames until error or shutdown.
// A nil error return means the caller-initiated shutdown path (ctx/stopCh) fired; any
// other return is a disconnect that should be retried with backoff. reachedActive
// reports whether the connection made it to StateActive before failing, so the caller
// can reset its backoff counter even when the eventual read fails.
func (c *Client) connectSubscribeAndRead(ctx context.Context, stopCh chan struct{}) (rateLimited bool, reachedActive bool, err error) {
	c.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, _, err := c.cfg.Dialer.DialContext(dialCtx, c.cfg.WSURL, nil)
	if err != nil {
		return false, false, fmt.Errorf("chatclient: dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connectedAt = time.Now()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()
	}()

	sessionID, err := c.awaitWelcome(conn)
	if err != nil {
		return false, false, err
	}

	c.setState(StateSubscribing)
	rl, err := c.subscribe(ctx, sessionID)
	if err != nil {
		return rl, false, err
	}

	c.setState(StateActive)
	rl, err = c.readLoop(ctx, conn, stopCh)
	return rl, true, err
}

func (c *Client) awaitWelcome(conn *websocket.Conn) (string, error) {
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("chatclient: read welcome: %w", err)
	}

	frame, err := parseFrame(raw)
	if err != nil {
		return "", err
	}
	if frame.Type != frameSessionWelcome || frame.Session == nil {
		return "", fmt.Errorf("chatclient: expected session_welcome, got %q", frame.Type)
	}
	return frame.Session.ID, nil
}

func (c *Client) subscribe(ctx context.Context, sessionID string) (rateLimited bool, err error) {
	body := newSubscriptionRequest(c.cfg.BroadcasterID, c.cfg.BotUserID, sessionID)
	payload, err := json.Marshal(body)
	if err != nil {
		return false, fmt.Errorf("chatclient: marshal subscription request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SubscribeURL, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("chatclient: build subscription request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Id", c.cfg.ClientID)
	req.Header.Set("Authorization", "Bearer "+c.cfg.TokenProvider.GetAccessToken())

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("chatclient: subscribe: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if refreshErr := c.cfg.TokenProvider.RefreshToken(ctx); refreshErr != nil {
			return false, fmt.Errorf("chatclient: subscribe unauthorized, refresh failed: %w", refreshErr)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.TokenProvider.GetAccessToken())
		retryBody, bodyErr := req.GetBody()
		if bodyErr != nil {
			return false, fmt.Errorf("chatclient: rebuild subscription request: %w", bodyErr)
		}
		req.Body = retryBody
		retryResp, retryErr := c.cfg.HTTPClient.Do(req)
		if retryErr != nil {
			return false, fmt.Errorf("chatclient: subscribe retry after refresh: %w", retryErr)
		}
		defer retryResp.Body.Close()
		if retryResp.StatusCode >= 300 {
			return false, fmt.Errorf("chatclient: subscribe retry failed with status %d", retryResp.StatusCode)
		}
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return true, fmt.Errorf("chatclient: subscribe rate limited")
	case resp.StatusCode >= 300:
		return false, fmt.Errorf("chatclient: subscribe failed with status %d", resp.StatusCode)
	default:
		return false, nil
	}
}

// readLoop reads frames from the active connection until error or shutdown. A graceful
// session_reconnect swaps the connection in place and keeps reading from the new one
// without returning to the caller, so a reconnect hint never triggers backoff or clears
// client state.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, stopCh chan struct{}) (bool, error) {
	closeCh := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stopCh:
		case <-closeCh:
			return
		}
		c.mu.RLock()
		active := c.conn
		c.mu.RUnlock()
		if active != nil {
			active.Close()
		}
	}()
	defer close(closeCh)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ctx.Done():
				return false, nil
			case <-stopCh:
				return false, nil
			default:
			}
			return false, fmt.Errorf("chatclient: read: %w", err)
		}

		frame, err := parseFrame(raw)
		if err != nil {
			utils.GetLogger().Warn("chatclient dropped malformed frame", map[string]interface{}{"error": err.Error()})
			continue
		}

		switch frame.Type {
		case frameSessionKeepalive:
			// no-op; presence of any frame resets the peer's liveness expectation.
		case frameSessionReconnect:
			if frame.Session == nil || frame.Session.ReconnectURL == "" {
				utils.GetLogger().Warn("chatclient session_reconnect missing url", nil)
				return false, fmt.Errorf("chatclient: session_reconnect without reconnect_url")
			}
			newConn, err := c.followReconnect(ctx, frame.Session.ReconnectURL)
			if err != nil {
				return false, err
			}
			conn = newConn
		case frameNotification:
			ev, err := parseChatMessageEvent(frame.Event)
			if err != nil {
				utils.GetLogger().Warn("chatclient dropped malformed notification", map[string]interface{}{"error": err.Error()})
				continue
			}
			c.mu.Lock()
			c.lastMessageAt = time.Now()
			c.mu.Unlock()
			if c.cfg.Handler != nil {
				c.cfg.Handler(ChatMessage{
					Username:      ev.Username,
					Text:          ev.Text,
					IsModerator:   ev.IsModerator,
					IsBroadcaster: ev.IsBroadcaster,
				})
			}
		default:
			utils.GetLogger().Warn("chatclient unknown frame type", map[string]interface{}{"type": frame.Type})
		}
	}
}

// followReconnect dials the hint URL from a graceful session_reconnect and swaps in the
// new connection once its welcome is received. The old subscription transfers with the
// session under upstream semantics, so no re-subscribe is needed.
func (c *Client) followReconnect(ctx context.Context, reconnectURL string) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	newConn, _, err := c.cfg.Dialer.DialContext(dialCtx, reconnectURL, nil)
	if err != nil {
		return nil, fmt.Errorf("chatclient: follow reconnect: %w", err)
	}

	if _, err := c.awaitWelcome(newConn); err != nil {
		newConn.Close()
		return nil, err
	}

	c.mu.Lock()
	old := c.conn
	c.conn = newConn
	c.connectedAt = time.Now()
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}

	return newConn, nil
}
