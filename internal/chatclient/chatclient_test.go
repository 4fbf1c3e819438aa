package chatclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeTokenProvider struct {
	mu      sync.Mutex
	token   string
	refresh func() error
}

func (f *fakeTokenProvider) GetAccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeTokenProvider) RefreshToken(ctx context.Context) error {
	if f.refresh != nil {
		return f.refresh()
	}
	f.mu.Lock()
	f.token = "refreshed-token"
	f.mu.Unlock()
	return nil
}

var upgrader = websocket.Upgrader{}

// newFakeUpstream starts a WS server that sends session_welcome then each frame in
// frames, and an HTTP subscribe endpoint that always succeeds.
func newFakeUpstream(t *testing.T, frames []string) (wsURL, subscribeURL string, close func()) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		welcome := `{"type":"session_welcome","session":{"id":"sess-1"}}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(welcome)); err != nil {
			return
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// keep the connection open briefly so the client has time to process frames
		time.Sleep(200 * time.Millisecond)
	})
	mux.HandleFunc("/subscribe", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	server := httptest.NewServer(mux)
	wsURL = "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	subscribeURL = server.URL + "/subscribe"
	return wsURL, subscribeURL, server.Close
}

func TestClientDispatchesNotification(t *testing.T) {
	event, _ := json.Marshal(chatMessageEvent{Username: "alice", Text: "hi", IsModerator: true})
	frame := `{"type":"notification","event":` + string(event) + `}`
	wsURL, subURL, closeServer := newFakeUpstream(t, []string{frame})
	defer closeServer()

	var mu sync.Mutex
	var received []ChatMessage

	c := New(Config{
		WSURL:         wsURL,
		SubscribeURL: subURL,
		ClientID:      "cid",
		BroadcasterID: "b1",
		BotUserID:     "bot1",
		TokenProvider: &fakeTokenProvider{token: "tok"},
		Handler: func(msg ChatMessage) {
			mu.Lock()
			received = append(received, msg)
			mu.Unlock()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	defer c.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("expected 1 message, got %d", len(received))
	}
	if received[0].Username != "alice" || received[0].Text != "hi" || !received[0].IsModerator {
		t.Errorf("unexpected message: %+v", received[0])
	}

	if c.LastMessageAt().IsZero() {
		t.Error("expected LastMessageAt to be set")
	}
	if c.ConnectedAt().IsZero() {
		t.Error("expected ConnectedAt to be set")
	}
}

func TestClientDropsMalformedFrameWithoutCrashing(t *testing.T) {
	wsURL, subURL, closeServer := newFakeUpstream(t, []string{`{not valid json`, `{"type":""}`})
	defer closeServer()

	c := New(Config{
		WSURL:         wsURL,
		SubscribeURL: subURL,
		ClientID:      "cid",
		BroadcasterID: "b1",
		BotUserID:     "bot1",
		TokenProvider: &fakeTokenProvider{token: "tok"},
		Handler:       func(msg ChatMessage) {},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	c.Stop()
}

func TestClientStartIsIdempotent(t *testing.T) {
	wsURL, subURL, closeServer := newFakeUpstream(t, nil)
	defer closeServer()

	c := New(Config{
		WSURL:         wsURL,
		SubscribeURL: subURL,
		TokenProvider: &fakeTokenProvider{token: "tok"},
		Handler:       func(msg ChatMessage) {},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)
	c.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	c.Stop()
	c.Stop()
}

func TestSubscribeRefreshesTokenOn401(t *testing.T) {
	var attempts int
	var mu sync.Mutex

	mux := http.NewServeMux()
	mux.HandleFunc("/subscribe", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tp := &fakeTokenProvider{token: "stale"}
	c := New(Config{
		SubscribeURL:  server.URL + "/subscribe",
		ClientID:      "cid",
		BroadcasterID: "b1",
		BotUserID:     "bot1",
		TokenProvider: tp,
	})

	rateLimited, err := c.subscribe(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rateLimited {
		t.Error("did not expect rate limited")
	}
	if tp.GetAccessToken() != "refreshed-token" {
		t.Errorf("expected token to be refreshed, got %s", tp.GetAccessToken())
	}
}

func TestSubscribeRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := New(Config{
		SubscribeURL:  server.URL,
		TokenProvider: &fakeTokenProvider{token: "tok"},
	})

	rateLimited, err := c.subscribe(context.Background(), "sess-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !rateLimited {
		t.Error("expected rateLimited=true")
	}
}

func TestConnectSubscribeAndReadReportsReachedActive(t *testing.T) {
	wsURL, subURL, closeServer := newFakeUpstream(t, nil)
	defer closeServer()

	c := New(Config{
		WSURL:         wsURL,
		SubscribeURL:  subURL,
		ClientID:      "cid",
		BroadcasterID: "b1",
		BotUserID:     "bot1",
		TokenProvider: &fakeTokenProvider{token: "tok"},
		Handler:       func(msg ChatMessage) {},
	})

	stopCh := make(chan struct{})
	_, reachedActive, err := c.connectSubscribeAndRead(context.Background(), stopCh)
	if err == nil {
		t.Fatal("expected the fake server closing its side to surface a read error")
	}
	if !reachedActive {
		t.Error("expected reachedActive=true once session_welcome+subscribe succeeded")
	}
}

func TestConnectSubscribeAndReadReportsNotReachedActiveOnDialFailure(t *testing.T) {
	c := New(Config{
		WSURL:         "ws://127.0.0.1:1/does-not-exist",
		SubscribeURL:  "http://127.0.0.1:1/does-not-exist",
		TokenProvider: &fakeTokenProvider{token: "tok"},
		Handler:       func(msg ChatMessage) {},
	})

	stopCh := make(chan struct{})
	_, reachedActive, err := c.connectSubscribeAndRead(context.Background(), stopCh)
	if err == nil {
		t.Fatal("expected a dial error")
	}
	if reachedActive {
		t.Error("expected reachedActive=false when the connection never reached StateActive")
	}
}

func TestStateStringValues(t *testing.T) {
	cases := map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateSubscribing:  "subscribing",
		StateActive:       "active",
		StateReconnecting: "reconnecting",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
