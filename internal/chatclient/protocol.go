package chatclient

import (
	"encoding/json"
	"fmt"
)

// Inbound frame types the upstream chat push API sends: welcome, keepalive, notification,
// and reconnect.
const (
	frameSessionWelcome   = "session_welcome"
	frameSessionKeepalive = "session_keepalive"
	frameSessionReconnect = "session_reconnect"
	frameNotification     = "notification"
)

// inboundFrame is the structural envelope every frame must satisfy. Frames that fail to
// parse into this shape, or carry an unrecognized type, are dropped with a log entry
// rather than propagated.
type inboundFrame struct {
	Type    string          `json:"type"`
	Session *sessionPayload `json:"session,omitempty"`
	Event   json.RawMessage `json:"event,omitempty"`
}

type sessionPayload struct {
	ID                      string `json:"id"`
	ReconnectURL            string `json:"reconnect_url,omitempty"`
	KeepaliveTimeoutSeconds int    `json:"keepalive_timeout_seconds,omitempty"`
}

// chatMessageEvent is the notification payload shape for a channel chat message,
// delivered to the registered handler as {username, text, isModerator, isBroadcaster}.
type chatMessageEvent struct {
	Username      string `json:"username"`
	Text          string `json:"text"`
	IsModerator   bool   `json:"is_moderator"`
	IsBroadcaster bool   `json:"is_broadcaster"`
}

func parseFrame(raw []byte) (*inboundFrame, error) {
	var f inboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("chatclient: malformed frame: %w", err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("chatclient: frame missing type")
	}
	return &f, nil
}

func parseChatMessageEvent(raw json.RawMessage) (*chatMessageEvent, error) {
	var ev chatMessageEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("chatclient: malformed notification event: %w", err)
	}
	if ev.Username == "" {
		return nil, fmt.Errorf("chatclient: notification event missing username")
	}
	return &ev, nil
}

// subscriptionRequest is the body posted to SubscribeURL to register "channel chat
// message" for BroadcasterID under the session established by session_welcome.
type subscriptionRequest struct {
	Type      string `json:"type"`
	Version   string `json:"version"`
	Condition struct {
		BroadcasterUserID string `json:"broadcaster_user_id"`
		UserID            string `json:"user_id"`
	} `json:"condition"`
	Transport struct {
		Method    string `json:"method"`
		SessionID string `json:"session_id"`
	} `json:"transport"`
}

func newSubscriptionRequest(broadcasterID, botUserID, sessionID string) subscriptionRequest {
	req := subscriptionRequest{
		Type:    "channel.chat.message",
		Version: "1",
	}
	req.Condition.BroadcasterUserID = broadcasterID
	req.Condition.UserID = botUserID
	req.Transport.Method = "websocket"
	req.Transport.SessionID = sessionID
	return req
}
