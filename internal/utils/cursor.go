package utils

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// EncodePlayLogCursor encodes the last-seen play_log id into an opaque, stable-across-restarts
// pagination cursor for getPlayLogs.
func EncodePlayLogCursor(lastID int64, order string) string {
	data := fmt.Sprintf("playlog:%s:%d", order, lastID)
	return base64.URLEncoding.EncodeToString([]byte(data))
}

// DecodePlayLogCursor decodes a cursor produced by EncodePlayLogCursor.
func DecodePlayLogCursor(cursorStr string) (lastID int64, order string, err error) {
	if cursorStr == "" {
		return 0, "", nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return 0, "", fmt.Errorf("invalid cursor format: failed to decode base64")
	}

	parts := strings.SplitN(string(decoded), ":", 3)
	if len(parts) != 3 || parts[0] != "playlog" {
		return 0, "", fmt.Errorf("invalid cursor format")
	}

	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid cursor format: invalid id")
	}

	return id, parts[1], nil
}
