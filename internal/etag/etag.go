// Package etag computes a SHA-256 fingerprint of the visible queue state, cached until
// invalidated by the next mutation.
package etag

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/subculture-collective/clipqueue/internal/models"
)

// Synchronizer caches the last-computed fingerprint and recomputes lazily.
type Synchronizer struct {
	mu    sync.Mutex
	cache string
	valid bool
}

// New creates an empty Synchronizer.
func New() *Synchronizer {
	return &Synchronizer{}
}

// Invalidate marks the cached fingerprint stale; the next Fingerprint call recomputes it.
// Callers must invoke this only after all mutations of a command are complete.
func (s *Synchronizer) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid = false
}

// Fingerprint returns the SHA-256 hex digest (64 chars) of the deterministic projection of
// state: (current.id, current.submitters.length, [(id, submitters.length) for queue],
// [(id, clipId, playedAt) for history], isOpen, settings).
func (s *Synchronizer) Fingerprint(state models.QueueState) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.valid {
		return s.cache
	}

	var b strings.Builder

	if state.Current != nil {
		fmt.Fprintf(&b, "current:%s:%d;", state.Current.UUID, len(state.Current.Submitters))
	} else {
		b.WriteString("current:;")
	}

	b.WriteString("queue:")
	for _, c := range state.Upcoming {
		fmt.Fprintf(&b, "%s:%d,", c.UUID, len(c.Submitters))
	}
	b.WriteString(";")

	b.WriteString("history:")
	for _, h := range state.PlayHistory {
		clipID := ""
		if h.Clip != nil {
			clipID = h.Clip.ClipID
		}
		fmt.Fprintf(&b, "%d:%s:%s:%d,", h.ID, clipID, h.PlayedAt.UTC().Format("2006-01-02T15:04:05.000Z"), h.PlayedAt.UnixNano())
	}
	b.WriteString(";")

	fmt.Fprintf(&b, "open:%t;", state.IsOpen)

	limit := "null"
	if state.Settings.Queue.Limit != nil {
		limit = fmt.Sprint(*state.Settings.Queue.Limit)
	}
	fmt.Fprintf(&b, "settings:%d:%s:%v:%s:%v;",
		state.Settings.Version, state.Settings.CommandPrefix,
		state.Settings.Queue.AutoModerationEnabled, limit, state.Settings.Queue.EnabledPlatforms)

	sum := sha256.Sum256([]byte(b.String()))
	s.cache = hex.EncodeToString(sum[:])
	s.valid = true
	return s.cache
}
