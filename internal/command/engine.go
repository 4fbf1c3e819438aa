// Package command implements chat and REST command dispatch over the Queue Model, the
// clip-submission pipeline, and settings mutation.
package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/subculture-collective/clipqueue/internal/etag"
	"github.com/subculture-collective/clipqueue/internal/guard"
	"github.com/subculture-collective/clipqueue/internal/models"
	"github.com/subculture-collective/clipqueue/internal/queue"
	"github.com/subculture-collective/clipqueue/internal/repository"
	"github.com/subculture-collective/clipqueue/internal/resolver"
	"github.com/subculture-collective/clipqueue/pkg/utils"
)

// CachePurger is satisfied by the platform-resolver cache layer; PurgeCache (a
// broadcaster-only command) calls PurgeAll rather than reaching into a specific cache
// implementation.
type CachePurger interface {
	PurgeAll(ctx context.Context) error
}

// ChatEvent is the normalized chat message shape the engine dispatches from. It
// intentionally doesn't depend on internal/chatclient.ChatMessage so the two packages
// stay decoupled; the caller (wired in cmd/api) copies fields across.
type ChatEvent struct {
	Username      string
	Text          string
	IsModerator   bool
	IsBroadcaster bool
}

// Engine owns the settings cache and coordinates the queue model, clip store, platform
// resolver, and ETag synchronizer behind the two guard mutexes.
type Engine struct {
	queue       *queue.Model
	settings    repository.SettingsStore
	store       repository.ClipStore
	dispatcher  *resolver.Dispatcher
	sync        *etag.Synchronizer
	guards      *guard.Guards
	caches      *guard.SubmissionCaches
	cachePurger CachePurger

	settingsMu sync.RWMutex
	current    models.Settings
}

// New constructs an Engine. Load must be called once before use to populate the
// settings cache.
func New(q *queue.Model, settingsStore repository.SettingsStore, store repository.ClipStore, dispatcher *resolver.Dispatcher, sync *etag.Synchronizer, guards *guard.Guards, caches *guard.SubmissionCaches, cachePurger CachePurger) *Engine {
	return &Engine{
		queue:       q,
		settings:    settingsStore,
		store:       store,
		dispatcher:  dispatcher,
		sync:        sync,
		guards:      guards,
		caches:      caches,
		cachePurger: cachePurger,
	}
}

// Load reads settings from the store into the in-memory cache.
func (e *Engine) Load(ctx context.Context) error {
	s, err := e.settings.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("command: load settings: %w", err)
	}
	e.settingsMu.Lock()
	e.current = s
	e.settingsMu.Unlock()
	return nil
}

// Settings returns a copy of the cached settings.
func (e *Engine) Settings() models.Settings {
	e.settingsMu.RLock()
	defer e.settingsMu.RUnlock()
	return e.current
}

func (e *Engine) updateSettings(ctx context.Context, mutate func(*models.Settings)) error {
	e.settingsMu.Lock()
	defer e.settingsMu.Unlock()

	updated := e.current
	mutate(&updated)
	if err := e.settings.UpdateSettings(ctx, updated); err != nil {
		return fmt.Errorf("command: update settings: %w", err)
	}
	e.current = updated
	return nil
}

// Snapshot builds the current wire-shape queue state, for the REST handler to serve after
// any mutation.
func (e *Engine) Snapshot() models.QueueState {
	return e.queue.Snapshot(e.Settings())
}

// ExecuteChat parses and, if authorized, executes a chat-path command. Only a broadcaster
// or moderator may execute a command; unauthorized or unrecognized commands are dropped
// with a log entry, never an error. A message that is not a command but carries an
// http(s) URL submits its first such URL through Submit.
func (e *Engine) ExecuteChat(ctx context.Context, msg ChatEvent) {
	prefix := e.Settings().CommandPrefix
	parsed, ok := ParseChat(msg.Text, prefix)
	if !ok {
		for _, field := range strings.Fields(msg.Text) {
			if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") {
				if _, err := e.Submit(ctx, field, msg.Username, msg.IsModerator, msg.IsBroadcaster); err != nil {
					utils.GetLogger().Warn("chat submission failed", map[string]interface{}{
						"url":   field,
						"error": err.Error(),
					})
				}
				break
			}
		}
		return
	}

	if !msg.IsModerator && !msg.IsBroadcaster {
		utils.GetLogger().Info("chat command dropped: insufficient role", map[string]interface{}{
			"command":  parsed.Name,
			"username": msg.Username,
		})
		return
	}

	if err := e.dispatch(ctx, parsed); err != nil {
		utils.GetLogger().Warn("chat command failed", map[string]interface{}{
			"command": parsed.Name,
			"error":   err.Error(),
		})
	}
}

func (e *Engine) dispatch(ctx context.Context, p Parsed) error {
	switch p.Name {
	case "open":
		return e.Open(ctx)
	case "close":
		return e.Close(ctx)
	case "clear":
		return e.Clear(ctx)
	case "setlimit":
		if len(p.Args) != 1 {
			return fmt.Errorf("command: setlimit requires exactly one argument")
		}
		n, err := strconv.Atoi(p.Args[0])
		if err != nil {
			return fmt.Errorf("command: setlimit: invalid number %q", p.Args[0])
		}
		return e.SetLimit(ctx, n)
	case "removelimit":
		return e.RemoveLimit(ctx)
	case "next":
		_, err := e.Next(ctx)
		return err
	case "prev", "previous":
		_, err := e.Previous(ctx)
		return err
	case "removebysubmitter":
		if len(p.Args) != 1 {
			return fmt.Errorf("command: removebysubmitter requires exactly one argument")
		}
		_, err := e.RemoveBySubmitter(ctx, p.Args[0])
		return err
	case "removebyplatform":
		if len(p.Args) != 1 {
			return fmt.Errorf("command: removebyplatform requires exactly one argument")
		}
		_, err := e.RemoveByPlatform(ctx, p.Args[0])
		return err
	case "enableplatform":
		if len(p.Args) != 1 {
			return fmt.Errorf("command: enableplatform requires exactly one argument")
		}
		return e.EnablePlatform(ctx, p.Args[0])
	case "disableplatform":
		if len(p.Args) != 1 {
			return fmt.Errorf("command: disableplatform requires exactly one argument")
		}
		return e.DisablePlatform(ctx, p.Args[0])
	case "enableautomod":
		return e.EnableAutoMod(ctx)
	case "disableautomod":
		return e.DisableAutoMod(ctx)
	case "purgecache":
		return e.PurgeCache(ctx)
	case "purgehistory":
		return e.ClearHistory(ctx)
	default:
		utils.GetLogger().Info("unknown command", map[string]interface{}{"command": p.Name})
		return nil
	}
}

// Open allows new submissions (broadcaster only).
func (e *Engine) Open(ctx context.Context) error {
	e.guards.WithQueueOperation(func() { e.queue.Open() })
	e.sync.Invalidate()
	return nil
}

// Close rejects new submissions (broadcaster only).
func (e *Engine) Close(ctx context.Context) error {
	e.guards.WithQueueOperation(func() { e.queue.Close() })
	e.sync.Invalidate()
	return nil
}

// Clear rejects and deletes every approved (queued, not-current) clip.
func (e *Engine) Clear(ctx context.Context) error {
	var err error
	e.guards.WithQueueOperation(func() { err = e.queue.ClearQueue(ctx) })
	if err != nil {
		return err
	}
	e.sync.Invalidate()
	return nil
}

// ClearHistory empties the play-log history (the "purgehistory" / "clear-history" op).
func (e *Engine) ClearHistory(ctx context.Context) error {
	var err error
	e.guards.WithQueueOperation(func() { err = e.queue.ClearHistory(ctx) })
	if err != nil {
		return err
	}
	e.sync.Invalidate()
	return nil
}

// Next advances the queue (moderator or broadcaster).
func (e *Engine) Next(ctx context.Context) (*models.Clip, error) {
	var clip *models.Clip
	var err error
	e.guards.WithQueueOperation(func() { clip, err = e.queue.Advance(ctx) })
	if err != nil {
		return nil, err
	}
	e.sync.Invalidate()
	return clip, nil
}

// Previous restores the most recent history entry to current (moderator or broadcaster).
func (e *Engine) Previous(ctx context.Context) (*models.Clip, error) {
	var clip *models.Clip
	var err error
	e.guards.WithQueueOperation(func() { clip, err = e.queue.Previous() })
	if err != nil {
		return nil, err
	}
	e.sync.Invalidate()
	return clip, nil
}

// Play sets a specific queued clip as current (moderator or broadcaster).
func (e *Engine) Play(ctx context.Context, uuid string) (*models.Clip, error) {
	var clip *models.Clip
	var err error
	e.guards.WithQueueOperation(func() { clip, err = e.queue.Play(ctx, uuid) })
	if err != nil {
		return nil, err
	}
	e.sync.Invalidate()
	return clip, nil
}

// Remove drops a single clip from the queue by UUID (moderator or broadcaster).
func (e *Engine) Remove(ctx context.Context, uuid string) error {
	var err error
	e.guards.WithQueueOperation(func() {
		if !e.queue.Includes(uuid) {
			err = fmt.Errorf("command: clip %s not in queue", uuid)
			return
		}
		if err = e.store.DeleteClip(ctx, uuid); err != nil {
			return
		}
		e.queue.Remove(uuid)
	})
	if err != nil {
		return err
	}
	e.sync.Invalidate()
	return nil
}

// RemoveBySubmitter removes every queued clip whose only/any submitter matches name,
// returning the count removed.
func (e *Engine) RemoveBySubmitter(ctx context.Context, name string) (int, error) {
	var removed int
	var err error
	e.guards.WithQueueOperation(func() {
		for _, c := range append([]*models.Clip{}, e.queue.Queue()...) {
			for _, s := range c.Submitters {
				if strings.EqualFold(s, name) {
					if e.queue.Includes(c.UUID) {
						if delErr := e.store.DeleteClip(ctx, c.UUID); delErr != nil {
							err = delErr
							return
						}
						e.queue.Remove(c.UUID)
						removed++
					}
					break
				}
			}
		}
	})
	if err != nil {
		return removed, err
	}
	e.sync.Invalidate()
	return removed, nil
}

// RemoveByPlatform removes every queued clip tagged with the given platform, returning
// the count removed.
func (e *Engine) RemoveByPlatform(ctx context.Context, platform string) (int, error) {
	var removed int
	var err error
	e.guards.WithQueueOperation(func() {
		for _, c := range append([]*models.Clip{}, e.queue.Queue()...) {
			if strings.EqualFold(string(c.Platform), platform) {
				if e.queue.Includes(c.UUID) {
					if delErr := e.store.DeleteClip(ctx, c.UUID); delErr != nil {
						err = delErr
						return
					}
					e.queue.Remove(c.UUID)
					removed++
				}
			}
		}
	})
	if err != nil {
		return removed, err
	}
	e.sync.Invalidate()
	return removed, nil
}

// SetCommandPrefix changes the chat-command prefix (broadcaster only, REST settings).
func (e *Engine) SetCommandPrefix(ctx context.Context, prefix string) error {
	if len(prefix) == 0 || len(prefix) > 8 {
		return fmt.Errorf("command: prefix must be 1-8 characters")
	}
	err := e.updateSettings(ctx, func(s *models.Settings) { s.CommandPrefix = prefix })
	if err != nil {
		return err
	}
	e.sync.Invalidate()
	return nil
}

// SetLimit sets the queue-size limit (broadcaster only).
func (e *Engine) SetLimit(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("command: setlimit: limit must be a positive integer")
	}
	err := e.updateSettings(ctx, func(s *models.Settings) { s.Queue.Limit = &n })
	if err != nil {
		return err
	}
	e.sync.Invalidate()
	return nil
}

// RemoveLimit clears the queue-size limit (broadcaster only).
func (e *Engine) RemoveLimit(ctx context.Context) error {
	err := e.updateSettings(ctx, func(s *models.Settings) { s.Queue.Limit = nil })
	if err != nil {
		return err
	}
	e.sync.Invalidate()
	return nil
}

// EnablePlatform adds tag to the enabled-platforms list (broadcaster only).
func (e *Engine) EnablePlatform(ctx context.Context, tag string) error {
	tag = strings.ToLower(tag)
	err := e.updateSettings(ctx, func(s *models.Settings) {
		for _, p := range s.Queue.EnabledPlatforms {
			if p == tag {
				return
			}
		}
		s.Queue.EnabledPlatforms = append(s.Queue.EnabledPlatforms, tag)
	})
	if err != nil {
		return err
	}
	e.sync.Invalidate()
	return nil
}

// DisablePlatform removes tag from the enabled-platforms list (broadcaster only).
func (e *Engine) DisablePlatform(ctx context.Context, tag string) error {
	tag = strings.ToLower(tag)
	err := e.updateSettings(ctx, func(s *models.Settings) {
		filtered := s.Queue.EnabledPlatforms[:0]
		for _, p := range s.Queue.EnabledPlatforms {
			if p != tag {
				filtered = append(filtered, p)
			}
		}
		s.Queue.EnabledPlatforms = filtered
	})
	if err != nil {
		return err
	}
	e.sync.Invalidate()
	return nil
}

// EnableAutoMod turns on pending-review for new submissions (broadcaster only).
func (e *Engine) EnableAutoMod(ctx context.Context) error {
	err := e.updateSettings(ctx, func(s *models.Settings) { s.Queue.AutoModerationEnabled = true })
	if err != nil {
		return err
	}
	e.sync.Invalidate()
	return nil
}

// DisableAutoMod turns off pending-review for new submissions (broadcaster only).
func (e *Engine) DisableAutoMod(ctx context.Context) error {
	err := e.updateSettings(ctx, func(s *models.Settings) { s.Queue.AutoModerationEnabled = false })
	if err != nil {
		return err
	}
	e.sync.Invalidate()
	return nil
}

// PurgeCache flushes the platform-resolver metadata cache (broadcaster only).
func (e *Engine) PurgeCache(ctx context.Context) error {
	if e.cachePurger == nil {
		return nil
	}
	return e.cachePurger.PurgeAll(ctx)
}

// ApprovePending approves a pending clip by UUID, inserting it into the live queue.
func (e *Engine) ApprovePending(ctx context.Context, uuid string) (*models.Clip, error) {
	clip, err := e.store.GetClip(ctx, uuid)
	if err != nil {
		return nil, fmt.Errorf("command: approve: %w", err)
	}
	if clip == nil || clip.Status != models.ClipStatusPending {
		return nil, fmt.Errorf("command: clip %s is not pending", uuid)
	}
	if err := e.store.UpdateClipStatus(ctx, uuid, models.ClipStatusApproved); err != nil {
		return nil, fmt.Errorf("command: approve: %w", err)
	}
	clip.Status = models.ClipStatusApproved
	e.guards.WithQueueOperation(func() { e.queue.Add(clip) })
	e.sync.Invalidate()
	return clip, nil
}

// RejectPending rejects a pending clip by UUID without inserting it into the queue.
func (e *Engine) RejectPending(ctx context.Context, uuid string) error {
	clip, err := e.store.GetClip(ctx, uuid)
	if err != nil {
		return fmt.Errorf("command: reject: %w", err)
	}
	if clip == nil || clip.Status != models.ClipStatusPending {
		return fmt.Errorf("command: clip %s is not pending", uuid)
	}
	if err := e.store.UpdateClipStatus(ctx, uuid, models.ClipStatusRejected); err != nil {
		return fmt.Errorf("command: reject: %w", err)
	}
	e.sync.Invalidate()
	return nil
}

// RestoreRejected restores a rejected clip back to pending review.
func (e *Engine) RestoreRejected(ctx context.Context, uuid string) (*models.Clip, error) {
	clip, err := e.store.GetClip(ctx, uuid)
	if err != nil {
		return nil, fmt.Errorf("command: restore: %w", err)
	}
	if clip == nil || clip.Status != models.ClipStatusRejected {
		return nil, fmt.Errorf("command: clip %s is not rejected", uuid)
	}
	if err := e.store.UpdateClipStatus(ctx, uuid, models.ClipStatusPending); err != nil {
		return nil, fmt.Errorf("command: restore: %w", err)
	}
	clip.Status = models.ClipStatusPending
	e.sync.Invalidate()
	return clip, nil
}

// JumpToHistoryClip replays a specific history entry as current without logging a new
// play (the "replay-from-history" REST op).
func (e *Engine) JumpToHistoryClip(ctx context.Context, uuid string) error {
	var err error
	e.guards.WithQueueOperation(func() { err = e.queue.JumpToHistoryClip(uuid) })
	if err != nil {
		return err
	}
	e.sync.Invalidate()
	return nil
}
