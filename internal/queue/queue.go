// Package queue implements the in-memory, popularity-ordered state machine over current
// clip, upcoming queue, and play-log history. It is the only mutator of volatile queue
// state; callers are expected to hold the queue-operation mutex (internal/guard) around
// every mutating call.
package queue

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/subculture-collective/clipqueue/internal/models"
	"github.com/subculture-collective/clipqueue/internal/repository"
	"github.com/subculture-collective/clipqueue/pkg/metrics"
)

// Model is the single owner of current/queue/history/isOpen, keeping what would otherwise
// be scattered global mutable state behind one value.
type Model struct {
	store          repository.ClipStore
	settings       repository.SettingsStore
	historyCap     int

	current         *models.Clip
	queue           []*models.Clip
	history         []models.PlayLogEntry
	historyPosition int
	isOpen          bool
	insertSeq       map[string]int
}

// New creates a Model backed by the given stores. historyCap bounds the in-memory history ring.
func New(store repository.ClipStore, settings repository.SettingsStore, historyCap int) *Model {
	return &Model{
		store:           store,
		settings:        settings,
		historyCap:      historyCap,
		historyPosition: -1,
		isOpen:          true,
	}
}

// Load populates the model from the store on startup: all approved clips (bulk add) and the
// latest 100 play-log entries ascending.
func (m *Model) Load(ctx context.Context) error {
	approved, err := m.store.GetClipsByStatus(ctx, models.ClipStatusApproved, 0)
	if err != nil {
		return fmt.Errorf("queue: load approved clips: %w", err)
	}
	for _, c := range approved {
		m.insertSorted(c)
	}

	entries, _, err := m.store.GetPlayLogs(ctx, repository.PlayLogQuery{Limit: 100, Order: "desc"})
	if err != nil {
		return fmt.Errorf("queue: load play log: %w", err)
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	m.history = entries
	if len(m.history) > m.historyCap {
		m.history = m.history[len(m.history)-m.historyCap:]
	}
	m.reportDepth()
	return nil
}

func (m *Model) reportDepth() {
	metrics.QueueDepth.Set(float64(len(m.queue)))
}

// insertSorted inserts c into the queue, keeping popularity order: submitters.length
// descending, ties broken by earlier insertion (stable).
func (m *Model) insertSorted(c *models.Clip) {
	if m.insertSeq == nil {
		m.insertSeq = make(map[string]int)
	}
	if _, seen := m.insertSeq[c.UUID]; !seen {
		m.insertSeq[c.UUID] = len(m.insertSeq)
	}
	m.queue = append(m.queue, c)
	sort.SliceStable(m.queue, func(i, j int) bool {
		a, b := m.queue[i], m.queue[j]
		if len(a.Submitters) != len(b.Submitters) {
			return len(a.Submitters) > len(b.Submitters)
		}
		return m.insertSeq[a.UUID] < m.insertSeq[b.UUID]
	})
}

// Includes reports whether uuid is currently in the queue.
func (m *Model) Includes(uuid string) bool {
	_, ok := m.indexOf(uuid)
	return ok
}

func (m *Model) indexOf(uuid string) (int, bool) {
	for i, c := range m.queue {
		if c.UUID == uuid {
			return i, true
		}
	}
	return -1, false
}

// Add inserts or reinserts a clip into popularity order (used after a submission merge).
func (m *Model) Add(c *models.Clip) {
	if idx, ok := m.indexOf(c.UUID); ok {
		m.queue = append(m.queue[:idx], m.queue[idx+1:]...)
	}
	m.insertSorted(c)
	m.reportDepth()
}

// Remove drops a clip from the queue by UUID identity.
func (m *Model) Remove(uuid string) bool {
	idx, ok := m.indexOf(uuid)
	if !ok {
		return false
	}
	m.queue = append(m.queue[:idx], m.queue[idx+1:]...)
	m.reportDepth()
	return true
}

// Current returns the clip presently playing, or nil.
func (m *Model) Current() *models.Clip { return m.current }

// Queue returns the upcoming, popularity-ordered clips.
func (m *Model) Queue() []*models.Clip { return m.queue }

// History returns the bounded play-log ring.
func (m *Model) History() []models.PlayLogEntry { return m.history }

// HistoryPosition returns -1 (live/queue mode) or the index into History being replayed.
func (m *Model) HistoryPosition() int { return m.historyPosition }

// IsOpen reports whether the queue currently accepts submissions.
func (m *Model) IsOpen() bool { return m.isOpen }

func (m *Model) pushHistory(e models.PlayLogEntry) {
	m.history = append(m.history, e)
	if len(m.history) > m.historyCap {
		m.history = m.history[len(m.history)-m.historyCap:]
	}
}

// Advance pops the head of the queue into current, moving the prior current into history
// (marked played, with a play-log row inserted). If the queue is empty, current becomes nil
// and no log entry is appended. advance always operates from current regardless of the
// history cursor.
func (m *Model) Advance(ctx context.Context) (*models.Clip, error) {
	if m.current != nil {
		if err := m.logPlay(ctx, m.current); err != nil {
			return nil, err
		}
	}

	if len(m.queue) == 0 {
		m.current = nil
		return nil, nil
	}

	next := m.queue[0]
	m.queue = m.queue[1:]
	if err := m.store.UpdateClipStatus(ctx, next.UUID, models.ClipStatusApproved); err != nil {
		return nil, fmt.Errorf("queue: advance: %w", err)
	}
	m.current = next
	m.historyPosition = -1
	m.reportDepth()
	return m.current, nil
}

func (m *Model) logPlay(ctx context.Context, c *models.Clip) error {
	if err := m.store.UpdateClipStatus(ctx, c.UUID, models.ClipStatusPlayed); err != nil {
		return fmt.Errorf("queue: mark played: %w", err)
	}
	id, err := m.store.InsertPlayLog(ctx, c.UUID, nil)
	if err != nil {
		return fmt.Errorf("queue: insert play log: %w", err)
	}
	now := time.Now()
	c.Status = models.ClipStatusPlayed
	c.PlayedAt = &now
	m.pushHistory(models.PlayLogEntry{ID: id, ClipUUID: c.UUID, Clip: c, PlayedAt: now})
	return nil
}

// Previous pops the most recent history entry and restores it as current, prepending the
// prior current (if any) back onto the queue; historyPosition is left unchanged. No-op on
// empty history.
func (m *Model) Previous() (*models.Clip, error) {
	if len(m.history) == 0 {
		return m.current, nil
	}
	last := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]

	if m.current != nil {
		m.queue = append([]*models.Clip{m.current}, m.queue...)
	}
	m.current = last.Clip
	m.reportDepth()
	return m.current, nil
}

// Play sets a specific queued clip as current, moving the prior current into history.
func (m *Model) Play(ctx context.Context, uuid string) (*models.Clip, error) {
	idx, ok := m.indexOf(uuid)
	if !ok {
		return nil, fmt.Errorf("queue: clip %s not in queue", uuid)
	}
	target := m.queue[idx]
	m.queue = append(m.queue[:idx], m.queue[idx+1:]...)

	if m.current != nil {
		if err := m.logPlay(ctx, m.current); err != nil {
			return nil, err
		}
	}

	if err := m.store.UpdateClipStatus(ctx, target.UUID, models.ClipStatusApproved); err != nil {
		return nil, fmt.Errorf("queue: play: %w", err)
	}
	m.current = target
	m.historyPosition = -1
	m.reportDepth()
	return m.current, nil
}

// JumpToHistoryClip sets current to a specific history entry without inserting a new
// play-log row.
func (m *Model) JumpToHistoryClip(uuid string) error {
	for i, e := range m.history {
		if e.ClipUUID == uuid {
			m.current = e.Clip
			m.historyPosition = i
			return nil
		}
	}
	return fmt.Errorf("queue: clip %s not in history", uuid)
}

// ClearQueue sets every approved clip to rejected and then deletes them. The reject step is
// redundant with the delete that follows it but is preserved deliberately, keeping the
// historical dual write rather than simplifying it away. current is preserved.
func (m *Model) ClearQueue(ctx context.Context) error {
	for _, c := range m.queue {
		if err := m.store.UpdateClipStatus(ctx, c.UUID, models.ClipStatusRejected); err != nil {
			return fmt.Errorf("queue: clear: mark rejected: %w", err)
		}
		if err := m.store.DeleteClip(ctx, c.UUID); err != nil {
			return fmt.Errorf("queue: clear: %w", err)
		}
	}
	m.queue = nil
	m.reportDepth()
	return nil
}

// ClearHistory empties the in-memory history ring and deletes played clips and their
// play-log rows from the store.
func (m *Model) ClearHistory(ctx context.Context) error {
	if err := m.store.DeletePlayLogsByClipStatus(ctx, models.ClipStatusPlayed); err != nil {
		return fmt.Errorf("queue: clear history: %w", err)
	}
	if err := m.store.DeleteClipsByStatus(ctx, models.ClipStatusPlayed); err != nil {
		return fmt.Errorf("queue: clear history: %w", err)
	}
	m.history = nil
	m.historyPosition = -1
	return nil
}

// Open allows new submissions; idempotent.
func (m *Model) Open() { m.isOpen = true }

// Close rejects new submissions; idempotent.
func (m *Model) Close() { m.isOpen = false }

// Snapshot produces the QueueState wire shape served by GET /api/queue.
func (m *Model) Snapshot(settings models.Settings) models.QueueState {
	return models.QueueState{
		Current:         m.current,
		Upcoming:        m.queue,
		PlayHistory:     m.history,
		HistoryPosition: m.historyPosition,
		IsOpen:          m.isOpen,
		Settings:        settings,
	}
}
