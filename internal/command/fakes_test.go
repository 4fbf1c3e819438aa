package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/subculture-collective/clipqueue/internal/models"
	"github.com/subculture-collective/clipqueue/internal/repository"
	"github.com/subculture-collective/clipqueue/internal/resolver"
)

// fakeClipStore is an in-memory repository.ClipStore double. It models UpsertClip's real
// conflict semantics: a second upsert of an existing UUID never overwrites status.
type fakeClipStore struct {
	mu    sync.Mutex
	clips map[string]*models.Clip
}

func newFakeClipStore() *fakeClipStore {
	return &fakeClipStore{clips: map[string]*models.Clip{}}
}

func (s *fakeClipStore) UpsertClip(ctx context.Context, clip *models.Clip) (*models.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.clips[clip.UUID]
	if !ok {
		copied := *clip
		copied.SubmittedAt = time.Unix(0, 0)
		s.clips[clip.UUID] = &copied
		out := copied
		return &out, nil
	}

	for _, sub := range clip.Submitters {
		found := false
		for _, have := range existing.Submitters {
			if have == sub {
				found = true
				break
			}
		}
		if !found {
			existing.Submitters = append(existing.Submitters, sub)
		}
	}
	existing.Title = clip.Title
	existing.EmbedURL = clip.EmbedURL
	out := *existing
	return &out, nil
}

func (s *fakeClipStore) GetClip(ctx context.Context, uuid string) (*models.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clips[uuid]
	if !ok {
		return nil, fmt.Errorf("fakeClipStore: clip %s not found", uuid)
	}
	out := *c
	return &out, nil
}

func (s *fakeClipStore) GetClipsByStatus(ctx context.Context, status models.ClipStatus, limit int) ([]*models.Clip, error) {
	return nil, nil
}

func (s *fakeClipStore) UpdateClipStatus(ctx context.Context, uuid string, status models.ClipStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clips[uuid]
	if !ok {
		return fmt.Errorf("fakeClipStore: clip %s not found", uuid)
	}
	c.Status = status
	return nil
}

func (s *fakeClipStore) DeleteClip(ctx context.Context, uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clips, uuid)
	return nil
}

func (s *fakeClipStore) DeleteClipsByStatus(ctx context.Context, status models.ClipStatus) error {
	return nil
}

func (s *fakeClipStore) InsertPlayLog(ctx context.Context, clipUUID string, playedAt *time.Time) (int64, error) {
	return 1, nil
}

func (s *fakeClipStore) GetPlayLogs(ctx context.Context, q repository.PlayLogQuery) ([]models.PlayLogEntry, *repository.PlayLogPage, error) {
	return nil, nil, nil
}

func (s *fakeClipStore) DeletePlayLogsByClipStatus(ctx context.Context, status models.ClipStatus) error {
	return nil
}

// fakeSettingsStore is an in-memory repository.SettingsStore double.
type fakeSettingsStore struct {
	mu       sync.Mutex
	settings models.Settings
}

func newFakeSettingsStore(s models.Settings) *fakeSettingsStore {
	return &fakeSettingsStore{settings: s}
}

func (s *fakeSettingsStore) InitSettings(ctx context.Context) error { return nil }

func (s *fakeSettingsStore) GetSettings(ctx context.Context) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, nil
}

func (s *fakeSettingsStore) UpdateSettings(ctx context.Context, updated models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = updated
	return nil
}

// fakeResolver is a resolver.Resolver double for a single synthetic platform.
type fakeResolver struct {
	platform  string
	matchFunc func(rawURL string) (string, bool)
	resolve   func(ctx context.Context, rawURL string) (*resolver.Clip, error)
}

func (f *fakeResolver) Platform() string { return f.platform }

func (f *fakeResolver) Detect(rawURL string) (string, bool) {
	return f.matchFunc(rawURL)
}

func (f *fakeResolver) Resolve(ctx context.Context, rawURL string) (*resolver.Clip, error) {
	return f.resolve(ctx, rawURL)
}

func defaultSettings() models.Settings {
	return models.Settings{
		CommandPrefix: "!",
		Queue: models.QueueSettings{
			AutoModerationEnabled: false,
			EnabledPlatforms:      []string{"fake"},
		},
	}
}
