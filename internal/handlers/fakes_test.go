package handlers

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/subculture-collective/clipqueue/internal/models"
	"github.com/subculture-collective/clipqueue/internal/repository"
)

type fakeClipStore struct {
	clips    map[string]*models.Clip
	playLogs []models.PlayLogEntry
	nextID   int64
}

func newFakeClipStore() *fakeClipStore {
	return &fakeClipStore{clips: make(map[string]*models.Clip)}
}

func (s *fakeClipStore) UpsertClip(ctx context.Context, clip *models.Clip) (*models.Clip, error) {
	existing, ok := s.clips[clip.UUID]
	if ok {
		merged := *existing
		merged.Title = clip.Title
		merged.ThumbnailURL = clip.ThumbnailURL
		merged.Category = clip.Category
		merged.EmbedURL = clip.EmbedURL
		merged.VideoURL = clip.VideoURL
		merged.CreatedAt = clip.CreatedAt
		submitters := append([]string{}, existing.Submitters...)
		for _, sub := range clip.Submitters {
			found := false
			for _, have := range submitters {
				if have == sub {
					found = true
					break
				}
			}
			if !found {
				submitters = append(submitters, sub)
			}
		}
		merged.Submitters = submitters
		s.clips[clip.UUID] = &merged
		out := merged
		return &out, nil
	}

	stored := *clip
	stored.SubmittedAt = time.Now()
	s.clips[clip.UUID] = &stored
	out := stored
	return &out, nil
}

func (s *fakeClipStore) GetClip(ctx context.Context, uuid string) (*models.Clip, error) {
	c, ok := s.clips[uuid]
	if !ok {
		return nil, fmt.Errorf("clip %s not found", uuid)
	}
	out := *c
	return &out, nil
}

func (s *fakeClipStore) GetClipsByStatus(ctx context.Context, status models.ClipStatus, limit int) ([]*models.Clip, error) {
	var out []*models.Clip
	for _, c := range s.clips {
		if c.Status == status {
			cc := *c
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out, nil
}

func (s *fakeClipStore) UpdateClipStatus(ctx context.Context, uuid string, status models.ClipStatus) error {
	c, ok := s.clips[uuid]
	if !ok {
		return fmt.Errorf("clip %s not found", uuid)
	}
	c.Status = status
	return nil
}

func (s *fakeClipStore) DeleteClip(ctx context.Context, uuid string) error {
	if _, ok := s.clips[uuid]; !ok {
		return fmt.Errorf("clip %s not found", uuid)
	}
	delete(s.clips, uuid)
	return nil
}

func (s *fakeClipStore) DeleteClipsByStatus(ctx context.Context, status models.ClipStatus) error {
	for uuid, c := range s.clips {
		if c.Status == status {
			delete(s.clips, uuid)
		}
	}
	return nil
}

func (s *fakeClipStore) InsertPlayLog(ctx context.Context, clipUUID string, playedAt *time.Time) (int64, error) {
	s.nextID++
	return s.nextID, nil
}

func (s *fakeClipStore) GetPlayLogs(ctx context.Context, q repository.PlayLogQuery) ([]models.PlayLogEntry, *repository.PlayLogPage, error) {
	entries := append([]models.PlayLogEntry{}, s.playLogs...)
	if q.Paginate {
		return entries, &repository.PlayLogPage{Entries: entries, HasMore: false}, nil
	}
	return entries, nil, nil
}

func (s *fakeClipStore) DeletePlayLogsByClipStatus(ctx context.Context, status models.ClipStatus) error {
	return nil
}

type fakeSettingsStore struct {
	settings models.Settings
}

func (s *fakeSettingsStore) InitSettings(ctx context.Context) error { return nil }

func (s *fakeSettingsStore) GetSettings(ctx context.Context) (models.Settings, error) {
	return s.settings, nil
}

func (s *fakeSettingsStore) UpdateSettings(ctx context.Context, updated models.Settings) error {
	s.settings = updated
	return nil
}

func defaultSettings() models.Settings {
	return models.Settings{
		Version:       1,
		CommandPrefix: "!",
		Queue: models.QueueSettings{
			AutoModerationEnabled: false,
			EnabledPlatforms:      []string{"fake"},
		},
	}
}
