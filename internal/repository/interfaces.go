package repository

import (
	"context"
	"time"

	"github.com/subculture-collective/clipqueue/internal/models"
)

// ClipStore is the durable clip storage contract, implemented by ClipRepository and
// faked by tests that exercise the queue model without a database.
type ClipStore interface {
	UpsertClip(ctx context.Context, clip *models.Clip) (*models.Clip, error)
	GetClip(ctx context.Context, uuid string) (*models.Clip, error)
	GetClipsByStatus(ctx context.Context, status models.ClipStatus, limit int) ([]*models.Clip, error)
	UpdateClipStatus(ctx context.Context, uuid string, status models.ClipStatus) error
	DeleteClip(ctx context.Context, uuid string) error
	DeleteClipsByStatus(ctx context.Context, status models.ClipStatus) error
	InsertPlayLog(ctx context.Context, clipUUID string, playedAt *time.Time) (int64, error)
	GetPlayLogs(ctx context.Context, q PlayLogQuery) ([]models.PlayLogEntry, *PlayLogPage, error)
	DeletePlayLogsByClipStatus(ctx context.Context, status models.ClipStatus) error
}

// SettingsStore is the persisted queue-settings contract.
type SettingsStore interface {
	InitSettings(ctx context.Context) error
	GetSettings(ctx context.Context) (models.Settings, error)
	UpdateSettings(ctx context.Context, s models.Settings) error
}
