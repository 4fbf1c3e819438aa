package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/subculture-collective/clipqueue/internal/models"
	logutil "github.com/subculture-collective/clipqueue/pkg/utils"
)

const defaultCommandPrefix = "!"
const settingsRowID = 1

var defaultAllowedCommands = []string{
	"open", "close", "clear", "setlimit", "removelimit", "next", "prev", "previous",
	"removebysubmitter", "removebyplatform", "enableplatform", "disableplatform",
	"enableautomod", "disableautomod", "purgecache", "purgehistory",
}

func defaultSettings() models.Settings {
	return models.Settings{
		Version:         1,
		CommandPrefix:   defaultCommandPrefix,
		AllowedCommands: defaultAllowedCommands,
		Queue: models.QueueSettings{
			AutoModerationEnabled: false,
			Limit:                 nil,
			EnabledPlatforms:      []string{"twitch", "kick", "sora"},
		},
		Logger: models.LoggerSettings{Level: "info", Limit: 1000},
	}
}

// SettingsRepository implements the Settings half of the storage layer:
// initSettings/getSettings/updateSettings over a single validated row.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// InitSettings seeds the single settings row with defaults if one does not already exist.
func (r *SettingsRepository) InitSettings(ctx context.Context) error {
	defaults := defaultSettings()
	allowed, err := json.Marshal(defaults.AllowedCommands)
	if err != nil {
		return fmt.Errorf("settings: marshal allowed commands: %w", err)
	}
	platforms, err := json.Marshal(defaults.Queue.EnabledPlatforms)
	if err != nil {
		return fmt.Errorf("settings: marshal enabled platforms: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO settings (
			id, version, command_prefix, allowed_commands,
			queue_auto_moderation_enabled, queue_limit, queue_enabled_platforms,
			logger_level, logger_limit
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO NOTHING
	`, settingsRowID, defaults.Version, defaults.CommandPrefix, allowed,
		defaults.Queue.AutoModerationEnabled, defaults.Queue.Limit, platforms,
		defaults.Logger.Level, defaults.Logger.Limit)
	if err != nil {
		return fmt.Errorf("settings: init: %w", err)
	}
	return nil
}

// GetSettings reads the settings row. If missing or invalid, it reinitializes defaults,
// logs a warning once for the reinitialization, and returns them.
func (r *SettingsRepository) GetSettings(ctx context.Context) (models.Settings, error) {
	var s models.Settings
	var allowed, platforms []byte
	reinit := func(field string) (models.Settings, error) {
		defaults := defaultSettings()
		if err := r.UpdateSettings(ctx, defaults); err != nil {
			return models.Settings{}, err
		}
		logutil.GetLogger().Warn("settings: invalid row reinitialized to defaults", map[string]interface{}{"field": field})
		return defaults, nil
	}

	row := r.pool.QueryRow(ctx, `
		SELECT version, command_prefix, allowed_commands, queue_auto_moderation_enabled,
			queue_limit, queue_enabled_platforms, logger_level, logger_limit, updated_at
		FROM settings WHERE id = $1
	`, settingsRowID)
	err := row.Scan(&s.Version, &s.CommandPrefix, &allowed, &s.Queue.AutoModerationEnabled,
		&s.Queue.Limit, &platforms, &s.Logger.Level, &s.Logger.Limit, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			if initErr := r.InitSettings(ctx); initErr != nil {
				return models.Settings{}, initErr
			}
			return r.GetSettings(ctx)
		}
		return models.Settings{}, fmt.Errorf("settings: get: %w", err)
	}

	if err := json.Unmarshal(allowed, &s.AllowedCommands); err != nil {
		return reinit("allowed_commands")
	}
	if err := json.Unmarshal(platforms, &s.Queue.EnabledPlatforms); err != nil {
		return reinit("enabled_platforms")
	}
	if len(s.CommandPrefix) == 0 || len(s.CommandPrefix) > 8 {
		return reinit("command_prefix")
	}

	return s, nil
}

// UpdateSettings validates and persists the full settings row.
func (r *SettingsRepository) UpdateSettings(ctx context.Context, s models.Settings) error {
	if err := validateSettings(s); err != nil {
		return err
	}

	allowed, err := json.Marshal(s.AllowedCommands)
	if err != nil {
		return fmt.Errorf("settings: marshal allowed commands: %w", err)
	}
	platforms, err := json.Marshal(s.Queue.EnabledPlatforms)
	if err != nil {
		return fmt.Errorf("settings: marshal enabled platforms: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE settings SET
			version = $1, command_prefix = $2, allowed_commands = $3,
			queue_auto_moderation_enabled = $4, queue_limit = $5, queue_enabled_platforms = $6,
			logger_level = $7, logger_limit = $8, updated_at = now()
		WHERE id = $9
	`, s.Version, s.CommandPrefix, allowed, s.Queue.AutoModerationEnabled, s.Queue.Limit,
		platforms, s.Logger.Level, s.Logger.Limit, settingsRowID)
	if err != nil {
		return fmt.Errorf("settings: update: %w", err)
	}
	return nil
}

func validateSettings(s models.Settings) error {
	if len(s.CommandPrefix) == 0 || len(s.CommandPrefix) > 8 {
		return &models.ValidationError{Field: "commandPrefix", Message: "must be 1-8 non-space chars"}
	}
	for _, r := range s.CommandPrefix {
		if r == ' ' {
			return &models.ValidationError{Field: "commandPrefix", Message: "must not contain spaces"}
		}
	}
	if s.Queue.Limit != nil && *s.Queue.Limit <= 0 {
		return &models.ValidationError{Field: "queue.limit", Message: "must be a positive integer or null"}
	}
	return nil
}
