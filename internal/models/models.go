package models

import "time"

// ClipStatus is the lifecycle state of a persisted clip.
type ClipStatus string

const (
	ClipStatusApproved ClipStatus = "approved"
	ClipStatusPending  ClipStatus = "pending"
	ClipStatusRejected ClipStatus = "rejected"
	ClipStatusPlayed   ClipStatus = "played"
)

// Platform is the closed tag union of upstream clip sources (spec §9 "tagged platform variants").
type Platform string

const (
	PlatformTwitch Platform = "twitch"
	PlatformKick   Platform = "kick"
	PlatformSora   Platform = "sora"
)

// Clip is identified by the composite UUID "platform:clipId", always lowercase.
type Clip struct {
	UUID        string     `json:"uuid" db:"uuid"`
	Platform    Platform   `json:"platform" db:"platform"`
	ClipID      string     `json:"clipId" db:"clip_id"`
	URL         string     `json:"url" db:"url"`
	EmbedURL    string     `json:"embedUrl" db:"embed_url"`
	VideoURL    *string    `json:"videoUrl,omitempty" db:"video_url"`
	ThumbnailURL *string   `json:"thumbnailUrl,omitempty" db:"thumbnail_url"`
	Title       string     `json:"title" db:"title"`
	Channel     string     `json:"channel" db:"channel"`
	Creator     string     `json:"creator" db:"creator"`
	Category    *string    `json:"category,omitempty" db:"category"`
	CreatedAt   *time.Time `json:"createdAt,omitempty" db:"platform_created_at"`
	Submitters  []string   `json:"submitters" db:"-"`
	Status      ClipStatus `json:"status" db:"status"`
	SubmittedAt time.Time  `json:"submittedAt" db:"submitted_at"`
	PlayedAt    *time.Time `json:"playedAt,omitempty" db:"played_at"`
}

// ClipSubmitters is the many-to-many join row (clip_id, submitter), unique per pair.
type ClipSubmitters struct {
	ClipUUID  string    `json:"clipUuid" db:"clip_uuid"`
	Submitter string    `json:"submitter" db:"submitter"`
	AddedAt   time.Time `json:"addedAt" db:"added_at"`
}

// PlayLogEntry is an append-only history row; a clip may appear multiple times.
type PlayLogEntry struct {
	ID          int64      `json:"id" db:"id"`
	ClipUUID    string     `json:"-" db:"clip_uuid"`
	Clip        *Clip      `json:"clip" db:"-"`
	PlayedAt    time.Time  `json:"playedAt" db:"played_at"`
	PlayedFor   *int       `json:"playedFor,omitempty" db:"played_for_seconds"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
}

// QueueSettings is the queue-behavior half of Settings.
type QueueSettings struct {
	AutoModerationEnabled bool     `json:"autoModerationEnabled"`
	Limit                 *int     `json:"limit"` // nil = unbounded
	EnabledPlatforms      []string `json:"enabledPlatforms"`
}

// LoggerSettings is the logger-behavior half of Settings.
type LoggerSettings struct {
	Level string `json:"level"`
	Limit int    `json:"limit"`
}

// Settings is the single validated configuration row, version-tagged for forward migration.
type Settings struct {
	Version         int            `json:"version" db:"version"`
	CommandPrefix   string         `json:"commandPrefix" db:"command_prefix"` // <=8 non-space chars
	AllowedCommands []string       `json:"allowedCommands" db:"-"`
	Queue           QueueSettings  `json:"queue" db:"-"`
	Logger          LoggerSettings `json:"logger" db:"-"`
	UpdatedAt       time.Time      `json:"updatedAt" db:"updated_at"`
}

// QueueState is the wire shape served by GET /api/queue (spec §6.2).
type QueueState struct {
	Current         *Clip          `json:"current"`
	Upcoming        []*Clip        `json:"upcoming"`
	PlayHistory     []PlayLogEntry `json:"playHistory"`
	HistoryPosition int            `json:"historyPosition"`
	IsOpen          bool           `json:"isOpen"`
	Settings        Settings       `json:"settings"`
}

// Principal is the transient, cache-backed identity resolved from a cookie bearer token.
type Principal struct {
	UserID          string `json:"userId"`
	Username        string `json:"username"`
	DisplayName     string `json:"displayName"`
	ProfileImageURL string `json:"profileImageUrl"`
	IsBroadcaster   bool   `json:"isBroadcaster"`
	IsModerator     bool   `json:"isModerator"`
}

// HasModeratorAccess reports whether the principal may perform moderator-or-broadcaster actions.
func (p *Principal) HasModeratorAccess() bool {
	return p != nil && (p.IsModerator || p.IsBroadcaster)
}

// ValidationError describes a single schema-check failure, reported in the `details` field of
// an INVALID_INPUT response (spec §7).
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// BatchResult is the partial-success shape returned by the batch mutation endpoints.
type BatchResult struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
	NotFound  []string `json:"notFound"`
}
