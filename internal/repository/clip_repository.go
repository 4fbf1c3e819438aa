package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/subculture-collective/clipqueue/internal/models"
	"github.com/subculture-collective/clipqueue/internal/utils"
	logutil "github.com/subculture-collective/clipqueue/pkg/utils"
)

// ClipRepository implements ClipStore: durable clips, their submitter sets, and the
// append-only play log, backed by Postgres via pgxpool.
type ClipRepository struct {
	pool   *pgxpool.Pool
	helper *RepositoryHelper
}

// NewClipRepository creates a new ClipRepository.
func NewClipRepository(pool *pgxpool.Pool) *ClipRepository {
	return &ClipRepository{
		pool:   pool,
		helper: NewRepositoryHelper(pool),
	}
}

// UpsertClip inserts a new clip row with its submitters, or patches mutable metadata and
// merges new submitters into an existing one. Returns the merged clip with its full
// submitter set. Ignores unique-violations when a submitter has already been recorded.
func (r *ClipRepository) UpsertClip(ctx context.Context, clip *models.Clip) (*models.Clip, error) {
	if err := validateClip(clip); err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("clip store: begin upsert: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after Commit

	const upsertQuery = `
		INSERT INTO clips (
			uuid, platform, clip_id, url, embed_url, video_url, thumbnail_url,
			title, channel, creator, category, platform_created_at, status, submitted_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,COALESCE($14, now()))
		ON CONFLICT (uuid) DO UPDATE SET
			title = EXCLUDED.title,
			thumbnail_url = EXCLUDED.thumbnail_url,
			category = EXCLUDED.category,
			embed_url = EXCLUDED.embed_url,
			video_url = EXCLUDED.video_url,
			platform_created_at = EXCLUDED.platform_created_at
		RETURNING status, submitted_at
	`

	var submittedAt time.Time
	row := tx.QueryRow(ctx, upsertQuery,
		clip.UUID, clip.Platform, clip.ClipID, clip.URL, clip.EmbedURL, clip.VideoURL, clip.ThumbnailURL,
		clip.Title, clip.Channel, clip.Creator, clip.Category, clip.CreatedAt, clip.Status, nullableTime(clip.SubmittedAt),
	)
	if err := row.Scan(&clip.Status, &submittedAt); err != nil {
		return nil, fmt.Errorf("clip store: upsert clip: %w", err)
	}
	clip.SubmittedAt = submittedAt

	for _, submitter := range clip.Submitters {
		_, err := tx.Exec(ctx, `
			INSERT INTO clip_submitters (clip_uuid, submitter)
			VALUES ($1, $2)
			ON CONFLICT (clip_uuid, submitter) DO NOTHING
		`, clip.UUID, submitter)
		if err != nil {
			return nil, fmt.Errorf("clip store: insert submitter: %w", err)
		}
	}

	submitters, err := fetchSubmitters(ctx, tx, []string{clip.UUID})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("clip store: commit upsert: %w", err)
	}

	clip.Submitters = submitters[clip.UUID]
	return clip, nil
}

// GetClip returns a clip by its composite UUID, or nil if absent or if the row fails schema
// validation (logged as a warning and treated as a miss).
func (r *ClipRepository) GetClip(ctx context.Context, uuid string) (*models.Clip, error) {
	clip, err := scanOneClip(ctx, r.pool, `
		SELECT uuid, platform, clip_id, url, embed_url, video_url, thumbnail_url, title,
			channel, creator, category, platform_created_at, status, submitted_at, played_at
		FROM clips WHERE uuid = $1
	`, uuid)
	if err != nil || clip == nil {
		return nil, err
	}
	if verr := validateClip(clip); verr != nil {
		logutil.GetLogger().Warn("clip row failed validation, treated as missing", map[string]interface{}{
			"uuid":  uuid,
			"error": verr.Error(),
		})
		return nil, nil
	}

	submitters, err := fetchSubmitters(ctx, r.pool, []string{clip.UUID})
	if err != nil {
		return nil, err
	}
	clip.Submitters = submitters[clip.UUID]
	return clip, nil
}

// GetClipsByStatus lists clips in the given status. Approved clips are ordered oldest-first;
// played clips are ordered newest-first and default to a limit of 50. Submitters are fetched
// in one batched query.
func (r *ClipRepository) GetClipsByStatus(ctx context.Context, status models.ClipStatus, limit int) ([]*models.Clip, error) {
	order := "ASC"
	if status == models.ClipStatusPlayed {
		order = "DESC"
		if limit <= 0 {
			limit = 50
		}
	}
	if limit <= 0 {
		limit = 1000
	}
	offset := 0
	r.helper.EnforcePaginationLimits(&limit, &offset)

	query := fmt.Sprintf(`
		SELECT uuid, platform, clip_id, url, embed_url, video_url, thumbnail_url, title,
			channel, creator, category, platform_created_at, status, submitted_at, played_at
		FROM clips WHERE status = $1 ORDER BY submitted_at %s LIMIT $2
	`, order)

	rows, err := r.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("clip store: list by status: %w", err)
	}
	defer rows.Close()

	clips, err := scanClips(rows)
	if err != nil {
		return nil, err
	}

	uuids := make([]string, 0, len(clips))
	for _, c := range clips {
		uuids = append(uuids, c.UUID)
	}
	submitters, err := fetchSubmitters(ctx, r.pool, uuids)
	if err != nil {
		return nil, err
	}
	for _, c := range clips {
		c.Submitters = submitters[c.UUID]
	}
	return clips, nil
}

// UpdateClipStatus performs an unconditional write; the caller is responsible for
// state-machine legality.
func (r *ClipRepository) UpdateClipStatus(ctx context.Context, uuid string, status models.ClipStatus) error {
	playedAtSet := ""
	if status == models.ClipStatusPlayed {
		playedAtSet = ", played_at = now()"
	}
	query := fmt.Sprintf("UPDATE clips SET status = $1%s WHERE uuid = $2", playedAtSet)
	if _, err := r.pool.Exec(ctx, query, status, uuid); err != nil {
		return fmt.Errorf("clip store: update status: %w", err)
	}
	return nil
}

// DeleteClip removes a clip; submitters and play-log rows cascade via foreign key.
func (r *ClipRepository) DeleteClip(ctx context.Context, uuid string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM clips WHERE uuid = $1", uuid); err != nil {
		return fmt.Errorf("clip store: delete clip: %w", err)
	}
	return nil
}

// DeleteClipsByStatus deletes every clip in the given status, cascading submitters/play-log.
func (r *ClipRepository) DeleteClipsByStatus(ctx context.Context, status models.ClipStatus) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM clips WHERE status = $1", status); err != nil {
		return fmt.Errorf("clip store: delete by status: %w", err)
	}
	return nil
}

// InsertPlayLog appends a play-log row, defaulting playedAt to now, and returns its id.
func (r *ClipRepository) InsertPlayLog(ctx context.Context, clipUUID string, playedAt *time.Time) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO play_log (clip_uuid, played_at) VALUES ($1, COALESCE($2, now())) RETURNING id
	`, clipUUID, playedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("clip store: insert play log: %w", err)
	}
	return id, nil
}

// PlayLogQuery parameterizes GetPlayLogs.
type PlayLogQuery struct {
	Limit    int
	Order    string // "asc" or "desc"
	Cursor   string
	Paginate bool
}

// PlayLogPage is the paginated shape returned when PlayLogQuery.Paginate is true.
type PlayLogPage struct {
	Entries    []models.PlayLogEntry
	NextCursor string
	HasMore    bool
}

// GetPlayLogs returns either a flat ordered list, or a cursor page when Paginate is true.
// The cursor is opaque and stable across restarts (keyset on play_log.id).
func (r *ClipRepository) GetPlayLogs(ctx context.Context, q PlayLogQuery) ([]models.PlayLogEntry, *PlayLogPage, error) {
	order := "DESC"
	if q.Order == "asc" {
		order = "ASC"
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := 0
	r.helper.EnforcePaginationLimits(&limit, &offset)

	var afterID int64
	if q.Cursor != "" {
		id, _, err := utils.DecodePlayLogCursor(q.Cursor)
		if err != nil {
			return nil, nil, fmt.Errorf("clip store: %w", err)
		}
		afterID = id
	}

	cmp := "<"
	if order == "ASC" {
		cmp = ">"
	}

	fetchLimit := limit
	if q.Paginate {
		fetchLimit = limit + 1
	}

	query := fmt.Sprintf(`
		SELECT pl.id, pl.clip_uuid, pl.played_at, pl.played_for_seconds, pl.completed_at,
			c.uuid, c.platform, c.clip_id, c.url, c.embed_url, c.video_url, c.thumbnail_url,
			c.title, c.channel, c.creator, c.category, c.platform_created_at, c.status,
			c.submitted_at, c.played_at
		FROM play_log pl
		JOIN clips c ON c.uuid = pl.clip_uuid
		WHERE ($1 = 0 OR pl.id %s $1)
		ORDER BY pl.id %s
		LIMIT $2
	`, cmp, order)

	rows, err := r.pool.Query(ctx, query, afterID, fetchLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("clip store: get play logs: %w", err)
	}
	defer rows.Close()

	entries := make([]models.PlayLogEntry, 0, fetchLimit)
	for rows.Next() {
		var e models.PlayLogEntry
		var c models.Clip
		if err := rows.Scan(
			&e.ID, &e.ClipUUID, &e.PlayedAt, &e.PlayedFor, &e.CompletedAt,
			&c.UUID, &c.Platform, &c.ClipID, &c.URL, &c.EmbedURL, &c.VideoURL, &c.ThumbnailURL,
			&c.Title, &c.Channel, &c.Creator, &c.Category, &c.CreatedAt, &c.Status,
			&c.SubmittedAt, &c.PlayedAt,
		); err != nil {
			return nil, nil, fmt.Errorf("clip store: scan play log: %w", err)
		}
		e.Clip = &c
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("clip store: iterate play logs: %w", err)
	}

	if !q.Paginate {
		return entries, nil, nil
	}

	page := &PlayLogPage{Entries: entries}
	if len(entries) > limit {
		page.Entries = entries[:limit]
		page.HasMore = true
		page.NextCursor = utils.EncodePlayLogCursor(page.Entries[len(page.Entries)-1].ID, q.Order)
	}
	return nil, page, nil
}

// DeletePlayLogsByClipStatus deletes log rows referencing clips in the given status, in one query.
func (r *ClipRepository) DeletePlayLogsByClipStatus(ctx context.Context, status models.ClipStatus) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM play_log WHERE clip_uuid IN (SELECT uuid FROM clips WHERE status = $1)
	`, status)
	if err != nil {
		return fmt.Errorf("clip store: delete play logs by status: %w", err)
	}
	return nil
}

// --- scanning helpers ---

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func scanOneClip(ctx context.Context, q querier, query string, args ...interface{}) (*models.Clip, error) {
	var c models.Clip
	row := q.QueryRow(ctx, query, args...)
	err := row.Scan(&c.UUID, &c.Platform, &c.ClipID, &c.URL, &c.EmbedURL, &c.VideoURL, &c.ThumbnailURL,
		&c.Title, &c.Channel, &c.Creator, &c.Category, &c.CreatedAt, &c.Status, &c.SubmittedAt, &c.PlayedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("clip store: scan clip: %w", err)
	}
	return &c, nil
}

func scanClips(rows pgx.Rows) ([]*models.Clip, error) {
	var clips []*models.Clip
	for rows.Next() {
		var c models.Clip
		if err := rows.Scan(&c.UUID, &c.Platform, &c.ClipID, &c.URL, &c.EmbedURL, &c.VideoURL, &c.ThumbnailURL,
			&c.Title, &c.Channel, &c.Creator, &c.Category, &c.CreatedAt, &c.Status, &c.SubmittedAt, &c.PlayedAt); err != nil {
			return nil, fmt.Errorf("clip store: scan clip: %w", err)
		}
		clips = append(clips, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clip store: iterate clips: %w", err)
	}
	return clips, nil
}

// fetchSubmitters batch-fetches submitters for many clips in one query, avoiding N+1 reads.
func fetchSubmitters(ctx context.Context, q querier, uuids []string) (map[string][]string, error) {
	result := make(map[string][]string, len(uuids))
	if len(uuids) == 0 {
		return result, nil
	}

	rows, err := q.Query(ctx, `
		SELECT clip_uuid, submitter FROM clip_submitters
		WHERE clip_uuid = ANY($1) ORDER BY clip_uuid, added_at ASC
	`, uuids)
	if err != nil {
		return nil, fmt.Errorf("clip store: fetch submitters: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uuid, submitter string
		if err := rows.Scan(&uuid, &submitter); err != nil {
			return nil, fmt.Errorf("clip store: scan submitter: %w", err)
		}
		result[uuid] = append(result[uuid], submitter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clip store: iterate submitters: %w", err)
	}
	return result, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func validateClip(c *models.Clip) error {
	if c.UUID == "" {
		return &models.ValidationError{Field: "uuid", Message: "required"}
	}
	if c.URL == "" || len(c.URL) > 500 {
		return &models.ValidationError{Field: "url", Message: "must be 1-500 chars"}
	}
	if c.Title == "" {
		return &models.ValidationError{Field: "title", Message: "required"}
	}
	switch c.Status {
	case models.ClipStatusApproved, models.ClipStatusPending, models.ClipStatusRejected, models.ClipStatusPlayed:
	default:
		return &models.ValidationError{Field: "status", Message: "invalid status"}
	}
	return nil
}
