package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/subculture-collective/clipqueue/internal/guard"
	"github.com/subculture-collective/clipqueue/internal/models"
	"github.com/subculture-collective/clipqueue/internal/resolver"
	"github.com/subculture-collective/clipqueue/pkg/metrics"
	"github.com/subculture-collective/clipqueue/pkg/utils"
)

// SubmitResult is the outcome of Submit: exactly one of Clip (on success) or DropReason
// (on a silent drop) is populated. A drop is a no-op with a log entry, not a failure, so
// it is never reported as an error.
type SubmitResult struct {
	Clip       *models.Clip
	Merged     bool
	DropReason string
}

func (r SubmitResult) Dropped() bool { return r.DropReason != "" }

// Submit runs the clip-submission pipeline for a URL submitted either from chat or the
// REST submit endpoint.
func (e *Engine) Submit(ctx context.Context, rawURL, submitter string, isModerator, isBroadcaster bool) (SubmitResult, error) {
	e.guards.LockSubmission()
	defer e.guards.UnlockSubmission()

	var open bool
	e.guards.WithQueueOperation(func() { open = e.queue.IsOpen() })
	if !open {
		return e.drop("queue closed", rawURL, submitter), nil
	}

	// Step 2: duplicate-URL short-circuit.
	if e.caches.URL.Seen(rawURL, guard.UrlSubmissionTTL) {
		return e.drop("duplicate url submitted recently", rawURL, submitter), nil
	}

	// Step 3: per-user rate limit.
	if e.caches.User.Seen(submitter, guard.UserSubmissionTTL) {
		return e.drop("submitter rate limited", rawURL, submitter), nil
	}

	// Step 4: platform detection.
	platform, _, ok := e.dispatcher.Detect(rawURL)
	if !ok {
		return e.drop("no platform matched url", rawURL, submitter), nil
	}

	if !e.caches.Platform.Allow(platform) {
		return e.drop("platform upstream rate limited", rawURL, submitter), nil
	}

	// Step 5: resolve via the platform dispatcher, with retries built in.
	resolved, err := e.dispatcher.Resolve(ctx, rawURL)
	if err != nil {
		return e.drop(fmt.Sprintf("resolve failed: %v", err), rawURL, submitter), nil
	}

	settings := e.Settings()

	// Step 6: platform-enabled check.
	if !platformEnabled(settings, platform) {
		return e.drop("platform disabled", rawURL, submitter), nil
	}

	autoApprove := !settings.Queue.AutoModerationEnabled || isModerator || isBroadcaster

	// Step 7: queue-size limit check. A submission that would land pending (not
	// auto-approved) is dropped outright once the live queue is already at its cap,
	// rather than let pending review pile up behind a queue that can't grow further.
	if settings.Queue.Limit != nil && len(e.queue.Queue()) >= *settings.Queue.Limit && !autoApprove {
		return e.drop("queue at limit", rawURL, submitter), nil
	}

	uuid := clipUUID(platform, resolved.ClipID)

	// Step 8: merge into an existing queued clip.
	if e.queue.Includes(uuid) {
		clip := &models.Clip{
			UUID:       uuid,
			Platform:   models.Platform(platform),
			ClipID:     resolved.ClipID,
			URL:        resolved.URL,
			EmbedURL:   resolved.EmbedURL,
			Title:      resolved.Title,
			Channel:    resolved.Channel,
			Creator:    resolved.Creator,
			Submitters: []string{submitter},
			Status:     models.ClipStatusApproved,
		}
		persisted, err := e.store.UpsertClip(ctx, clip)
		if err != nil {
			return SubmitResult{}, fmt.Errorf("command: submit: merge upsert: %w", err)
		}
		e.guards.WithQueueOperation(func() { e.queue.Add(persisted) })
		e.sync.Invalidate()
		metrics.SubmissionsTotal.WithLabelValues("merged").Inc()
		return SubmitResult{Clip: persisted, Merged: true}, nil
	}

	// Step 9: new submission.
	status := models.ClipStatusPending
	if autoApprove {
		status = models.ClipStatusApproved
	}

	clip := toModelClip(resolved, platform, uuid, submitter, status)
	persisted, err := e.store.UpsertClip(ctx, clip)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("command: submit: upsert: %w", err)
	}

	if status == models.ClipStatusApproved {
		e.guards.WithQueueOperation(func() { e.queue.Add(persisted) })
	}

	// Step 10: bump ETag (mutex release is deferred above).
	e.sync.Invalidate()
	metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	return SubmitResult{Clip: persisted}, nil
}

func (e *Engine) drop(reason, rawURL, submitter string) SubmitResult {
	utils.GetLogger().Info("clip submission dropped", map[string]interface{}{
		"reason":    reason,
		"url":       rawURL,
		"submitter": submitter,
	})
	metrics.SubmissionsTotal.WithLabelValues("dropped").Inc()
	return SubmitResult{DropReason: reason}
}

func platformEnabled(s models.Settings, platform string) bool {
	for _, p := range s.Queue.EnabledPlatforms {
		if strings.EqualFold(p, platform) {
			return true
		}
	}
	return false
}

func clipUUID(platform, clipID string) string {
	return strings.ToLower(platform + ":" + clipID)
}

func toModelClip(rc *resolver.Clip, platform, uuid, submitter string, status models.ClipStatus) *models.Clip {
	clip := &models.Clip{
		UUID:       uuid,
		Platform:   models.Platform(platform),
		ClipID:     rc.ClipID,
		URL:        rc.URL,
		EmbedURL:   rc.EmbedURL,
		Title:      rc.Title,
		Channel:    rc.Channel,
		Creator:    rc.Creator,
		Submitters: []string{submitter},
		Status:     status,
	}
	if rc.VideoURL != "" {
		clip.VideoURL = &rc.VideoURL
	}
	if rc.ThumbnailURL != "" {
		clip.ThumbnailURL = &rc.ThumbnailURL
	}
	if rc.Category != "" {
		clip.Category = &rc.Category
	}
	if !rc.CreatedAt.IsZero() {
		createdAt := rc.CreatedAt
		clip.CreatedAt = &createdAt
	}
	return clip
}
