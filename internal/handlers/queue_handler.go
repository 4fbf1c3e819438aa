// Package handlers implements the REST surface: thin Gin handlers over the Command
// Engine, translating HTTP verbs/bodies into engine calls and serializing the uniform
// success/error envelopes (internal/apperr). Handlers wrap a single engine dependency
// rather than one service per resource, binding requests with c.ShouldBindJSON.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/subculture-collective/clipqueue/internal/apperr"
	"github.com/subculture-collective/clipqueue/internal/command"
	"github.com/subculture-collective/clipqueue/internal/etag"
	"github.com/subculture-collective/clipqueue/internal/middleware"
	"github.com/subculture-collective/clipqueue/internal/models"
	"github.com/subculture-collective/clipqueue/internal/repository"
)

// QueueHandler serves the queue/history/submission REST surface.
type QueueHandler struct {
	engine *command.Engine
	sync   *etag.Synchronizer
	store  repository.ClipStore
}

// NewQueueHandler constructs a QueueHandler.
func NewQueueHandler(engine *command.Engine, sync *etag.Synchronizer, store repository.ClipStore) *QueueHandler {
	return &QueueHandler{engine: engine, sync: sync, store: store}
}

// GetQueue serves GET /api/queue with ETag-conditional caching.
func (h *QueueHandler) GetQueue(c *gin.Context) {
	state := h.engine.Snapshot()
	fingerprint := h.sync.Fingerprint(state)

	c.Header("ETag", `"`+fingerprint+`"`)
	if match := c.GetHeader("If-None-Match"); match != "" && stripQuotes(match) == fingerprint {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, state)
}

func stripQuotes(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

type historyResponse struct {
	Entries    []models.PlayLogEntry `json:"entries"`
	NextCursor string                 `json:"nextCursor"`
	HasMore    bool                   `json:"hasMore"`
	Count      int                    `json:"count"`
}

// GetHistory serves GET /api/history?limit&cursor.
func (h *QueueHandler) GetHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			apperr.Respond(c, apperr.Invalid("limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, page, err := h.store.GetPlayLogs(c.Request.Context(), repository.PlayLogQuery{
		Limit:    limit,
		Order:    "desc",
		Cursor:   c.Query("cursor"),
		Paginate: true,
	})
	if err != nil {
		apperr.Respond(c, apperr.New(apperr.CodeInternal, "failed to load history"))
		return
	}

	resp := historyResponse{Entries: entries, Count: len(entries)}
	if page != nil {
		resp.Entries = page.Entries
		resp.Count = len(page.Entries)
		resp.NextCursor = page.NextCursor
		resp.HasMore = page.HasMore
	}
	c.JSON(http.StatusOK, resp)
}

type submitRequest struct {
	URL       string `json:"url" binding:"required"`
	Submitter string `json:"submitter" binding:"required"`
}

func (r submitRequest) validate() *apperr.Error {
	var issues []apperr.FieldIssue
	if len(r.URL) == 0 || len(r.URL) > 500 {
		issues = append(issues, apperr.FieldIssue{Field: "url", Message: "must be 1-500 characters"})
	}
	if len(r.Submitter) == 0 || len(r.Submitter) > 100 {
		issues = append(issues, apperr.FieldIssue{Field: "submitter", Message: "must be 1-100 characters"})
	}
	if len(issues) > 0 {
		return apperr.Invalid("invalid submission", issues...)
	}
	return nil
}

// Submit serves POST /api/queue/submit.
func (h *QueueHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Invalid("invalid request body"))
		return
	}
	if verr := req.validate(); verr != nil {
		apperr.Respond(c, verr)
		return
	}

	principal := middleware.PrincipalFromContext(c)
	if _, err := h.engine.Submit(c.Request.Context(), req.URL, req.Submitter, principal.HasModeratorAccess(), principal != nil && principal.IsBroadcaster); err != nil {
		apperr.Respond(c, apperr.New(apperr.CodeInternal, "failed to submit clip"))
		return
	}
	apperr.Success(c, h.engine.Snapshot())
}

// Advance serves POST /api/queue/advance.
func (h *QueueHandler) Advance(c *gin.Context) {
	if _, err := h.engine.Next(c.Request.Context()); err != nil {
		apperr.Respond(c, apperr.New(apperr.CodeInternal, "failed to advance queue"))
		return
	}
	apperr.Success(c, h.engine.Snapshot())
}

// Previous serves POST /api/queue/previous.
func (h *QueueHandler) Previous(c *gin.Context) {
	if _, err := h.engine.Previous(c.Request.Context()); err != nil {
		apperr.Respond(c, apperr.New(apperr.CodeInternal, "failed to restore previous clip"))
		return
	}
	apperr.Success(c, h.engine.Snapshot())
}

type clipIDRequest struct {
	ClipID string `json:"clipId" binding:"required"`
}

func bindClipID(c *gin.Context) (string, bool) {
	var req clipIDRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ClipID) == 0 || len(req.ClipID) > 200 {
		apperr.Respond(c, apperr.Invalid("clipId must be 1-200 characters"))
		return "", false
	}
	return req.ClipID, true
}

// Play serves POST /api/queue/play.
func (h *QueueHandler) Play(c *gin.Context) {
	clipID, ok := bindClipID(c)
	if !ok {
		return
	}
	if _, err := h.engine.Play(c.Request.Context(), clipID); err != nil {
		apperr.Respond(c, apperr.New(apperr.CodeClipNotInQueue, "clip not in queue").WithDetails(apperr.FieldIssue{Field: "clipId", Message: clipID}))
		return
	}
	apperr.Success(c, h.engine.Snapshot())
}

// Remove serves POST /api/queue/remove.
func (h *QueueHandler) Remove(c *gin.Context) {
	clipID, ok := bindClipID(c)
	if !ok {
		return
	}
	if err := h.engine.Remove(c.Request.Context(), clipID); err != nil {
		apperr.Respond(c, apperr.New(apperr.CodeClipNotInQueue, "clip not in queue").WithDetails(apperr.FieldIssue{Field: "clipId", Message: clipID}))
		return
	}
	apperr.Success(c, h.engine.Snapshot())
}

// Approve serves POST /api/queue/approve.
func (h *QueueHandler) Approve(c *gin.Context) {
	clipID, ok := bindClipID(c)
	if !ok {
		return
	}
	if _, err := h.engine.ApprovePending(c.Request.Context(), clipID); err != nil {
		apperr.Respond(c, apperr.New(apperr.CodePendingClipNotFound, "pending clip not found").WithDetails(apperr.FieldIssue{Field: "clipId", Message: clipID}))
		return
	}
	apperr.Success(c, h.engine.Snapshot())
}

// Reject serves POST /api/queue/reject.
func (h *QueueHandler) Reject(c *gin.Context) {
	clipID, ok := bindClipID(c)
	if !ok {
		return
	}
	if err := h.engine.RejectPending(c.Request.Context(), clipID); err != nil {
		apperr.Respond(c, apperr.New(apperr.CodePendingClipNotFound, "pending clip not found").WithDetails(apperr.FieldIssue{Field: "clipId", Message: clipID}))
		return
	}
	apperr.Success(c, h.engine.Snapshot())
}

// RestoreRejected serves POST /api/queue/rejected/:clipId/restore.
func (h *QueueHandler) RestoreRejected(c *gin.Context) {
	clipID := c.Param("clipId")
	if _, err := h.engine.RestoreRejected(c.Request.Context(), clipID); err != nil {
		apperr.Respond(c, apperr.New(apperr.CodeRejectedClipNotFound, "rejected clip not found").WithDetails(apperr.FieldIssue{Field: "clipId", Message: clipID}))
		return
	}
	apperr.Success(c, h.engine.Snapshot())
}

// GetPending serves GET /api/queue/pending.
func (h *QueueHandler) GetPending(c *gin.Context) {
	clips, err := h.store.GetClipsByStatus(c.Request.Context(), models.ClipStatusPending, 0)
	if err != nil {
		apperr.Respond(c, apperr.New(apperr.CodeInternal, "failed to load pending clips"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"clips": clips})
}

// GetRejected serves GET /api/queue/rejected.
func (h *QueueHandler) GetRejected(c *gin.Context) {
	clips, err := h.store.GetClipsByStatus(c.Request.Context(), models.ClipStatusRejected, 0)
	if err != nil {
		apperr.Respond(c, apperr.New(apperr.CodeInternal, "failed to load rejected clips"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"clips": clips})
}

// ReplayFromHistory serves POST /api/queue/history/:clipId/replay. Jumping to a history
// clip does not append a new play-log row.
func (h *QueueHandler) ReplayFromHistory(c *gin.Context) {
	clipID := c.Param("clipId")
	if err := h.engine.JumpToHistoryClip(c.Request.Context(), clipID); err != nil {
		apperr.Respond(c, apperr.New(apperr.CodeClipNotInHistory, "clip not in history").WithDetails(apperr.FieldIssue{Field: "clipId", Message: clipID}))
		return
	}
	apperr.Success(c, h.engine.Snapshot())
}

// DeleteHistoryEntry serves DELETE /api/queue/history/:clipId.
func (h *QueueHandler) DeleteHistoryEntry(c *gin.Context) {
	clipID := c.Param("clipId")
	if err := h.store.DeleteClip(c.Request.Context(), clipID); err != nil {
		apperr.Respond(c, apperr.New(apperr.CodeClipNotInHistory, "clip not in history").WithDetails(apperr.FieldIssue{Field: "clipId", Message: clipID}))
		return
	}
	apperr.Success(c, h.engine.Snapshot())
}

type batchRequest struct {
	ClipIDs []string `json:"clipIds" binding:"required"`
}

func (h *QueueHandler) bindBatch(c *gin.Context) ([]string, bool) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ClipIDs) == 0 || len(req.ClipIDs) > 100 {
		apperr.Respond(c, apperr.Invalid("clipIds must have 1-100 entries"))
		return nil, false
	}
	return req.ClipIDs, true
}

// runBatch applies op to every id, sorting outcomes into the partial-success shape:
// batch operations report a per-id outcome rather than failing the whole batch.
func runBatch(ctx context.Context, ids []string, op func(context.Context, string) error) models.BatchResult {
	result := models.BatchResult{}
	for _, id := range ids {
		err := op(ctx, id)
		switch {
		case err == nil:
			result.Succeeded = append(result.Succeeded, id)
		case errors.Is(err, errNotFoundSentinel):
			result.NotFound = append(result.NotFound, id)
		default:
			result.Failed = append(result.Failed, id)
		}
	}
	return result
}

var errNotFoundSentinel = errors.New("not found")

// BatchRemove serves POST /api/queue/batch/remove.
func (h *QueueHandler) BatchRemove(c *gin.Context) {
	ids, ok := h.bindBatch(c)
	if !ok {
		return
	}
	result := runBatch(c.Request.Context(), ids, func(ctx context.Context, id string) error {
		if err := h.engine.Remove(ctx, id); err != nil {
			return errNotFoundSentinel
		}
		return nil
	})
	c.JSON(http.StatusOK, gin.H{"removed": result.Succeeded, "failed": result.Failed, "notFound": result.NotFound})
}

// BatchApprove serves POST /api/queue/batch/approve.
func (h *QueueHandler) BatchApprove(c *gin.Context) {
	ids, ok := h.bindBatch(c)
	if !ok {
		return
	}
	result := runBatch(c.Request.Context(), ids, func(ctx context.Context, id string) error {
		if _, err := h.engine.ApprovePending(ctx, id); err != nil {
			return errNotFoundSentinel
		}
		return nil
	})
	c.JSON(http.StatusOK, gin.H{"approved": result.Succeeded, "failed": result.Failed, "notFound": result.NotFound})
}

// BatchReject serves POST /api/queue/batch/reject.
func (h *QueueHandler) BatchReject(c *gin.Context) {
	ids, ok := h.bindBatch(c)
	if !ok {
		return
	}
	result := runBatch(c.Request.Context(), ids, func(ctx context.Context, id string) error {
		if err := h.engine.RejectPending(ctx, id); err != nil {
			return errNotFoundSentinel
		}
		return nil
	})
	c.JSON(http.StatusOK, gin.H{"rejected": result.Succeeded, "failed": result.Failed, "notFound": result.NotFound})
}

// ClearQueue serves DELETE /api/queue (broadcaster only).
func (h *QueueHandler) ClearQueue(c *gin.Context) {
	if err := h.engine.Clear(c.Request.Context()); err != nil {
		apperr.Respond(c, apperr.New(apperr.CodeInternal, "failed to clear queue"))
		return
	}
	apperr.Success(c, h.engine.Snapshot())
}

// ClearHistory serves DELETE /api/queue/history (broadcaster only).
func (h *QueueHandler) ClearHistory(c *gin.Context) {
	if err := h.engine.ClearHistory(c.Request.Context()); err != nil {
		apperr.Respond(c, apperr.New(apperr.CodeInternal, "failed to clear history"))
		return
	}
	apperr.Success(c, h.engine.Snapshot())
}

// Open serves POST /api/queue/open (broadcaster only).
func (h *QueueHandler) Open(c *gin.Context) {
	_ = h.engine.Open(c.Request.Context())
	apperr.Success(c, h.engine.Snapshot())
}

// Close serves POST /api/queue/close (broadcaster only).
func (h *QueueHandler) Close(c *gin.Context) {
	_ = h.engine.Close(c.Request.Context())
	apperr.Success(c, h.engine.Snapshot())
}
