package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/subculture-collective/clipqueue/internal/apperr"
	"github.com/subculture-collective/clipqueue/internal/command"
)

// SettingsHandler serves the broadcaster-only settings endpoints.
type SettingsHandler struct {
	engine *command.Engine
}

// NewSettingsHandler constructs a SettingsHandler.
func NewSettingsHandler(engine *command.Engine) *SettingsHandler {
	return &SettingsHandler{engine: engine}
}

// GetSettings serves GET /api/settings.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Settings())
}

type updateSettingsRequest struct {
	CommandPrefix         *string  `json:"commandPrefix"`
	AutoModerationEnabled *bool    `json:"autoModerationEnabled"`
	Limit                 *int     `json:"limit"`
	ClearLimit            bool     `json:"clearLimit"`
	EnabledPlatforms      []string `json:"enabledPlatforms"`
}

// UpdateSettings serves PUT /api/settings. Only the fields present in the body are
// applied; the rest of the cached settings is left untouched.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.Invalid("invalid request body"))
		return
	}

	ctx := c.Request.Context()

	if req.CommandPrefix != nil {
		if err := h.engine.SetCommandPrefix(ctx, *req.CommandPrefix); err != nil {
			apperr.Respond(c, apperr.New(apperr.CodeInvalidSettings, err.Error()))
			return
		}
	}

	if req.Limit != nil {
		if err := h.engine.SetLimit(ctx, *req.Limit); err != nil {
			apperr.Respond(c, apperr.New(apperr.CodeInvalidSettings, err.Error()))
			return
		}
	} else if req.ClearLimit {
		if err := h.engine.RemoveLimit(ctx); err != nil {
			apperr.Respond(c, apperr.New(apperr.CodeInternal, "failed to update settings"))
			return
		}
	}

	if req.AutoModerationEnabled != nil {
		var err error
		if *req.AutoModerationEnabled {
			err = h.engine.EnableAutoMod(ctx)
		} else {
			err = h.engine.DisableAutoMod(ctx)
		}
		if err != nil {
			apperr.Respond(c, apperr.New(apperr.CodeInternal, "failed to update settings"))
			return
		}
	}

	if req.EnabledPlatforms != nil {
		current := h.engine.Settings().Queue.EnabledPlatforms
		wanted := make(map[string]bool, len(req.EnabledPlatforms))
		for _, p := range req.EnabledPlatforms {
			wanted[p] = true
		}
		for _, p := range current {
			if !wanted[p] {
				if err := h.engine.DisablePlatform(ctx, p); err != nil {
					apperr.Respond(c, apperr.New(apperr.CodeInternal, "failed to update settings"))
					return
				}
			}
		}
		for p := range wanted {
			if err := h.engine.EnablePlatform(ctx, p); err != nil {
				apperr.Respond(c, apperr.New(apperr.CodeInternal, "failed to update settings"))
				return
			}
		}
	}

	apperr.Success(c, h.engine.Snapshot())
}
