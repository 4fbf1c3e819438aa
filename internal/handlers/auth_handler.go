package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/subculture-collective/clipqueue/internal/apperr"
	"github.com/subculture-collective/clipqueue/internal/auth"
	"github.com/subculture-collective/clipqueue/internal/middleware"
)

// AuthHandler serves the session/principal endpoints and the admin cache controls,
// working against a cookie-wrapped upstream identity (models.Principal) instead of a
// locally minted user record.
type AuthHandler struct {
	resolver *auth.Resolver
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(resolver *auth.Resolver) *AuthHandler {
	return &AuthHandler{resolver: resolver}
}

// Me serves GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)
	if p == nil {
		apperr.Respond(c, apperr.New(apperr.CodeNotAuthenticated, "not authenticated"))
		return
	}
	c.JSON(http.StatusOK, p)
}

// Validate serves GET /api/auth/validate: 200 with the principal when the cookie's
// token is live, 401 otherwise.
func (h *AuthHandler) Validate(c *gin.Context) {
	p := middleware.PrincipalFromContext(c)
	if p == nil {
		apperr.Respond(c, apperr.New(apperr.CodeNotAuthenticated, "token absent or invalid"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "principal": p})
}

// Logout serves POST /api/auth/logout: invalidates the cached principal and clears the
// session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := middleware.ExtractToken(c); token != "" {
		h.resolver.InvalidateToken(token)
	}
	c.SetCookie("access_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CacheStats serves GET /api/auth/cache/stats (broadcaster only).
func (h *AuthHandler) CacheStats(c *gin.Context) {
	tokens, roles := h.resolver.Stats()
	c.JSON(http.StatusOK, gin.H{"cachedTokens": tokens, "cachedRoles": roles})
}

// CacheClear serves POST /api/auth/cache/clear (broadcaster only).
func (h *AuthHandler) CacheClear(c *gin.Context) {
	h.resolver.InvalidateAll()
	c.JSON(http.StatusOK, gin.H{"success": true})
}
