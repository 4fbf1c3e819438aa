package handlers

import (
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/subculture-collective/clipqueue/config"
	"github.com/subculture-collective/clipqueue/internal/auth"
	"github.com/subculture-collective/clipqueue/internal/command"
	"github.com/subculture-collective/clipqueue/internal/etag"
	"github.com/subculture-collective/clipqueue/internal/middleware"
	"github.com/subculture-collective/clipqueue/internal/models"
	"github.com/subculture-collective/clipqueue/internal/repository"
	redispkg "github.com/subculture-collective/clipqueue/pkg/redis"
)

// Dependencies bundles everything the router needs to wire the REST surface over the
// Command Engine.
type Dependencies struct {
	Config   *config.Config
	Engine   *command.Engine
	Sync     *etag.Synchronizer
	Store    repository.ClipStore
	Resolver *auth.Resolver
	Chat     ChatStatus
	Redis    *redispkg.Client
	BootTime time.Time
	DocsPath string
}

// NewRouter builds the full Gin engine: ambient middleware (recovery, security headers,
// CORS, Sentry, rate limiting), the public/moderator/broadcaster/auth route groups, and
// the ambient docs endpoint.
func NewRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(middleware.JSONRecoveryMiddleware())
	r.Use(requestid.New())
	r.Use(gin.Logger())
	r.Use(middleware.SentryMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.SecurityHeadersMiddleware(deps.Config))
	r.Use(middleware.CORSMiddleware(deps.Config))
	r.Use(middleware.AuthContextMiddleware(deps.Resolver))

	middleware.InitRateLimitWhitelist(deps.Config.RateLimit.WhitelistIPs)
	window := time.Duration(deps.Config.RateLimit.WindowMinutes) * time.Minute
	publicLimit := middleware.RateLimitMiddleware(deps.Redis, deps.Config.RateLimit.PublicReadsPerWindow, window)
	authLimit := middleware.RateLimitMiddleware(deps.Redis, deps.Config.RateLimit.AuthActionsPerWindow, window)
	authFailLimit := middleware.AuthFailureLimitMiddleware(deps.Redis, deps.Config.RateLimit.AuthFailuresPerWindow, window)

	queueH := NewQueueHandler(deps.Engine, deps.Sync, deps.Store)
	settingsH := NewSettingsHandler(deps.Engine)
	authH := NewAuthHandler(deps.Resolver)
	healthH := NewHealthHandler(deps.Engine, deps.Chat, deps.BootTime)
	docsH := NewDocsHandler(deps.DocsPath, "subculture-collective", "clipqueue", "main")

	api := r.Group("/api")

	api.GET("/health", publicLimit, healthH.Health)
	api.GET("/queue", publicLimit, queueH.GetQueue)
	api.GET("/history", publicLimit, queueH.GetHistory)
	api.GET("/docs", publicLimit, docsH.GetDocsList)
	api.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api.GET("/auth/me", authLimit, authH.Me)
	api.GET("/auth/validate", authLimit, authH.Validate)
	api.POST("/auth/logout", authLimit, authH.Logout)

	mod := api.Group("/queue")
	mod.Use(authLimit, authFailLimit, middleware.RequireRole(models.RoleModerator))
	mod.POST("/submit", queueH.Submit)
	mod.POST("/advance", queueH.Advance)
	mod.POST("/previous", queueH.Previous)
	mod.POST("/play", queueH.Play)
	mod.POST("/remove", queueH.Remove)
	mod.POST("/approve", queueH.Approve)
	mod.POST("/reject", queueH.Reject)
	mod.POST("/rejected/:clipId/restore", queueH.RestoreRejected)
	mod.GET("/pending", queueH.GetPending)
	mod.GET("/rejected", queueH.GetRejected)
	mod.POST("/history/:clipId/replay", queueH.ReplayFromHistory)
	mod.DELETE("/history/:clipId", queueH.DeleteHistoryEntry)
	mod.POST("/batch/remove", queueH.BatchRemove)
	mod.POST("/batch/approve", queueH.BatchApprove)
	mod.POST("/batch/reject", queueH.BatchReject)

	bcast := api.Group("/queue")
	bcast.Use(authLimit, authFailLimit, middleware.RequireRole(models.RoleBroadcaster))
	bcast.DELETE("", queueH.ClearQueue)
	bcast.DELETE("/history", queueH.ClearHistory)
	bcast.POST("/open", queueH.Open)
	bcast.POST("/close", queueH.Close)

	settings := api.Group("/settings")
	settings.Use(authLimit, authFailLimit, middleware.RequireRole(models.RoleBroadcaster))
	settings.GET("", settingsH.GetSettings)
	settings.PUT("", settingsH.UpdateSettings)

	authAdmin := api.Group("/auth")
	authAdmin.Use(authLimit, authFailLimit, middleware.RequireRole(models.RoleBroadcaster))
	authAdmin.GET("/cache/stats", authH.CacheStats)
	authAdmin.POST("/cache/clear", authH.CacheClear)

	return r
}
