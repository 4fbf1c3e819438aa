package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/subculture-collective/clipqueue/config"
	"github.com/subculture-collective/clipqueue/internal/auth"
	"github.com/subculture-collective/clipqueue/internal/chatclient"
	"github.com/subculture-collective/clipqueue/internal/command"
	"github.com/subculture-collective/clipqueue/internal/etag"
	"github.com/subculture-collective/clipqueue/internal/guard"
	"github.com/subculture-collective/clipqueue/internal/handlers"
	"github.com/subculture-collective/clipqueue/internal/queue"
	"github.com/subculture-collective/clipqueue/internal/repository"
	"github.com/subculture-collective/clipqueue/internal/resolver"
	"github.com/subculture-collective/clipqueue/internal/token"
	"github.com/subculture-collective/clipqueue/pkg/database"
	pkgjwt "github.com/subculture-collective/clipqueue/pkg/jwt"
	redispkg "github.com/subculture-collective/clipqueue/pkg/redis"
	"github.com/subculture-collective/clipqueue/pkg/sentry"
	"github.com/subculture-collective/clipqueue/pkg/twitch"
	"github.com/subculture-collective/clipqueue/pkg/utils"
)

// chatStatusAdapter satisfies handlers.ChatStatus, since chatclient.Client.State()
// returns the concrete chatclient.State type rather than a plain string.
type chatStatusAdapter struct {
	client *chatclient.Client
}

func (a chatStatusAdapter) StateString() string     { return a.client.State().String() }
func (a chatStatusAdapter) ConnectedAt() time.Time   { return a.client.ConnectedAt() }
func (a chatStatusAdapter) LastMessageAt() time.Time { return a.client.LastMessageAt() }

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	logLevel := utils.LogLevelInfo
	if cfg.Server.Environment != "production" {
		logLevel = utils.LogLevelDebug
	}
	utils.InitLogger(logLevel)
	logger := utils.GetLogger()
	logger.Info("starting clipqueue api", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
	})

	if cfg.Sentry.Enabled {
		if err := sentry.Init(&cfg.Sentry); err != nil {
			logger.Warn("sentry init failed", map[string]interface{}{"error": err.Error()})
		}
		defer sentry.Close()
	}

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", err)
	}

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Fatal("failed to run migrations", err)
	}

	redisClient, err := redispkg.NewClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("failed to connect to redis", err)
	}

	clipStore := repository.NewClipRepository(db.Pool)
	settingsStore := repository.NewSettingsRepository(db.Pool)
	if err := settingsStore.InitSettings(ctx); err != nil {
		logger.Fatal("failed to initialize settings", err)
	}

	q := queue.New(clipStore, settingsStore, cfg.Queue.HistoryCapacity)
	if err := q.Load(ctx); err != nil {
		logger.Fatal("failed to load queue", err)
	}

	twitchClient, err := twitch.NewClient(&cfg.Platform, redisClient)
	if err != nil {
		logger.Fatal("failed to construct platform client", err)
	}

	allowlist, err := resolver.LoadAllowlist(cfg.Platform.AllowlistPath)
	if err != nil {
		logger.Fatal("failed to load platform allowlist", err)
	}
	resolvers := allowlist.Filter([]resolver.Resolver{
		resolver.NewKickResolver(),
		resolver.NewSoraResolver(),
		resolver.NewTwitchResolver(twitchClient),
	})
	dispatcher := resolver.New(resolvers...)

	sync := etag.New()
	guards := guard.New()
	caches := guard.NewSubmissionCaches()
	defer caches.Stop()

	engine := command.New(q, settingsStore, clipStore, dispatcher, sync, guards, caches, nil)
	if err := engine.Load(ctx); err != nil {
		logger.Fatal("failed to load settings", err)
	}

	jwtManager, err := pkgjwt.NewManager(cfg.JWT.PrivateKey)
	if err != nil {
		logger.Fatal("failed to construct jwt manager", err)
	}

	resolverAuth := auth.New(jwtManager, twitchClient, cfg.Platform.BroadcasterID)
	defer resolverAuth.Stop()

	tokenManager := token.New(
		cfg.Platform.ClientID,
		cfg.Platform.ClientSecret,
		cfg.Platform.AccessToken,
		cfg.Platform.RefreshToken,
		token.PersistToEnvFile(".env"),
	)
	tokenManager.StartMonitoring(ctx)

	chatClient := chatclient.New(chatclient.Config{
		WSURL:         "wss://eventsub.wss.twitch.tv/ws",
		SubscribeURL:  cfg.Platform.APIURL + "/eventsub/subscriptions",
		ClientID:      cfg.Platform.ClientID,
		BroadcasterID: cfg.Platform.BroadcasterID,
		BotUserID:     cfg.Platform.BotUserID,
		TokenProvider: tokenManager,
		Handler: func(msg chatclient.ChatMessage) {
			engine.ExecuteChat(ctx, command.ChatEvent{
				Username:      msg.Username,
				Text:          msg.Text,
				IsModerator:   msg.IsModerator,
				IsBroadcaster: msg.IsBroadcaster,
			})
		},
	})
	chatClient.Start(ctx)

	gin.SetMode(cfg.Server.GinMode)

	router := handlers.NewRouter(handlers.Dependencies{
		Config:   cfg,
		Engine:   engine,
		Sync:     sync,
		Store:    clipStore,
		Resolver: resolverAuth,
		Chat:     chatStatusAdapter{client: chatClient},
		Redis:    redisClient,
		BootTime: time.Now(),
		DocsPath: "./docs",
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("server started", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", err)
		}
	}()

	gracefulShutdown(srv, tokenManager, chatClient, db)
}
