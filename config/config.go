package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Platform  PlatformConfig
	CORS      CORSConfig
	Sentry    SentryConfig
	RateLimit RateLimitConfig
	Queue     QueueConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port        string
	GinMode     string
	FrontendURL string
	Environment string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // legacy sqlite-style path, kept for parity with an older "database path" env var
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds session-cookie signing configuration
type JWTConfig struct {
	PrivateKey string
	PublicKey  string
}

// PlatformConfig holds upstream chat-platform credentials
type PlatformConfig struct {
	ClientID      string // 30 lowercase alphanumeric
	ClientSecret  string
	AccessToken   string
	RefreshToken  string
	Channel       string // lowercase channel name
	BroadcasterID string // the channel's upstream user id, used by the auth resolver's role lookup
	BotUserID     string // chat-subscription user id; falls back to BroadcasterID when unset
	SessionSecret string
	APIURL        string
	AllowlistPath string // optional YAML file restricting which platform resolvers are wired
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins string // comma-separated, production exact-match allowlist
	DevMode        bool   // when true, also allow localhost / private network ranges
}

// SentryConfig holds Sentry error tracking configuration
type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
	Enabled          bool
}

// RateLimitConfig holds the per-bucket rate limits
type RateLimitConfig struct {
	PublicReadsPerWindow    int // 500 / 15 min / IP
	AuthActionsPerWindow    int // 100 / 15 min / userId (fallback IP)
	AuthFailuresPerWindow   int // 20 / 15 min / IP, failures only
	HLSProxyPerWindow       int // 5000 / 15 min / IP
	WindowMinutes           int
	WhitelistIPs            string
}

// QueueConfig holds queue-model tunables not covered by the Settings row
type QueueConfig struct {
	HistoryCapacity int // bounded ring size, loaded 100 oldest-first on startup
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		redisDB = 0
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "3000"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
			Environment: getEnv("NODE_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "clipqueue"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "clipqueue"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Path:     getEnv("DATABASE_PATH", "data/clips.db"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			PrivateKey: getEnv("JWT_PRIVATE_KEY", ""),
			PublicKey:  getEnv("JWT_PUBLIC_KEY", ""),
		},
		Platform: PlatformConfig{
			ClientID:      getEnv("PLATFORM_CLIENT_ID", ""),
			ClientSecret:  getEnv("PLATFORM_CLIENT_SECRET", ""),
			AccessToken:   getEnv("PLATFORM_ACCESS_TOKEN", ""),
			RefreshToken:  getEnv("PLATFORM_REFRESH_TOKEN", ""),
			Channel:       strings.ToLower(getEnv("PLATFORM_CHANNEL", "")),
			BroadcasterID: getEnv("PLATFORM_BROADCASTER_ID", ""),
			BotUserID:     getEnv("PLATFORM_BOT_USER_ID", getEnv("PLATFORM_BROADCASTER_ID", "")),
			SessionSecret: getEnv("SESSION_SECRET", ""),
			APIURL:        getEnv("PLATFORM_API_URL", "https://api.twitch.tv/helix"),
			AllowlistPath: getEnv("PLATFORM_ALLOWLIST_PATH", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			DevMode:        getEnv("NODE_ENV", "development") != "production",
		},
		Sentry: SentryConfig{
			DSN:              getEnv("SENTRY_DSN", ""),
			Environment:      getEnv("SENTRY_ENVIRONMENT", "development"),
			Release:          getEnv("SENTRY_RELEASE", ""),
			TracesSampleRate: getEnvFloat("SENTRY_TRACES_SAMPLE_RATE", 0.1),
			Enabled:          getEnv("SENTRY_ENABLED", "false") == "true",
		},
		RateLimit: RateLimitConfig{
			PublicReadsPerWindow:  getEnvInt("RATE_LIMIT_PUBLIC_READS", 500),
			AuthActionsPerWindow:  getEnvInt("RATE_LIMIT_AUTH_ACTIONS", 100),
			AuthFailuresPerWindow: getEnvInt("RATE_LIMIT_AUTH_FAILURES", 20),
			HLSProxyPerWindow:     getEnvInt("RATE_LIMIT_HLS_PROXY", 5000),
			WindowMinutes:         getEnvInt("RATE_LIMIT_WINDOW_MINUTES", 15),
			WhitelistIPs:          getEnv("RATE_LIMIT_WHITELIST_IPS", ""),
		},
		Queue: QueueConfig{
			HistoryCapacity: getEnvInt("QUEUE_HISTORY_CAPACITY", 100),
		},
	}

	return cfg, nil
}

// GetDatabaseURL returns a PostgreSQL connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a fallback default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvInt gets an int environment variable with a fallback default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
