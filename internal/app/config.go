package app

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/eduplanner-backend/internal/data/db"
	"github.com/yungbote/eduplanner-backend/internal/platform/envutil"
	"github.com/yungbote/eduplanner-backend/internal/platform/gemini"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQL    = "sql"
)

type Config struct {
	Env         string
	Version     string
	Addr        string
	MetricsAddr string

	DB db.Config
	// Store selects the key-value backend for notes, feedback and handoffs.
	Store       string
	RedisAddr   string
	RedisPrefix string
	// RealtimeBus fans SSE messages out through Redis so several replicas share them.
	RealtimeBus     bool
	RealtimeChannel string

	Gemini       gemini.Config
	PersonasPath string

	AuthJWTSecret string
	CORSOrigins   []string

	ExportBucket string
	ExportPrefix string

	HandoffTTL time.Duration
	NotesQuiet time.Duration
	Seed       bool
}

// LoadDotEnv reads .env (or ENV_FILE) into the process environment. Variables
// already set win; a missing file is not an error.
func LoadDotEnv() error {
	path := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Env:         envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
		Addr:        envutil.String("HTTP_ADDR", ":"+envutil.String("PORT", "8080")),
		MetricsAddr: envutil.String("METRICS_ADDR", ""),
		DB: db.Config{
			Driver:     envutil.String("DB_DRIVER", db.DriverSQLite),
			Host:       envutil.String("POSTGRES_HOST", "localhost"),
			Port:       envutil.String("POSTGRES_PORT", "5432"),
			User:       envutil.String("POSTGRES_USER", "postgres"),
			Password:   envutil.String("POSTGRES_PASSWORD", ""),
			Name:       envutil.String("POSTGRES_NAME", "eduplanner"),
			SSLMode:    envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath: envutil.String("SQLITE_PATH", "eduplanner.db"),
		},
		Store:           strings.ToLower(envutil.String("KV_STORE", StoreSQL)),
		RedisAddr:       envutil.String("REDIS_ADDR", ""),
		RedisPrefix:     envutil.String("REDIS_PREFIX", "eduplanner:"),
		RealtimeBus:     envutil.Bool("REALTIME_BUS", false),
		RealtimeChannel: envutil.String("REALTIME_CHANNEL", "eduplanner:sse"),
		Gemini:          gemini.ConfigFromEnv(),
		PersonasPath:    envutil.String("AGENT_PERSONAS_PATH", ""),
		AuthJWTSecret:   envutil.String("AUTH_JWT_SECRET", ""),
		CORSOrigins:     splitList(envutil.String("CORS_ORIGINS", "")),
		ExportBucket:    envutil.String("EXPORT_BUCKET", ""),
		ExportPrefix:    envutil.String("EXPORT_PREFIX", "lesson-plans"),
		HandoffTTL:      envutil.Duration("HANDOFF_TTL", 15*time.Minute),
		NotesQuiet:      envutil.Duration("NOTES_AUTOSAVE_QUIET", time.Second),
		Seed:            envutil.Bool("SEED_DEMO_DATA", true),
	}
	switch cfg.Store {
	case StoreMemory, StoreRedis, StoreSQL:
	default:
		if log != nil {
			log.Warn("Unknown KV_STORE; using sql", "value", cfg.Store)
		}
		cfg.Store = StoreSQL
	}
	if cfg.Store == StoreRedis && cfg.RedisAddr == "" && log != nil {
		log.Warn("KV_STORE=redis without REDIS_ADDR; startup will fail")
	}
	if cfg.AuthJWTSecret == "" && log != nil {
		log.Warn("AUTH_JWT_SECRET not set; API is unauthenticated")
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
