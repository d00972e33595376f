package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/eduplanner-backend/internal/agents"
	"github.com/yungbote/eduplanner-backend/internal/clients/gcp"
	"github.com/yungbote/eduplanner-backend/internal/platform/gemini"
	"github.com/yungbote/eduplanner-backend/internal/platform/kvstore"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
	"github.com/yungbote/eduplanner-backend/internal/realtime/bus"
)

type Clients struct {
	Store    kvstore.Store
	Bus      bus.Bus
	Gemini   gemini.Client
	Archive  gcp.ExportArchive
	Personas *agents.Personas
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, db *gorm.DB) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Key-value store
	switch cfg.Store {
	case StoreMemory:
		out.Store = kvstore.NewMemory()
	case StoreRedis:
		s, err := kvstore.NewRedis(ctx, log, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis store: %w", err)
		}
		out.Store = s
	default:
		out.Store = kvstore.NewSQL(db, log)
	}

	// Redis SSE fan-out
	if cfg.RealtimeBus {
		b, err := bus.NewRedisBus(ctx, log, cfg.RedisAddr, cfg.RealtimeChannel)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		out.Bus = b
	}

	// Personas
	if cfg.PersonasPath != "" {
		p, err := agents.LoadPersonas(cfg.PersonasPath)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("load personas: %w", err)
		}
		out.Personas = p
	} else {
		out.Personas = agents.MustDefaultPersonas()
	}

	// Gemini
	out.Gemini = instrumentGemini(gemini.NewClient(log, cfg.Gemini))
	if !out.Gemini.Enabled() {
		log.Warn("GEMINI_API_KEY not set; generation requests will fail with an invalid credential error")
	}

	// Gcs
	if cfg.ExportBucket != "" {
		a, err := gcp.NewExportArchive(ctx, log, cfg.ExportBucket, cfg.ExportPrefix)
		if err != nil {
			// Exports still work without the archive copy.
			log.Warn("export archive unavailable", "bucket", cfg.ExportBucket, "error", err)
		} else {
			out.Archive = a
		}
	}

	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Archive != nil {
		_ = c.Archive.Close()
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}
