package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/eduplanner-backend/internal/data/db"
	"github.com/yungbote/eduplanner-backend/internal/data/repos"
	"github.com/yungbote/eduplanner-backend/internal/data/seed"
	"github.com/yungbote/eduplanner-backend/internal/observability"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
	"github.com/yungbote/eduplanner-backend/internal/realtime"
	"github.com/yungbote/eduplanner-backend/internal/realtime/bus"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    *repos.Repos
	Clients  Clients
	Services Services
	SSEHub   *realtime.SSEHub
	Metrics  *observability.Metrics

	dbs          *db.DBService
	bus          bus.Bus
	otelShutdown func(context.Context) error
}

// NewLogger follows LOG_MODE (development by default).
func NewLogger() (*logger.Logger, error) {
	mode := os.Getenv("LOG_MODE")
	if mode == "" {
		mode = "development"
	}
	log, err := logger.New(mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// OpenDB connects and migrates. The embedded demo course is decoded and applied only when seedData is set.
func OpenDB(ctx context.Context, log *logger.Logger, cfg Config, seedData, force bool) (*db.DBService, *repos.Repos, error) {
	dbs, err := db.NewDBService(log, cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(dbs.DB()); err != nil {
		_ = dbs.Close()
		return nil, nil, fmt.Errorf("automigrate: %w", err)
	}
	reposet := wireRepos(dbs.DB(), log)
	if !seedData {
		return dbs, reposet, nil
	}
	course, err := seed.Default(time.Now())
	if err != nil {
		_ = dbs.Close()
		return nil, nil, err
	}
	if err := seed.Apply(ctx, log, dbs.DB(), reposet, course, force); err != nil {
		_ = dbs.Close()
		return nil, nil, err
	}
	return dbs, reposet, nil
}

// courseData feeds the dashboard's trends and topics; a bad document only empties those views.
func courseData(log *logger.Logger) *seed.Data {
	course, err := seed.Default(time.Now())
	if err != nil {
		log.Warn("demo course data unavailable", "error", err)
		return nil
	}
	return course
}

func New(ctx context.Context, log *logger.Logger) (*App, error) {
	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.Env,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	dbs, reposet, err := OpenDB(ctx, log, cfg, cfg.Seed, false)
	if err != nil {
		return nil, err
	}
	course := courseData(log)

	clients, err := wireClients(ctx, log, cfg, dbs.DB())
	if err != nil {
		_ = dbs.Close()
		return nil, err
	}

	hub := realtime.NewSSEHub(log)
	notifier := realtime.NewHubNotifier(hub)
	if clients.Bus != nil {
		notifier = realtime.NewBusNotifier(log, clients.Bus, hub)
	}

	serviceset := wireServices(log, cfg, reposet, clients, course, notifier)

	handlerset := wireHandlers(log, dbs.DB(), serviceset, hub)
	middleware := wireMiddleware(log, cfg)
	router := wireRouter(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           dbs.DB(),
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		SSEHub:       hub,
		Metrics:      metrics,
		dbs:          dbs,
		bus:          clients.Bus,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP (and forwards bus messages to local SSE clients) until ctx ends.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)

	g, gctx := errgroup.WithContext(ctx)
	if a.bus != nil {
		g.Go(func() error {
			return a.bus.StartForwarder(gctx, a.SSEHub.Broadcast)
		})
	}
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.Addr)
		return newServer(a.Router).Run(gctx, a.Cfg.Addr)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.LessonLab != nil {
		a.Services.LessonLab.Close()
	}
	a.Clients.Close()
	if a.dbs != nil {
		_ = a.dbs.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
