package app

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/vidcourse-backend/internal/data/db"
	apphttp "github.com/yungbote/vidcourse-backend/internal/http"
	"github.com/yungbote/vidcourse-backend/internal/observability"
	"github.com/yungbote/vidcourse-backend/internal/platform/logger"
	"github.com/yungbote/vidcourse-backend/internal/realtime"
	"github.com/yungbote/vidcourse-backend/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Handlers Handlers
	Hub      *realtime.Hub
	Metrics  *observability.Metrics

	dbService    *db.Service
	otelShutdown func(context.Context) error
	ctx          context.Context
	cancel       context.CancelFunc
}

func New(log *logger.Logger) (*App, error) {
	log.Info("Loading environment variables...")
	cfg := LoadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	dbs, err := db.NewService(log)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := dbs.AutoMigrateAll(); err != nil {
		cancel()
		_ = dbs.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbs.DB()

	clients, err := wireClients(log)
	if err != nil {
		cancel()
		_ = dbs.Close()
		return nil, err
	}

	hub := realtime.NewHub(log)
	reposet := wireRepos(theDB, log)
	serviceset := wireServices(ctx, theDB, log, cfg, reposet, clients, hub)
	handlerset := wireHandlers(log, cfg, theDB, serviceset, hub)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Handlers:     handlerset,
		Hub:          hub,
		Metrics:      metrics,
		dbService:    dbs,
		otelShutdown: otelShutdown,
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// Start launches the background loops: the event forwarder, metrics
// collectors and, when withWorker is set, the sweeper and Temporal worker.
func (a *App) Start(withWorker bool) error {
	if a == nil || a.ctx == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Clients.Bus != nil {
		if err := a.Clients.Bus.StartForwarder(a.ctx, a.Hub.Broadcast); err != nil {
			return fmt.Errorf("start event forwarder: %w", err)
		}
	}
	if a.Metrics != nil {
		a.Metrics.StartCollectors(a.ctx, a.Log, a.DB, a.Cfg.RedisAddr)
	}
	if !withWorker {
		return nil
	}
	a.Services.Worker.Start(a.ctx)
	if a.Clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(a.Log, a.Clients.Temporal, a.Services.Scheduler)
		if err != nil {
			return err
		}
		go func() {
			if err := runner.Start(a.ctx); err != nil {
				a.Log.Error("Temporal worker stopped", "error", err)
			}
		}()
	}
	return nil
}

// Serve runs the HTTP API until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	srv := apphttp.NewServer(routerConfig(a.Log, a.Cfg, a.Handlers, a.Metrics))
	addr := ":" + a.Cfg.Port
	a.Log.Info("HTTP server listening", "addr", addr)
	return srv.Run(ctx, addr, a.Cfg.ShutdownGrace)
}

// Close stops background work, waits for in-flight pipeline calls to settle
// and releases connections.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Scheduler != nil {
		a.Services.Scheduler.Wait()
	}
	a.Clients.Close()
	if a.dbService != nil {
		_ = a.dbService.Close()
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
