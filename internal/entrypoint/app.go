package entrypoint

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookstack/internal/audit"
	"github.com/mrlokans/bookstack/internal/auth"
	"github.com/mrlokans/bookstack/internal/catalog"
	"github.com/mrlokans/bookstack/internal/config"
	"github.com/mrlokans/bookstack/internal/covers"
	"github.com/mrlokans/bookstack/internal/database"
	auditrepo "github.com/mrlokans/bookstack/internal/database/audit"
	"github.com/mrlokans/bookstack/internal/googlebooks"
	http_controllers "github.com/mrlokans/bookstack/internal/http"
	"github.com/mrlokans/bookstack/internal/scheduler"
	"github.com/mrlokans/bookstack/internal/tasks"
)

// App holds the wired services. The server and the CLI commands share it.
type App struct {
	Config   *config.Config
	DB       *database.Database
	Provider *googlebooks.Client
	Audit    *audit.Service
	Catalog  *catalog.Service

	// Nil when thumbnails are disabled or the cache directory is unusable.
	Thumbnails *covers.Cache

	// Set by StartBackground when the task queue is enabled.
	Tasks     *tasks.Client
	Scheduler *scheduler.AuditCleanupScheduler

	limiter    *auth.RateLimiter
	cancelTask context.CancelFunc
}

// NewApp opens storage (running migrations) and builds the catalog
// services. Background workers are not started.
func NewApp(cfg *config.Config) (*App, error) {
	db, err := database.Open(database.Options{
		Driver:   cfg.Database.Driver,
		Path:     cfg.Database.Path,
		DSN:      cfg.Database.DSN,
		LogLevel: database.ParseLogLevel(cfg.Database.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	provider := googlebooks.NewClient(googlebooks.Config{
		BaseURL:           cfg.GoogleBooks.BaseURL,
		APIKey:            cfg.GoogleBooks.APIKey,
		Timeout:           cfg.GoogleBooks.Timeout,
		RequestsPerSecond: cfg.GoogleBooks.RequestsPerSecond,
	})
	if cfg.GoogleBooks.APIKey == "" {
		log.Printf("WARNING: GOOGLE_BOOKS_API_KEY is not set. Google Books requests are unauthenticated and subject to a lower quota.")
	}

	auditService := audit.NewService(auditrepo.NewRepository(db.DB))

	return &App{
		Config:     cfg,
		DB:         db,
		Provider:   provider,
		Audit:      auditService,
		Catalog:    catalog.NewService(db.DB, provider, auditService),
		Thumbnails: newThumbnailCache(cfg),
	}, nil
}

func newThumbnailCache(cfg *config.Config) *covers.Cache {
	if !cfg.Thumbnails.Enabled {
		return nil
	}
	dir := cfg.Thumbnails.CacheDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(cfg.Database.Path), "thumbnails")
	}
	cache, err := covers.NewCache(dir, cfg.GoogleBooks.Timeout)
	if err != nil {
		log.Printf("WARNING: Failed to initialize thumbnail cache: %v", err)
		return nil
	}
	log.Printf("Thumbnail cache initialized at %s", dir)
	return cache
}

// StartBackground starts the task queue workers and the audit cleanup
// schedule. It does nothing when tasks are disabled.
func (a *App) StartBackground() error {
	cfg := a.Config
	if !cfg.Tasks.Enabled {
		log.Printf("Task queue disabled; asynchronous imports and audit cleanup are off")
		return nil
	}

	if err := scheduler.ValidateSchedule(cfg.Audit.CleanupSchedule); err != nil {
		return fmt.Errorf("invalid AUDIT_CLEANUP_SCHEDULE %q: %w", cfg.Audit.CleanupSchedule, err)
	}

	taskCfg := tasks.Config{
		Workers:         cfg.Tasks.Workers,
		ReleaseAfter:    cfg.Tasks.ReleaseAfter,
		CleanupInterval: cfg.Tasks.CleanupInterval,
	}

	path := cfg.Tasks.DBPath
	if path == "" {
		path = tasks.DerivePath(cfg.Database.Path)
	}

	client, err := tasks.NewClient(path, taskCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize task queue: %w", err)
	}
	client.Register(
		tasks.NewImportBookQueue(a.Catalog),
		tasks.NewCleanupAuditEventsQueue(a.Audit),
	)

	ctx, cancel := context.WithCancel(context.Background())
	client.Start(ctx)

	cleanup := scheduler.NewAuditCleanupScheduler(client, cfg.Audit.CleanupSchedule, cfg.Audit.RetentionDays)
	if err := cleanup.Start(ctx); err != nil {
		cancel()
		client.Close()
		return fmt.Errorf("failed to start audit cleanup scheduler: %w", err)
	}

	log.Printf("Task queue at %s", path)
	a.Tasks = client
	a.Scheduler = cleanup
	a.cancelTask = cancel
	return nil
}

// Router builds the HTTP router over the app's services.
func (a *App) Router(version string) *gin.Engine {
	routerCfg := http_controllers.RouterConfig{
		Books:          a.Catalog,
		Authors:        a.Catalog,
		Categories:     a.Catalog,
		Importer:       a.Catalog,
		Provider:       a.Catalog,
		Audit:          a.Audit,
		Database:       a.DB,
		AllowedOrigins: a.Config.CORS.AllowedOrigins,
		Version:        version,
	}
	if a.Tasks != nil {
		routerCfg.Tasks = a.Tasks
	}
	if a.Thumbnails != nil {
		routerCfg.Thumbnails = a.Thumbnails
	}

	if a.Config.Auth.TokenHash != "" {
		log.Printf("Authentication: bearer token required for mutations")
		if a.limiter == nil {
			a.limiter = auth.NewRateLimiter(auth.DefaultRateLimitConfig())
		}
		routerCfg.Auth = auth.NewMiddleware(a.Config.Auth.TokenHash, a.limiter)
	} else {
		log.Printf("Authentication: none (set AUTH_TOKEN_HASH to protect mutations)")
	}

	return http_controllers.NewRouter(routerCfg)
}

// StopBackground stops the audit cleanup schedule and waits for running
// tasks until ctx expires.
func (a *App) StopBackground(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
		a.Scheduler = nil
	}
	if a.Tasks != nil {
		a.Tasks.Stop(ctx)
		if a.cancelTask != nil {
			a.cancelTask()
		}
		if err := a.Tasks.Close(); err != nil {
			log.Printf("Error closing task client: %v", err)
		}
		a.Tasks = nil
	}
}

// Close stops any background work still running, flushes pending audit
// events and closes storage.
func (a *App) Close() {
	a.StopBackground(context.Background())

	if a.limiter != nil {
		a.limiter.Stop()
	}

	a.Audit.Wait()

	if err := a.DB.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}
