// Package runtime assembles the full server process from configuration.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/pulsedesk/pulsedesk/internal/api/httpserver"
	"github.com/pulsedesk/pulsedesk/internal/app"
	"github.com/pulsedesk/pulsedesk/internal/app/httpapi"
	appmetrics "github.com/pulsedesk/pulsedesk/internal/app/metrics"
	"github.com/pulsedesk/pulsedesk/internal/app/services/metrics"
	"github.com/pulsedesk/pulsedesk/internal/app/storage/postgres"
	"github.com/pulsedesk/pulsedesk/internal/config"
	"github.com/pulsedesk/pulsedesk/internal/gateway"
	"github.com/pulsedesk/pulsedesk/internal/middleware"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

// Runtime is the running server process.
type Runtime struct {
	cfg    *config.Config
	log    *logger.Logger
	app    *app.Application
	server *httpserver.Server
	db     *sql.DB
	rdb    *redis.Client
}

// New builds the runtime from configuration.
func New(cfg *config.Config) (*Runtime, error) {
	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	rt := &Runtime{cfg: cfg, log: log}

	stores := app.Stores{}
	if cfg.Database.Driver == "postgres" {
		db, err := openDatabase(cfg.Database)
		if err != nil {
			return nil, err
		}
		rt.db = db
		pg := postgres.New(db)
		stores = app.Stores{
			Tasks:         pg,
			CRM:           pg,
			Invoices:      pg,
			Gamification:  pg,
			Focus:         pg,
			Notifications: pg,
			Users:         pg,
		}
		log.Info("postgres storage initialized")
	} else {
		log.Info("in-memory storage initialized")
	}

	application, err := app.New(stores, app.Options{SnapshotDeadline: cfg.Metrics.SnapshotDeadline}, log)
	if err != nil {
		return nil, err
	}
	rt.app = application

	reconciler, err := rt.buildReconciler(application)
	if err != nil {
		return nil, err
	}
	snapshots := rt.buildSnapshotter(reconciler)

	handler := httpapi.NewHandler(httpapi.Services{
		Tasks:         application.Tasks,
		CRM:           application.CRM,
		Invoicing:     application.Invoicing,
		Gamification:  application.Gamification,
		Focus:         application.Focus,
		Notifications: application.Notifications,
		Users:         application.Users,
		Snapshots:     snapshots,
	}, log)

	rt.server = httpserver.New(cfg.Server, log, rt.buildMiddleware(handler.Router()))
	return rt, nil
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.MigrationsPath != "" {
		if err := runMigrations(db, cfg.MigrationsPath); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func runMigrations(db *sql.DB, path string) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+path, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration setup: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// buildReconciler chooses the snapshot sources: remote edge functions when
// the gateway is configured, the local services otherwise.
func (rt *Runtime) buildReconciler(application *app.Application) (*metrics.Reconciler, error) {
	if rt.cfg.Gateway.BaseURL == "" {
		return application.Reconciler, nil
	}

	gw, err := gateway.New(gateway.Config{
		BaseURL:      rt.cfg.Gateway.BaseURL,
		APIKey:       rt.cfg.Gateway.APIKey,
		Timeout:      rt.cfg.Gateway.Timeout,
		MaxAttempts:  rt.cfg.Gateway.MaxAttempts,
		RetryBackoff: rt.cfg.Gateway.RetryBackoff,
		AllowedHosts: rt.cfg.Gateway.AllowedHosts,
	}, rt.log)
	if err != nil {
		return nil, err
	}

	src := metrics.NewGatewaySources(gw, rt.cfg.Gateway.APIKey)
	reconciler := metrics.NewReconciler(
		src,
		src,
		metrics.GatewayGamificationSource{GatewaySources: src},
		metrics.GatewayFocusSource{GatewaySources: src},
		src,
		rt.log,
	)
	if rt.cfg.Metrics.SnapshotDeadline > 0 {
		reconciler = reconciler.WithDeadline(rt.cfg.Metrics.SnapshotDeadline)
	}
	rt.log.WithField("base_url", rt.cfg.Gateway.BaseURL).Info("gateway metric sources enabled")
	return reconciler, nil
}

// buildSnapshotter optionally wraps the reconciler with the Redis cache.
func (rt *Runtime) buildSnapshotter(reconciler *metrics.Reconciler) httpapi.Snapshotter {
	if rt.cfg.Redis.Addr == "" {
		return reconciler
	}
	rt.rdb = redis.NewClient(&redis.Options{
		Addr:     rt.cfg.Redis.Addr,
		Password: rt.cfg.Redis.Password,
		DB:       rt.cfg.Redis.DB,
	})
	cache := metrics.NewSnapshotCache(rt.rdb, rt.cfg.Redis.TTL, rt.log)
	rt.log.WithField("addr", rt.cfg.Redis.Addr).Info("snapshot cache enabled")
	return metrics.NewCachedReconciler(reconciler, cache)
}

// buildMiddleware applies CORS, instrumentation, auth and rate limiting,
// outermost first. Auth wraps the limiter so per-user keying sees the
// authenticated caller.
func (rt *Runtime) buildMiddleware(next http.Handler) http.Handler {
	if rt.cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(rt.cfg.RateLimit.RequestsPerSecond, rt.cfg.RateLimit.Burst, rt.log)
		next = limiter.Handler(next)
	}

	auth := middleware.NewAuthMiddleware(rt.cfg.Auth.JWTSecret, rt.log, rt.cfg.Auth.SkipPaths)
	next = auth.Handler(next)

	next = appmetrics.InstrumentHandler(next)

	cors := middleware.NewCORSMiddleware(rt.cfg.CORS.AllowedOrigins)
	return cors.Handler(next)
}

// Run starts background services and serves HTTP until ctx is cancelled.
func (rt *Runtime) Run(ctx context.Context) error {
	if err := rt.app.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- rt.server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return rt.Shutdown(context.Background())
	}
}

// Shutdown stops the HTTP server, background services and connections.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := rt.server.Shutdown(ctx); err != nil {
		firstErr = err
	}
	if err := rt.app.Stop(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if rt.rdb != nil {
		if err := rt.rdb.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
