package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fixline_backend/internal/adapters/storage"
	"fixline_backend/internal/bridge"
	"fixline_backend/internal/callagent"
	"fixline_backend/internal/events"
	apphttp "fixline_backend/internal/http"
	"fixline_backend/internal/http/router"
	"fixline_backend/internal/leads"
	leadsrepo "fixline_backend/internal/leads/repository"
	"fixline_backend/internal/notify"
	"fixline_backend/internal/scheduler"
	"fixline_backend/platform/ai/textgen"
	"fixline_backend/platform/config"
	"fixline_backend/platform/db"
	"fixline_backend/platform/logger"
	"fixline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	gen, err := textgen.NewClient(ctx, textgen.Config{
		APIKey:  cfg.GetGenAIAPIKey(),
		Model:   cfg.GetGenAIModel(),
		Timeout: cfg.GetGenAITimeout(),
	})
	if err != nil {
		log.Error("failed to initialize text generation client", "error", err)
		panic("failed to initialize text generation client: " + err.Error())
	}

	retryScheduler, closeScheduler := initRetryScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	// Recording storage (MinIO); nil disables recording but not calling
	recordings := initRecordingStorage(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
	notifyModule := notify.NewModule(cfg, log)
	notifyModule.RegisterHandlers(eventBus)

	callRepo := callagent.NewRepository(pool)
	leadsRepo := leadsrepo.New(pool)
	agent := callagent.New(gen, callRepo, leadsRepo, retryScheduler, eventBus, callagent.Config{
		MaxCallDuration: cfg.GetMaxCallDuration(),
		SummaryTimeout:  cfg.GetSummaryTimeout(),
	}, log)

	bridgeModule := bridge.NewModule(agent, callRepo, recordings, cfg, log)
	leadsModule := leads.NewModule(pool, gen, agent, callRepo, bridgeModule, eventBus, val, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:         cfg,
		Logger:         log,
		Health:         db.NewPoolAdapter(pool),
		EventBus:       eventBus,
		StartedAt:      time.Now(),
		ActiveSessions: bridgeModule.ActiveSessions,
		Modules: []apphttp.Module{
			leadsModule,
			bridgeModule,
		},
	}

	engine := router.New(app)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: engine,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")

		// Live call sessions run their full teardown (hangup, summary,
		// persistence) before the listener closes.
		drainCtx, cancelDrain := context.WithTimeout(context.Background(), bridge.DrainDeadline)
		bridgeModule.Shutdown(drainCtx)
		cancelDrain()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRetryScheduler(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; call retries disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize call retry scheduler", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initRecordingStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) bridge.RecordingAccess {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MinIO not configured; call recordings disabled")
		return nil
	}

	svc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize recording storage", "error", err)
		panic("failed to initialize recording storage: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure recordings bucket", 5, 2*time.Second, func() error {
		return svc.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error("failed to ensure recordings bucket exists", "error", err)
		panic("failed to ensure recordings bucket exists: " + err.Error())
	}
	log.Info("recording storage initialized", "bucket", cfg.GetMinioBucketCallRecordings())
	return svc
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
