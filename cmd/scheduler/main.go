package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fixline_backend/internal/callagent"
	"fixline_backend/internal/events"
	leadsrepo "fixline_backend/internal/leads/repository"
	"fixline_backend/internal/scheduler"
	"fixline_backend/platform/ai/textgen"
	"fixline_backend/platform/config"
	"fixline_backend/platform/db"
	"fixline_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	gen, err := textgen.NewClient(ctx, textgen.Config{
		APIKey:  cfg.GetGenAIAPIKey(),
		Model:   cfg.GetGenAIModel(),
		Timeout: cfg.GetGenAITimeout(),
	})
	if err != nil {
		log.Error("failed to initialize text generation client", "error", err)
		panic("failed to initialize text generation client: " + err.Error())
	}

	// Retries the worker starts can themselves fail and be re-queued, so the
	// worker-side agent also carries the retry client.
	retryClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize call retry client", "error", err)
		panic("failed to initialize call retry client: " + err.Error())
	}
	defer func() { _ = retryClient.Close() }()

	callRepo := callagent.NewRepository(pool)
	leadsRepo := leadsrepo.New(pool)
	agent := callagent.New(gen, callRepo, leadsRepo, retryClient, eventBus, callagent.Config{
		MaxCallDuration: cfg.GetMaxCallDuration(),
		SummaryTimeout:  cfg.GetSummaryTimeout(),
	}, log)

	sweepInterval := getDurationEnv("STALE_CALL_SWEEP_INTERVAL", time.Hour)
	staleAge := getDurationEnv("STALE_CALL_MAX_AGE", 2*time.Hour)
	staleCallSweep := scheduler.NewStaleCallSweep(pool, log, sweepInterval, staleAge)
	go staleCallSweep.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, agent, leadsRepo, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
