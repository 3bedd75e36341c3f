package http

import (
	"context"
	"time"

	"fixline_backend/internal/events"
	"fixline_backend/platform/config"
	"fixline_backend/platform/logger"
)

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the HTTP settings the router needs.
	Config config.HTTPConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness/health checks (e.g., DB ping).
	Health HealthChecker
	// EventBus is the domain event bus for cross-module communication.
	EventBus events.Bus
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
	// StartedAt is when the process came up; the health endpoint reports
	// uptime from it.
	StartedAt time.Time
	// ActiveSessions reports the number of live call sessions, nil when the
	// bridge is not mounted.
	ActiveSessions func() int
}
