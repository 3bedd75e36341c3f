package bridge

import (
	"context"
	"time"

	"fixline_backend/internal/callagent"
	apphttp "fixline_backend/internal/http"
	"fixline_backend/platform/config"
	"fixline_backend/platform/logger"

	"github.com/google/uuid"
)

// ModuleConfig combines the config interfaces the bridge needs.
type ModuleConfig interface {
	config.TelephonyConfig
	config.VoiceServiceConfig
	config.BridgeConfig
}

// Module is the session bridge: call-setup endpoint, media-stream websocket
// and the live session table.
type Module struct {
	handler *Handler
	table   *SessionTable
	log     *logger.Logger
	drain   context.CancelFunc
}

// NewModule wires the bridge. recs may be nil when recording storage is
// disabled.
func NewModule(agent *callagent.Agent, repo *callagent.Repository, recs RecordingAccess, cfg ModuleConfig, log *logger.Logger) *Module {
	table := NewSessionTable()
	shutdownCtx, drain := context.WithCancel(context.Background())

	handler := &Handler{
		agent:     agent,
		repo:      repo,
		table:     table,
		recs:      recs,
		telephony: cfg,
		voice:     cfg,
		settings: SessionSettings{
			MaxCallDuration: cfg.GetMaxCallDuration(),
			VoicemailGrace:  cfg.GetVoicemailGrace(),
			SendTimeout:     cfg.GetRelaySendTimeout(),
			Voice:           cfg.GetVoiceServiceVoice(),
			Greeting:        cfg.GetCallGreeting(),
		},
		log:         log,
		shutdownCtx: shutdownCtx,
	}

	return &Module{
		handler: handler,
		table:   table,
		log:     log,
		drain:   drain,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "bridge"
}

// RegisterRoutes mounts the telephony-facing endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	calls := ctx.V1.Group("/calls")
	calls.POST("/:id/setup", m.handler.HandleCallSetup)
	calls.GET("/:id/setup", m.handler.HandleCallSetup)
	calls.GET("/:id/recording", m.handler.HandleRecordingDownload)

	// Lives outside /calls because the router cannot mix a static segment
	// with the :id wildcard.
	ctx.V1.GET("/media-stream", m.handler.HandleMediaStream)
}

// CallSetupDocument renders the call-setup document for a call. The leads
// service hands it back to whoever requested the call.
func (m *Module) CallSetupDocument(callID uuid.UUID) (string, error) {
	return m.handler.CallSetupDocument(callID)
}

// ActiveSessions reports the number of live call sessions.
func (m *Module) ActiveSessions() int {
	return m.table.Len()
}

// Shutdown drains every live session: each runs its full teardown (hangup,
// summary, persistence) before this returns or the context expires.
func (m *Module) Shutdown(ctx context.Context) {
	sessions := m.table.Snapshot()
	if len(sessions) > 0 {
		m.log.Info("draining call sessions", "count", len(sessions))
	}

	m.drain()

	for _, session := range sessions {
		select {
		case <-session.Done():
		case <-ctx.Done():
			m.log.Warn("session drain timed out", "call_sid", session.CallSID())
			return
		}
	}
}

var _ apphttp.Module = (*Module)(nil)

// DrainDeadline is the default time allowed for session teardown on shutdown.
const DrainDeadline = 30 * time.Second
