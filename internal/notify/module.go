// Package notify delivers generated lead notifications to matched businesses.
package notify

import (
	"context"
	"fmt"

	"fixline_backend/internal/events"
	"fixline_backend/platform/config"
	"fixline_backend/platform/logger"
)

// Module subscribes to notification-ready events and delivers them.
type Module struct {
	sender Sender
	log    *logger.Logger
}

// NewModule creates the notify module. When email is disabled the module
// still subscribes, so the pipeline behaves identically in development.
func NewModule(cfg config.EmailConfig, log *logger.Logger) *Module {
	var sender Sender = NoopSender{}
	if cfg.GetEmailEnabled() {
		sender = NewSMTPSender(cfg)
	}
	return &Module{sender: sender, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notify"
}

// RegisterHandlers subscribes to domain events.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.BusinessNotificationReady{}.EventName(), m)
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.BusinessNotificationReady:
		return m.deliver(ctx, e)
	}
	return nil
}

func (m *Module) deliver(ctx context.Context, e events.BusinessNotificationReady) error {
	if e.Email == "" {
		return nil
	}
	body := e.Message
	if e.CallToAction != "" {
		body = body + "\n\n" + e.CallToAction
	}
	if err := m.sender.Send(ctx, e.Email, e.Subject, body); err != nil {
		return fmt.Errorf("deliver notification for lead %s to business %s: %w", e.LeadID, e.BusinessID, err)
	}
	m.log.Info("notification delivered", "lead_id", e.LeadID, "business_id", e.BusinessID)
	return nil
}
