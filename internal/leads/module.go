// Package leads provides the lead intake and matching bounded context module.
package leads

import (
	"fixline_backend/internal/callagent"
	"fixline_backend/internal/events"
	apphttp "fixline_backend/internal/http"
	"fixline_backend/internal/leads/classifier"
	"fixline_backend/internal/leads/handler"
	"fixline_backend/internal/leads/repository"
	"fixline_backend/internal/leads/service"
	"fixline_backend/internal/matching"
	"fixline_backend/internal/responder"
	"fixline_backend/platform/ai/textgen"
	"fixline_backend/platform/config"
	"fixline_backend/platform/logger"
	"fixline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"

	businessrepo "fixline_backend/internal/businesses/repository"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
// The agent and setupDocs come from the call side so a caller can request an
// outreach call for a matched lead.
func NewModule(
	pool *pgxpool.Pool,
	gen textgen.Generator,
	agent *callagent.Agent,
	callRepo *callagent.Repository,
	setupDocs service.SetupDocBuilder,
	bus events.Bus,
	val *validator.Validator,
	cfg config.MatchingConfig,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	businesses := businessrepo.New(pool)

	cls := classifier.New(gen, log)
	matcher := matching.New(businesses, cfg.GetMatchRadiusKm(), cfg.GetMaxMatches(), log)
	resp := responder.New(gen)

	svc := service.New(repo, cls, matcher, resp, agent, setupDocs, bus, cfg.GetLeadQualityThreshold(), log)
	h := handler.New(svc, callRepo, val)

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the lead repository for external use.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts leads routes on the provided router context.
// Intake sits behind the stricter per-IP limiter since it is the only
// unauthenticated write surface.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.V1.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)

	intakeGroup := ctx.V1.Group("/leads", ctx.IntakeRateLimiter.RateLimit())
	m.handler.RegisterPublicRoutes(intakeGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
