// Package handler exposes the leads API over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"fixline_backend/internal/callagent"
	"fixline_backend/internal/leads/domain"
	"fixline_backend/internal/leads/service"
	"fixline_backend/internal/leads/transport"
	"fixline_backend/platform/httpkit"
	"fixline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc   *service.Service
	calls *callagent.Repository
	val   *validator.Validator
}

func New(svc *service.Service, calls *callagent.Repository, val *validator.Validator) *Handler {
	return &Handler{svc: svc, calls: calls, val: val}
}

// RegisterPublicRoutes mounts the rate-limited intake endpoint.
func (h *Handler) RegisterPublicRoutes(group *gin.RouterGroup) {
	group.POST("", h.createLead)
}

// RegisterRoutes mounts the read and call endpoints.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", h.listLeads)
	group.GET("/:id", h.getLead)
	group.GET("/:id/calls", h.listCalls)
	group.POST("/:id/call", h.requestCall)
}

// createLead runs the full intake pipeline synchronously and returns the
// scored lead with its matches.
func (h *Handler) createLead(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := h.svc.ProcessLead(c.Request.Context(), service.NewLead{
		Description: req.Description,
		ContactName: req.ContactName,
		Phone:       req.Phone,
		Email:       req.Email,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.ProcessResultResponse{
		Lead:    transport.ToLeadResponse(result.Lead),
		Matches: transport.ToMatchResponses(result.Matches),
	})
}

func (h *Handler) getLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}

	lead, err := h.svc.GetLead(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead))
}

func (h *Handler) listLeads(c *gin.Context) {
	var status *domain.Status
	if raw := c.Query("status"); raw != "" {
		s := domain.Status(raw)
		status = &s
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	leads, err := h.svc.ListLeads(c.Request.Context(), status, limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, transport.ToLeadResponse(lead))
	}
	httpkit.OK(c, gin.H{"leads": out})
}

func (h *Handler) listCalls(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}

	records, err := h.calls.ListByLead(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"calls": transport.ToCallRecordResponses(records)})
}

func (h *Handler) requestCall(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id", nil)
		return
	}

	var req transport.RequestCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	rec, setupDoc, err := h.svc.RequestCall(c.Request.Context(), leadID, callagent.CallType(req.CallType))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, gin.H{
		"callId":        rec.ID.String(),
		"callType":      string(rec.CallType),
		"attempt":       rec.Attempt,
		"setupDocument": setupDoc,
	})
}
