// Package handler wires the governance proposal endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aurum/internal/timelock/governance"
	"aurum/internal/timelock/models"
	"aurum/pkg/domain"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/platform/middleware/auth"
)

// Service is the governance surface the handler needs.
type Service interface {
	Propose(ctx context.Context, calls []governance.Call, approvals []string) (*models.TimelockedAction, error)
	Execute(ctx context.Context, id domain.ActionID) error
	ExecuteEmergency(ctx context.Context, id domain.ActionID, reason string) error
	Proposal(ctx context.Context, id domain.ActionID) (*models.TimelockedAction, error)
}

// Handler exposes proposal scheduling and execution.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs the handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the governance endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/governance/proposals", h.HandlePropose)
	r.Get("/governance/proposals/{id}", h.HandleGetProposal)
	r.Post("/governance/proposals/{id}/execute", h.HandleExecute)
	r.Post("/governance/proposals/{id}/execute-emergency", h.HandleExecuteEmergency)
}

// ProposeRequest is the body for POST /governance/proposals.
type ProposeRequest struct {
	Calls     []governance.Call `json:"calls"`
	Approvals []string          `json:"approvals"`
}

// HandlePropose handles POST /governance/proposals (proposer).
func (h *Handler) HandlePropose(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireRole(w, r, domain.RoleProposer); !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ProposeRequest](w, r, h.logger)
	if !ok {
		return
	}
	action, err := h.service.Propose(r.Context(), req.Calls, req.Approvals)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, action)
}

// HandleGetProposal handles GET /governance/proposals/{id}.
func (h *Handler) HandleGetProposal(w http.ResponseWriter, r *http.Request) {
	action, err := h.service.Proposal(r.Context(), domain.ActionID(chi.URLParam(r, "id")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, action)
}

// HandleExecute handles POST /governance/proposals/{id}/execute (executor).
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireRole(w, r, domain.RoleExecutor); !ok {
		return
	}
	id := domain.ActionID(chi.URLParam(r, "id"))
	if err := h.service.Execute(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "executed": true})
}

// EmergencyRequest is the body for the emergency execution endpoints.
type EmergencyRequest struct {
	Reason string `json:"reason"`
}

// HandleExecuteEmergency handles POST
// /governance/proposals/{id}/execute-emergency (guardian).
func (h *Handler) HandleExecuteEmergency(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireRole(w, r, domain.RoleGuardian); !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[EmergencyRequest](w, r, h.logger)
	if !ok {
		return
	}
	id := domain.ActionID(chi.URLParam(r, "id"))
	if err := h.service.ExecuteEmergency(r.Context(), id, req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "executed": true})
}
