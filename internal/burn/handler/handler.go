// Package handler exposes the burn scheduler endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aurum/internal/burn/models"
	"aurum/pkg/domain"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/platform/middleware/auth"
)

// Service is the burn scheduler surface the handler needs.
type Service interface {
	TryBurn(ctx context.Context, from domain.AccountID, amount domain.Amount) error
	State(ctx context.Context) (*models.BurnState, error)
	Schedule() models.Schedule
}

// Handler wires the burn endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs the handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the burn endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/burn", h.HandleBurn)
	r.Get("/burn/state", h.HandleState)
}

// BurnRequest is the body for POST /burn.
type BurnRequest struct {
	Amount domain.Amount `json:"amount"`
}

// HandleBurn handles POST /burn (burner role). The burn draws from the
// caller's own balance.
func (h *Handler) HandleBurn(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.RequireRole(w, r, domain.RoleBurner)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[BurnRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.service.TryBurn(r.Context(), domain.AccountID(caller.ID), req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	state, err := h.service.State(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

// HandleState handles GET /burn/state.
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.State(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"state":    state,
		"schedule": h.service.Schedule(),
	})
}
