// Package handler wires the rate limiter's admin and inspection endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"aurum/internal/ratelimit/models"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/platform/middleware/auth"
)

// Service is the rate limiter surface the handler needs.
type Service interface {
	Window(ctx context.Context, account domain.AccountID) (*models.AccountWindow, error)
	SetExempt(ctx context.Context, account domain.AccountID, exempt bool) error
	SetLimits(ctx context.Context, limits models.Limits) error
	Limits() models.Limits
}

// Handler exposes rate limiter configuration and window inspection.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs the handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the rate limiter endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Put("/ratelimit/exempt", h.HandleSetExempt)
	r.Put("/ratelimit/config", h.HandleSetLimits)
	r.Get("/ratelimit/config", h.HandleGetLimits)
	r.Get("/ratelimit/window/{account}", h.HandleGetWindow)
}

// SetExemptRequest is the body for PUT /ratelimit/exempt.
type SetExemptRequest struct {
	Account string `json:"account"`
	Exempt  bool   `json:"exempt"`
}

// HandleSetExempt handles PUT /ratelimit/exempt (admin).
func (h *Handler) HandleSetExempt(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireRole(w, r, domain.RoleAdmin); !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetExemptRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.service.SetExempt(r.Context(), domain.AccountID(req.Account), req.Exempt); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"account": req.Account,
		"exempt":  req.Exempt,
	})
}

// SetLimitsRequest is the body for PUT /ratelimit/config.
type SetLimitsRequest struct {
	Limit         domain.Amount `json:"limit"`
	PeriodSeconds int64         `json:"period_seconds"`
}

// HandleSetLimits handles PUT /ratelimit/config (admin).
func (h *Handler) HandleSetLimits(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireRole(w, r, domain.RoleAdmin); !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetLimitsRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.PeriodSeconds <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "period_seconds must be positive"))
		return
	}
	limits := models.Limits{Limit: req.Limit, Period: time.Duration(req.PeriodSeconds) * time.Second}
	if err := h.service.SetLimits(r.Context(), limits); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, limits)
}

// HandleGetLimits handles GET /ratelimit/config.
func (h *Handler) HandleGetLimits(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Limits())
}

// HandleGetWindow handles GET /ratelimit/window/{account}.
func (h *Handler) HandleGetWindow(w http.ResponseWriter, r *http.Request) {
	account := domain.AccountID(chi.URLParam(r, "account"))
	window, err := h.service.Window(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, window)
}
