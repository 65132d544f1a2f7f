// Package handler wires the treasury request and budget endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aurum/internal/timelock/budget"
	"aurum/internal/timelock/models"
	"aurum/pkg/domain"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/platform/middleware/auth"
)

// Service is the treasury surface the handler needs.
type Service interface {
	Request(ctx context.Context, operator domain.OperatorID, recipient domain.AccountID, amount domain.Amount, purpose string) (*models.TimelockedAction, error)
	Execute(ctx context.Context, id domain.ActionID) error
	ExecuteEmergency(ctx context.Context, id domain.ActionID, reason string) error
	RequestByID(ctx context.Context, id domain.ActionID) (*models.TimelockedAction, error)
}

// BudgetService is the budget surface the handler needs.
type BudgetService interface {
	Budget(ctx context.Context, operator domain.OperatorID) (*budget.OperatorBudget, error)
	SetLimits(ctx context.Context, limits budget.Limits) error
	Limits() budget.Limits
}

// Handler exposes treasury transfer requests, execution and budget admin.
type Handler struct {
	service Service
	budgets BudgetService
	logger  *slog.Logger
}

// New constructs the handler.
func New(service Service, budgets BudgetService, logger *slog.Logger) *Handler {
	return &Handler{service: service, budgets: budgets, logger: logger}
}

// Register mounts the treasury endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/treasury/requests", h.HandleRequest)
	r.Get("/treasury/requests/{id}", h.HandleGetRequest)
	r.Post("/treasury/requests/{id}/execute", h.HandleExecute)
	r.Post("/treasury/requests/{id}/execute-emergency", h.HandleExecuteEmergency)
	r.Get("/treasury/budget/{operator}", h.HandleGetBudget)
	r.Put("/treasury/budget", h.HandleSetLimits)
	r.Get("/treasury/budget", h.HandleGetLimits)
}

// TransferRequest is the body for POST /treasury/requests.
type TransferRequest struct {
	Recipient string        `json:"recipient"`
	Amount    domain.Amount `json:"amount"`
	Purpose   string        `json:"purpose"`
}

// HandleRequest handles POST /treasury/requests (operator). The caller is
// the budgeted operator.
func (h *Handler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.RequireRole(w, r, domain.RoleOperator)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger)
	if !ok {
		return
	}
	action, err := h.service.Request(r.Context(), domain.OperatorID(caller.ID),
		domain.AccountID(req.Recipient), req.Amount, req.Purpose)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, action)
}

// HandleGetRequest handles GET /treasury/requests/{id}.
func (h *Handler) HandleGetRequest(w http.ResponseWriter, r *http.Request) {
	action, err := h.service.RequestByID(r.Context(), domain.ActionID(chi.URLParam(r, "id")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, action)
}

// HandleExecute handles POST /treasury/requests/{id}/execute (treasury).
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireRole(w, r, domain.RoleTreasury); !ok {
		return
	}
	id := domain.ActionID(chi.URLParam(r, "id"))
	if err := h.service.Execute(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "executed": true})
}

// EmergencyRequest is the body for POST /treasury/requests/{id}/execute-emergency.
type EmergencyRequest struct {
	Reason string `json:"reason"`
}

// HandleExecuteEmergency handles POST
// /treasury/requests/{id}/execute-emergency (guardian).
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

// HandleGetBudget handles GET /treasury/budget/{operator}.
func (h *Handler) HandleGetBudget(w http.ResponseWriter, r *http.Request) {
	operator := domain.OperatorID(chi.URLParam(r, "operator"))
	b, err := h.budgets.Budget(r.Context(), operator)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, b)
}

// SetLimitsRequest is the body for PUT /treasury/budget.
type SetLimitsRequest struct {
	PerTxLimit domain.Amount `json:"per_tx_limit"`
	DailyLimit domain.Amount `json:"daily_limit"`
}

// HandleSetLimits handles PUT /treasury/budget (admin).
func (h *Handler) HandleSetLimits(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireRole(w, r, domain.RoleAdmin); !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetLimitsRequest](w, r, h.logger)
	if !ok {
		return
	}
	limits := budget.Limits{PerTxLimit: req.PerTxLimit, DailyLimit: req.DailyLimit}
	if err := h.budgets.SetLimits(r.Context(), limits); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, limits)
}

// HandleGetLimits handles GET /treasury/budget.
func (h *Handler) HandleGetLimits(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.budgets.Limits())
}
