// Package handler wires the vesting grant and claim endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"aurum/internal/vesting/models"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/platform/middleware/auth"
	"aurum/pkg/requestcontext"
)

// Service is the vesting ledger surface the handler needs.
type Service interface {
	RegisterGrant(ctx context.Context, beneficiary domain.BeneficiaryID, allocation domain.Amount, startTime time.Time) (*models.VestingGrant, error)
	ClaimInitialUnlock(ctx context.Context, beneficiary domain.BeneficiaryID) (domain.Amount, error)
	ClaimVested(ctx context.Context, beneficiary domain.BeneficiaryID) (domain.Amount, error)
	Grant(ctx context.Context, beneficiary domain.BeneficiaryID) (*models.VestingGrant, error)
}

// Handler exposes grant registration and beneficiary claims.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs the handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the vesting endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/vesting/grants", h.HandleRegisterGrant)
	r.Post("/vesting/{beneficiary}/claim-initial", h.HandleClaimInitial)
	r.Post("/vesting/{beneficiary}/claim", h.HandleClaimVested)
	r.Get("/vesting/{beneficiary}", h.HandleGetGrant)
}

// RegisterGrantRequest is the body for POST /vesting/grants. StartTime is
// optional; omitted it defaults to the request time.
type RegisterGrantRequest struct {
	Beneficiary string        `json:"beneficiary"`
	Allocation  domain.Amount `json:"allocation"`
	StartTime   *time.Time    `json:"start_time,omitempty"`
}

// HandleRegisterGrant handles POST /vesting/grants (admin).
func (h *Handler) HandleRegisterGrant(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireRole(w, r, domain.RoleAdmin); !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RegisterGrantRequest](w, r, h.logger)
	if !ok {
		return
	}
	var startTime time.Time
	if req.StartTime != nil {
		startTime = *req.StartTime
	}
	grant, err := h.service.RegisterGrant(r.Context(), domain.BeneficiaryID(req.Beneficiary), req.Allocation, startTime)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, grant)
}

// HandleClaimInitial handles POST /vesting/{beneficiary}/claim-initial.
// Beneficiaries claim for themselves; admins may claim on their behalf.
func (h *Handler) HandleClaimInitial(w http.ResponseWriter, r *http.Request) {
	beneficiary, ok := h.claimant(w, r)
	if !ok {
		return
	}
	amount, err := h.service.ClaimInitialUnlock(r.Context(), beneficiary)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"beneficiary": beneficiary,
		"amount":      amount,
	})
}

// HandleClaimVested handles POST /vesting/{beneficiary}/claim.
func (h *Handler) HandleClaimVested(w http.ResponseWriter, r *http.Request) {
	beneficiary, ok := h.claimant(w, r)
	if !ok {
		return
	}
	amount, err := h.service.ClaimVested(r.Context(), beneficiary)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"beneficiary": beneficiary,
		"amount":      amount,
	})
}

// HandleGetGrant handles GET /vesting/{beneficiary}.
func (h *Handler) HandleGetGrant(w http.ResponseWriter, r *http.Request) {
	beneficiary := domain.BeneficiaryID(chi.URLParam(r, "beneficiary"))
	grant, err := h.service.Grant(r.Context(), beneficiary)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, grant)
}

// claimant resolves the path beneficiary and checks the caller may claim for
// it.
func (h *Handler) claimant(w http.ResponseWriter, r *http.Request) (domain.BeneficiaryID, bool) {
	beneficiary := domain.BeneficiaryID(chi.URLParam(r, "beneficiary"))
	caller := requestcontext.Caller(r.Context())
	if caller.ID != beneficiary.String() && !caller.Has(domain.RoleAdmin) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "caller may only claim its own grant"))
		return "", false
	}
	return beneficiary, true
}
