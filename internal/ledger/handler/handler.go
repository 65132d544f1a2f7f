// Package handler exposes the balance ledger endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/httputil"
	"aurum/pkg/platform/middleware/auth"
	"aurum/pkg/requestcontext"
)

// Service is the ledger surface the handler needs.
type Service interface {
	Transfer(ctx context.Context, from, to domain.AccountID, amount domain.Amount) error
	Balance(ctx context.Context, account domain.AccountID) (domain.Amount, error)
	TotalSupply(ctx context.Context) (domain.Amount, error)
	Mint(ctx context.Context, to domain.AccountID, amount domain.Amount) error
}

// Handler wires the ledger endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs the handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the ledger endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/transfer", h.HandleTransfer)
	r.Post("/mint", h.HandleMint)
	r.Get("/balance/{account}", h.HandleBalance)
	r.Get("/supply", h.HandleSupply)
}

// TransferRequest is the body for POST /transfer. From defaults to the
// authenticated caller; only admins may move funds from other accounts.
type TransferRequest struct {
	From   string        `json:"from,omitempty"`
	To     string        `json:"to"`
	Amount domain.Amount `json:"amount"`
}

// HandleTransfer handles POST /transfer.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Caller(ctx)
	if caller.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger)
	if !ok {
		return
	}
	from := domain.AccountID(req.From)
	if from.IsZero() {
		from = domain.AccountID(caller.ID)
	}
	if from != domain.AccountID(caller.ID) && !caller.Has(domain.RoleAdmin) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "cannot transfer from another account"))
		return
	}
	if err := h.service.Transfer(ctx, from, domain.AccountID(req.To), req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"from":   from.String(),
		"to":     req.To,
		"amount": req.Amount,
	})
}

// MintRequest is the body for POST /mint (admin).
type MintRequest struct {
	To     string        `json:"to"`
	Amount domain.Amount `json:"amount"`
}

// HandleMint handles POST /mint (admin).
func (h *Handler) HandleMint(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.RequireRole(w, r, domain.RoleAdmin); !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[MintRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.service.Mint(r.Context(), domain.AccountID(req.To), req.Amount); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"to":     req.To,
		"amount": req.Amount,
	})
}

// HandleBalance handles GET /balance/{account}.
func (h *Handler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	account := domain.AccountID(chi.URLParam(r, "account"))
	balance, err := h.service.Balance(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"account": account.String(),
		"balance": balance,
	})
}

// HandleSupply handles GET /supply.
func (h *Handler) HandleSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := h.service.TotalSupply(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"total_supply": supply})
}
