// Package service implements the vesting ledger: one-time grants releasing a
// fixed initial unlock at start plus a cliff-then-linear remainder, with
// claims paid from a pool account on the ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"aurum/internal/vesting/metrics"
	"aurum/internal/vesting/models"
	"aurum/internal/vesting/ports"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/platform/sentinel"
	"aurum/pkg/requestcontext"
)

// Curve is the release schedule applied to every new grant.
type Curve struct {
	UnlockPct       uint64
	CliffDuration   time.Duration
	VestingDuration time.Duration
}

// Service coordinates grant accounting with pool payouts. Claims on one
// beneficiary serialize on a per-beneficiary lock so the read-compute-pay-
// commit sequence is atomic relative to other claims on the same grant.
type Service struct {
	store   ports.GrantStore
	tokens  ports.TokenSource
	pool    domain.AccountID
	curve   Curve
	auditor ports.AuditPublisher
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	locks map[domain.BeneficiaryID]*sync.Mutex
}

// Option configures optional service collaborators.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs the vesting ledger.
func New(store ports.GrantStore, tokens ports.TokenSource, pool domain.AccountID, curve Curve, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("grant store is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	if pool.IsZero() {
		return nil, fmt.Errorf("pool account is required")
	}
	if curve.UnlockPct > 100 {
		return nil, fmt.Errorf("unlock percentage must be at most 100")
	}
	if curve.VestingDuration <= 0 || curve.CliffDuration < 0 || curve.CliffDuration > curve.VestingDuration {
		return nil, fmt.Errorf("vesting curve durations are inconsistent")
	}
	svc := &Service{
		store:  store,
		tokens: tokens,
		pool:   pool,
		curve:  curve,
		locks:  make(map[domain.BeneficiaryID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// RegisterGrant creates the one-time grant for a beneficiary. A zero
// startTime anchors the grant at the request time.
func (s *Service) RegisterGrant(ctx context.Context, beneficiary domain.BeneficiaryID, allocation domain.Amount, startTime time.Time) (*models.VestingGrant, error) {
	if beneficiary.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "beneficiary is required")
	}
	if allocation.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "allocation must be positive")
	}
	if startTime.IsZero() {
		startTime = requestcontext.Now(ctx)
	}

	grant := &models.VestingGrant{
		Beneficiary:     beneficiary,
		TotalAllocation: allocation,
		UnlockPct:       s.curve.UnlockPct,
		StartTime:       startTime,
		CliffDuration:   s.curve.CliffDuration,
		VestingDuration: s.curve.VestingDuration,
	}
	if err := s.store.Register(ctx, grant); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, models.ErrAlreadyRegistered(beneficiary)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register grant")
	}

	s.metrics.IncrementRegistered()
	if s.logger != nil {
		s.logger.InfoContext(ctx, "vesting grant registered",
			"request_id", requestcontext.RequestID(ctx),
			"beneficiary", beneficiary,
			"allocation", allocation.String(),
			"start_time", startTime,
		)
	}
	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   audit.ActionGrantRegistered,
		Subject:  beneficiary.String(),
		Amount:   allocation.String(),
		Decision: "allowed",
	})
	return grant, nil
}

// ClaimInitialUnlock pays the one-time initial unlock. Callable any time at
// or after the grant's start; a second call fails. The payout transfer runs
// before the claim is booked, so a failed transfer leaves the grant
// unclaimed.
func (s *Service) ClaimInitialUnlock(ctx context.Context, beneficiary domain.BeneficiaryID) (domain.Amount, error) {
	if beneficiary.IsZero() {
		return domain.ZeroAmount, dErrors.New(dErrors.CodeInvalidInput, "beneficiary is required")
	}
	unlock := s.lock(beneficiary)
	defer unlock()

	grant, err := s.getGrant(ctx, beneficiary)
	if err != nil {
		return domain.ZeroAmount, err
	}
	if grant.InitialClaimed {
		return domain.ZeroAmount, s.reject(ctx, beneficiary, models.ErrAlreadyClaimed(beneficiary))
	}
	now := requestcontext.Now(ctx)
	if now.Before(grant.StartTime) {
		return domain.ZeroAmount, s.reject(ctx, beneficiary,
			models.ErrNothingToClaim(beneficiary).With("start_time", grant.StartTime.UTC().Format(time.RFC3339)))
	}
	amount := grant.InitialUnlock()
	if amount.IsZero() {
		return domain.ZeroAmount, s.reject(ctx, beneficiary, models.ErrNothingToClaim(beneficiary))
	}

	if err := s.payOut(ctx, beneficiary, amount); err != nil {
		return domain.ZeroAmount, err
	}
	if err := s.store.CommitInitialClaim(ctx, beneficiary, amount); err != nil {
		s.reportUnbookedPayout(ctx, beneficiary, amount, err)
		return domain.ZeroAmount, dErrors.Wrap(err, dErrors.CodeInternal, "failed to book initial claim")
	}

	s.metrics.IncrementClaimPaid("initial")
	if s.logger != nil {
		s.logger.InfoContext(ctx, "initial unlock claimed",
			"request_id", requestcontext.RequestID(ctx),
			"beneficiary", beneficiary,
			"amount", amount.String(),
		)
	}
	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   audit.ActionInitialClaimed,
		Subject:  beneficiary.String(),
		Amount:   amount.String(),
		Decision: "allowed",
	})
	return amount, nil
}

// ClaimVested pays everything vested and unclaimed at the request time. Safe
// to call before or after the initial-unlock claim: the unlock only counts
// toward the entitlement once claimed. The payout transfer runs before the
// claim is booked.
func (s *Service) ClaimVested(ctx context.Context, beneficiary domain.BeneficiaryID) (domain.Amount, error) {
	if beneficiary.IsZero() {
		return domain.ZeroAmount, dErrors.New(dErrors.CodeInvalidInput, "beneficiary is required")
	}
	unlock := s.lock(beneficiary)
	defer unlock()

	grant, err := s.getGrant(ctx, beneficiary)
	if err != nil {
		return domain.ZeroAmount, err
	}
	now := requestcontext.Now(ctx)
	amount := grant.Claimable(now)
	if amount.IsZero() {
		rejection := models.ErrNothingToClaim(beneficiary)
		if now.Before(grant.CliffEnd()) {
			rejection = rejection.With("cliff_end", grant.CliffEnd().UTC().Format(time.RFC3339))
		}
		return domain.ZeroAmount, s.reject(ctx, beneficiary, rejection)
	}

	if err := s.payOut(ctx, beneficiary, amount); err != nil {
		return domain.ZeroAmount, err
	}
	if err := s.store.CommitVestedClaim(ctx, beneficiary, amount, grant.TotalClaimed); err != nil {
		s.reportUnbookedPayout(ctx, beneficiary, amount, err)
		return domain.ZeroAmount, dErrors.Wrap(err, dErrors.CodeInternal, "failed to book vested claim")
	}

	s.metrics.IncrementClaimPaid("vested")
	if s.logger != nil {
		s.logger.InfoContext(ctx, "vested tokens claimed",
			"request_id", requestcontext.RequestID(ctx),
			"beneficiary", beneficiary,
			"amount", amount.String(),
		)
	}
	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   audit.ActionVestedClaimed,
		Subject:  beneficiary.String(),
		Amount:   amount.String(),
		Decision: "allowed",
	})
	return amount, nil
}

// Grant returns the beneficiary's grant for inspection.
func (s *Service) Grant(ctx context.Context, beneficiary domain.BeneficiaryID) (*models.VestingGrant, error) {
	if beneficiary.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "beneficiary is required")
	}
	return s.getGrant(ctx, beneficiary)
}

func (s *Service) getGrant(ctx context.Context, beneficiary domain.BeneficiaryID) (*models.VestingGrant, error) {
	grant, err := s.store.Get(ctx, beneficiary)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, models.ErrNoAllocation(beneficiary)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read grant")
	}
	return grant, nil
}

func (s *Service) payOut(ctx context.Context, beneficiary domain.BeneficiaryID, amount domain.Amount) error {
	if err := s.tokens.Transfer(ctx, s.pool, beneficiary.Account(), amount); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "vesting payout transfer failed",
				"request_id", requestcontext.RequestID(ctx),
				"beneficiary", beneficiary,
				"amount", amount.String(),
				"error", err,
			)
		}
		return err
	}
	return nil
}

// reportUnbookedPayout surfaces a payout whose claim accounting could not be
// committed. Until an operator reconciles, the grant under-reports claims.
func (s *Service) reportUnbookedPayout(ctx context.Context, beneficiary domain.BeneficiaryID, amount domain.Amount, err error) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "paid vesting claim failed to book",
			"request_id", requestcontext.RequestID(ctx),
			"beneficiary", beneficiary,
			"amount", amount.String(),
			"error", err,
		)
	}
}

func (s *Service) reject(ctx context.Context, beneficiary domain.BeneficiaryID, err *dErrors.Error) error {
	s.metrics.IncrementRejected()
	s.emit(ctx, audit.Event{
		Category: audit.CategoryCompliance,
		Action:   audit.ActionClaimRejected,
		Subject:  beneficiary.String(),
		Decision: "denied",
		Reason:   err.Kind,
	})
	return err
}

// lock serializes claims per beneficiary.
func (s *Service) lock(beneficiary domain.BeneficiaryID) func() {
	s.mu.Lock()
	m, ok := s.locks[beneficiary]
	if !ok {
		m = &sync.Mutex{}
		s.locks[beneficiary] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.Actor = requestcontext.Caller(ctx).ID
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}
