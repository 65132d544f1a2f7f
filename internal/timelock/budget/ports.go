package budget

import (
	"context"
	"time"

	"aurum/pkg/domain"
	"aurum/pkg/platform/audit"
)

// BudgetStore owns the per-operator day buckets. Consume must evaluate the
// reset, the check and the commit atomically per operator; a denial mutates
// nothing.
type BudgetStore interface {
	// Consume applies amount to the operator's day bucket at now under the
	// daily limit, resetting the bucket first when the day has rolled over.
	Consume(ctx context.Context, operator domain.OperatorID, amount, dailyLimit domain.Amount, now time.Time) (*Decision, error)

	// Budget returns the operator's bucket, nil if never seen.
	Budget(ctx context.Context, operator domain.OperatorID) (*OperatorBudget, error)
}

// AuditPublisher emits audit events for budget rejections and limit changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
