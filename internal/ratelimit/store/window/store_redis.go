package window

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"aurum/internal/ratelimit/models"
	"aurum/pkg/domain"
)

// RedisWindowStore keeps account windows in Redis hashes so multiple service
// instances share one limiter. Amounts are 256-bit, beyond what Redis can
// compare natively, so Consume uses optimistic WATCH/MULTI transactions: the
// decision is computed in Go and committed only if the window was untouched,
// retrying on contention.
type RedisWindowStore struct {
	client  redis.Cmdable
	watcher watcher
	prefix  string
}

// watcher is the subset of *redis.Client needed for optimistic transactions.
type watcher interface {
	Watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error
}

const consumeRetries = 8

// NewRedis constructs a Redis-backed window store.
func NewRedis(client *redis.Client) *RedisWindowStore {
	return &RedisWindowStore{client: client, watcher: client, prefix: "ratelimit:window:"}
}

func (s *RedisWindowStore) key(account domain.AccountID) string {
	return s.prefix + account.String()
}

// Consume applies the fixed-bucket algorithm under optimistic concurrency.
func (s *RedisWindowStore) Consume(ctx context.Context, account domain.AccountID, amount domain.Amount, limits models.Limits, now time.Time) (*models.Decision, error) {
	var decision *models.Decision
	key := s.key(account)

	attempt := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("read window: %w", err)
		}

		windowStart := now
		amountInWindow := domain.Amount{}
		if raw, ok := fields["window_start"]; ok {
			start, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				return fmt.Errorf("parse window start: %w", err)
			}
			windowStart = start
			if amountInWindow, err = domain.ParseAmount(fields["amount_in_window"]); err != nil {
				return fmt.Errorf("parse window amount: %w", err)
			}
		}

		if !now.Before(windowStart.Add(limits.Period)) {
			windowStart = now
			amountInWindow = domain.Amount{}
		}

		resetAt := windowStart.Add(limits.Period)
		consumed := amountInWindow.Plus(amount)
		if consumed.Cmp(limits.Limit) > 0 {
			decision = &models.Decision{
				Allowed:   false,
				Remaining: limits.Limit.Minus(amountInWindow),
				ResetAt:   resetAt,
			}
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"window_start", windowStart.Format(time.RFC3339Nano),
				"amount_in_window", consumed.String(),
			)
			pipe.HIncrBy(ctx, key, "transfer_count", 1)
			return nil
		})
		if err != nil {
			return err
		}
		decision = &models.Decision{
			Allowed:   true,
			Remaining: limits.Limit.Minus(consumed),
			ResetAt:   resetAt,
		}
		return nil
	}

	for range consumeRetries {
		err := s.watcher.Watch(ctx, attempt, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return decision, nil
	}
	return nil, fmt.Errorf("consume window for %s: too much contention", account)
}

// Window returns the account's current window, nil if never seen.
func (s *RedisWindowStore) Window(ctx context.Context, account domain.AccountID) (*models.AccountWindow, error) {
	fields, err := s.client.HGetAll(ctx, s.key(account)).Result()
	if err != nil {
		return nil, fmt.Errorf("get window: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	w := models.AccountWindow{Account: account}
	if raw, ok := fields["window_start"]; ok {
		if w.WindowStart, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return nil, fmt.Errorf("parse window start: %w", err)
		}
		if w.AmountInWindow, err = domain.ParseAmount(fields["amount_in_window"]); err != nil {
			return nil, fmt.Errorf("parse window amount: %w", err)
		}
	}
	if raw, ok := fields["transfer_count"]; ok {
		if _, err := fmt.Sscanf(raw, "%d", &w.TransferCount); err != nil {
			return nil, fmt.Errorf("parse transfer count: %w", err)
		}
	}
	w.Exempt = fields["exempt"] == "1"
	return &w, nil
}

// SetExempt flags an account to bypass rate limiting.
func (s *RedisWindowStore) SetExempt(ctx context.Context, account domain.AccountID, exempt bool) error {
	value := "0"
	if exempt {
		value = "1"
	}
	if err := s.client.HSet(ctx, s.key(account), "exempt", value).Err(); err != nil {
		return fmt.Errorf("set exempt: %w", err)
	}
	return nil
}

// IsExempt reports whether an account bypasses rate limiting.
func (s *RedisWindowStore) IsExempt(ctx context.Context, account domain.AccountID) (bool, error) {
	value, err := s.client.HGet(ctx, s.key(account), "exempt").Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get exempt: %w", err)
	}
	return value == "1", nil
}
