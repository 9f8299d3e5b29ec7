package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rewards-backend/internal/models"
)

const (
	DefaultLedgerAttempts = 5
	defaultBaseDelay      = 10 * time.Millisecond
	defaultMaxDelay       = 200 * time.Millisecond
	defaultOpTimeout      = 10 * time.Second
)

// Ledger serializes mutations per account through the store's optimistic
// concurrency and retries lost races with bounded exponential backoff.
type Ledger struct {
	store   AccountStore
	log     *zap.Logger
	metrics *Metrics

	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	opTimeout   time.Duration
}

type LedgerOption func(*Ledger)

func WithMaxAttempts(n int) LedgerOption {
	return func(l *Ledger) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

func WithBackoff(base, max time.Duration) LedgerOption {
	return func(l *Ledger) {
		l.baseDelay = base
		l.maxDelay = max
	}
}

func WithOpTimeout(d time.Duration) LedgerOption {
	return func(l *Ledger) {
		l.opTimeout = d
	}
}

func NewLedger(store AccountStore, log *zap.Logger, metrics *Metrics, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store:       store,
		log:         log,
		metrics:     metrics,
		maxAttempts: DefaultLedgerAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
		opTimeout:   defaultOpTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Adjust applies adj to one account. The balance check and the write happen
// in the same store step, so a rejected adjustment leaves no trace.
func (l *Ledger) Adjust(ctx context.Context, accountID string, adj models.Adjustment) (*models.Account, error) {
	return withRetry(ctx, l, "adjust", accountID, func(ctx context.Context) (*models.Account, error) {
		account, err := l.store.ReadAccount(ctx, accountID)
		if err != nil {
			return nil, err
		}
		if !account.CanApply(adj) {
			return nil, ErrInsufficientFunds
		}
		return l.store.AdjustAccount(ctx, accountID, adj, account.Version)
	})
}

type depositOutcome struct {
	record  *models.DepositRecord
	applied bool
}

// RecordDeposit credits amount once per txID. Replays return the original
// record with applied=false.
func (l *Ledger) RecordDeposit(ctx context.Context, accountID string, amount decimal.Decimal, txID string) (*models.DepositRecord, bool, error) {
	out, err := withRetry(ctx, l, "deposit", accountID, func(ctx context.Context) (depositOutcome, error) {
		rec, applied, err := l.store.CreditDepositIfAbsent(ctx, accountID, amount, txID)
		return depositOutcome{record: rec, applied: applied}, err
	})
	if err != nil {
		return nil, false, err
	}
	return out.record, out.applied, nil
}

// withRetry runs op detached from the caller's cancellation: once a mutation
// is on the wire it commits or aborts on its own, and the caller that gave up
// simply never sees the result. Only ErrConflict is retried.
func withRetry[T any](ctx context.Context, l *Ledger, op, accountID string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.opTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		l.metrics.LedgerDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	attempts := 0
	operation := func() (T, error) {
		attempts++
		result, err := fn(opCtx)
		if err != nil && !errors.Is(err, ErrConflict) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}
	notify := func(err error, delay time.Duration) {
		l.metrics.LedgerConflicts.Inc()
		l.log.Debug("ledger conflict, retrying",
			zap.String("op", op),
			zap.String("account_id", accountID),
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay))
	}

	result, err := backoff.RetryNotifyWithData(operation, l.newBackOff(opCtx), notify)
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, ErrInsufficientFunds):
		return zero, err
	case errors.Is(err, ErrConflict):
		l.metrics.LedgerConflicts.Inc()
		l.metrics.LedgerExhausted.Inc()
		l.log.Warn("ledger retries exhausted",
			zap.String("op", op),
			zap.String("account_id", accountID),
			zap.Int("attempts", attempts))
		return zero, fmt.Errorf("%w: %s %s: gave up after %d attempts", ErrTransient, op, accountID, attempts)
	}
	return zero, fmt.Errorf("%w: %s %s: %w", ErrTransient, op, accountID, err)
}

// newBackOff doubles the delay per attempt up to maxDelay with 50% jitter,
// stopping after maxAttempts calls or when ctx ends.
func (l *Ledger) newBackOff(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = l.baseDelay
	exp.MaxInterval = l.maxDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0.5
	exp.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(l.maxAttempts-1)), ctx)
}
