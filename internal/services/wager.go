package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rewards-backend/internal/models"
	"rewards-backend/internal/odds"
)

type WagerEngine struct {
	odds     *odds.Set
	ledger   *Ledger
	store    AccountStore
	notifier Notifier
	rng      odds.RNG
	log      *zap.Logger
	metrics  *Metrics
	now      func() time.Time
}

type EngineOption func(*WagerEngine)

// WithRNG replaces the crypto source. The RNG must be safe for the engine's
// concurrency; seeded sources are for single-goroutine tests.
func WithRNG(rng odds.RNG) EngineOption {
	return func(e *WagerEngine) {
		e.rng = rng
	}
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *WagerEngine) {
		e.now = now
	}
}

func NewWagerEngine(set *odds.Set, ledger *Ledger, store AccountStore, notifier Notifier, log *zap.Logger, metrics *Metrics, opts ...EngineOption) *WagerEngine {
	if notifier == nil {
		notifier = NopNotifier()
	}
	e := &WagerEngine{
		odds:     set,
		ledger:   ledger,
		store:    store,
		notifier: notifier,
		rng:      odds.NewCryptoRNG(),
		log:      log,
		metrics:  metrics,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *WagerEngine) Odds() *odds.Set {
	return e.odds
}

// Play stakes one entry at level. The outcome is drawn before the ledger step
// and discarded if the account cannot cover the stake, so history only ever
// holds plays whose mutation committed.
func (e *WagerEngine) Play(ctx context.Context, accountID, level string) (*models.PlayResult, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		e.metrics.PlayRejections.WithLabelValues("invalid_account").Inc()
		return nil, ErrInvalidAccount
	}

	table, ok := e.odds.Table(level)
	if !ok {
		e.metrics.PlayRejections.WithLabelValues("invalid_stake_level").Inc()
		return nil, fmt.Errorf("%w: %q", ErrInvalidStakeLevel, level)
	}

	outcome := odds.Select(table, e.rng)
	credit := outcome.Credit()
	now := e.now().UTC()

	adj := models.Adjustment{
		Delta: credit.Sub(table.Stake),
		Hold:  table.Stake,
	}

	var item *models.Item
	if outcome.Kind == odds.KindCollectible {
		item = &models.Item{
			ID:         models.GenerateItemID(),
			OutcomeID:  outcome.ID,
			Payload:    outcome.Payload,
			StakeLevel: table.Level,
			WonAt:      now,
		}
		adj.Items = []models.Item{*item}
	}

	account, err := e.ledger.Adjust(ctx, accountID, adj)
	if err != nil {
		reason := "transient"
		if errors.Is(err, ErrInsufficientFunds) {
			reason = "insufficient_funds"
		}
		e.metrics.PlayRejections.WithLabelValues(reason).Inc()
		return nil, err
	}

	entry := &models.HistoryEntry{
		ID:           models.GenerateHistoryID(),
		AccountID:    accountID,
		StakeLevel:   table.Level,
		StakeAmount:  table.Stake,
		OutcomeID:    outcome.ID,
		OutcomeKind:  string(outcome.Kind),
		Payload:      outcome.Payload,
		NetDelta:     adj.Delta,
		BalanceAfter: account.Balance,
		PlayedAt:     now,
	}

	// The ledger commit is authoritative; a lost history row is logged, not undone.
	if err := e.store.AppendHistory(context.WithoutCancel(ctx), entry); err != nil {
		e.log.Error("failed to append play history",
			zap.String("account_id", accountID),
			zap.String("history_id", entry.ID),
			zap.Error(err))
	}

	e.metrics.Plays.WithLabelValues(table.Level, string(outcome.Kind)).Inc()

	result := &models.PlayResult{
		HistoryID:   entry.ID,
		StakeLevel:  table.Level,
		OutcomeID:   outcome.ID,
		OutcomeKind: string(outcome.Kind),
		Payload:     outcome.Payload,
		Credit:      credit,
		NetDelta:    adj.Delta,
		NewBalance:  account.Balance,
		Item:        item,
	}

	go e.notifier.Notify(context.WithoutCancel(ctx), accountID, models.Event{
		Type:      models.EventPlayed,
		AccountID: accountID,
		Play:      result,
		At:        now,
	})

	return result, nil
}

func (e *WagerEngine) Balance(ctx context.Context, accountID string) (*models.BalanceResponse, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ErrInvalidAccount
	}

	account, err := e.store.ReadAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to read account: %w", err)
	}

	return &models.BalanceResponse{
		AccountID:      account.ID,
		Balance:        account.Balance,
		Collectibles:   account.Collectibles,
		TotalDeposited: account.TotalDeposited,
	}, nil
}

func (e *WagerEngine) History(ctx context.Context, accountID string, limit int) ([]*models.HistoryEntry, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, ErrInvalidAccount
	}

	entries, err := e.store.ListHistory(ctx, accountID, clampHistoryLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return entries, nil
}
