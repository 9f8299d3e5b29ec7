package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"rewards-backend/internal/models"
)

// AccountStore is the only shared mutable state the ledger touches. Every
// mutating method is a single atomic step against the backing store.
type AccountStore interface {
	// ReadAccount returns the stored account, or an unsaved empty account
	// with Version 0 if none exists yet.
	ReadAccount(ctx context.Context, accountID string) (*models.Account, error)

	// AdjustAccount applies adj if the stored version still equals
	// expectedVersion and the balance covers it. Returns ErrConflict or
	// ErrInsufficientFunds without side effects otherwise.
	AdjustAccount(ctx context.Context, accountID string, adj models.Adjustment, expectedVersion int64) (*models.Account, error)

	// CreditDepositIfAbsent credits amount and records txID in one step.
	// If txID was already recorded it returns that record and false.
	CreditDepositIfAbsent(ctx context.Context, accountID string, amount decimal.Decimal, txID string) (*models.DepositRecord, bool, error)

	AppendHistory(ctx context.Context, entry *models.HistoryEntry) error
	ListHistory(ctx context.Context, accountID string, limit int) ([]*models.HistoryEntry, error)

	Close() error
}

// ChatDirectory maps accounts to the Telegram chat that receives their notifications.
type ChatDirectory interface {
	SetChatID(ctx context.Context, accountID string, chatID int64) error
	ChatID(ctx context.Context, accountID string) (int64, error)
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, accountID, action string, limit int, window time.Duration) (bool, error)
}

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

func clampHistoryLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}
