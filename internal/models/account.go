package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a collectible won from a prize table.
type Item struct {
	ID         string    `json:"id"`
	OutcomeID  string    `json:"outcome_id"`
	Payload    string    `json:"payload"`
	StakeLevel string    `json:"stake_level"`
	WonAt      time.Time `json:"won_at"`
}

type Account struct {
	ID           string          `json:"id"`
	Balance      decimal.Decimal `json:"balance"`
	Collectibles []Item          `json:"collectibles"`

	// Audit only, never consulted when authorizing a debit.
	TotalDeposited decimal.Decimal `json:"total_deposited"`
	TotalWithdrawn decimal.Decimal `json:"total_withdrawn"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewAccount(id string, now time.Time) *Account {
	return &Account{
		ID:             id,
		Balance:        decimal.Zero,
		Collectibles:   []Item{},
		TotalDeposited: decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Adjustment is one atomic balance mutation. Hold is the balance the account
// must already have before Delta applies, e.g. the stake of a play whose
// prize is credited in the same step.
type Adjustment struct {
	Delta decimal.Decimal
	Hold  decimal.Decimal
	Items []Item
}

func (a *Account) CanApply(adj Adjustment) bool {
	if a.Balance.LessThan(adj.Hold) {
		return false
	}
	return !a.Balance.Add(adj.Delta).IsNegative()
}

// Apply mutates the account in memory and bumps its version. Callers must
// check CanApply first and persist the result atomically.
func (a *Account) Apply(adj Adjustment, now time.Time) {
	a.Balance = a.Balance.Add(adj.Delta)
	a.Collectibles = append(a.Collectibles, adj.Items...)
	a.Version++
	a.UpdatedAt = now
}

// Credit applies a deposit.
func (a *Account) Credit(amount decimal.Decimal, now time.Time) {
	a.Balance = a.Balance.Add(amount)
	a.TotalDeposited = a.TotalDeposited.Add(amount)
	a.Version++
	a.UpdatedAt = now
}
