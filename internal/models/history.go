package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type HistoryEntry struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	StakeLevel   string          `json:"stake_level"`
	StakeAmount  decimal.Decimal `json:"stake_amount"`
	OutcomeID    string          `json:"outcome_id"`
	OutcomeKind  string          `json:"outcome_kind"`
	Payload      string          `json:"payload,omitempty"`
	NetDelta     decimal.Decimal `json:"net_delta"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	PlayedAt     time.Time       `json:"played_at"`
}

// DepositRecord exists at most once per TxID.
type DepositRecord struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	Amount       decimal.Decimal `json:"amount"`
	TxID         string          `json:"tx_id"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	AppliedAt    time.Time       `json:"applied_at"`
}
