package models

import "github.com/shopspring/decimal"

type PlayRequest struct {
	StakeLevel string `json:"stake_level" binding:"required"`
}

type PlayResult struct {
	HistoryID   string          `json:"history_id"`
	StakeLevel  string          `json:"stake_level"`
	OutcomeID   string          `json:"outcome_id"`
	OutcomeKind string          `json:"outcome_kind"`
	Payload     string          `json:"payload,omitempty"`
	Credit      decimal.Decimal `json:"credit"`
	NetDelta    decimal.Decimal `json:"net_delta"`
	NewBalance  decimal.Decimal `json:"new_balance"`
	Item        *Item           `json:"item,omitempty"`
}

type DepositRequest struct {
	AccountID string          `json:"account_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
	TxID      string          `json:"tx_id" binding:"required"`
}

type DepositResult struct {
	NewBalance decimal.Decimal `json:"new_balance"`
	Applied    bool            `json:"applied"`
	Record     *DepositRecord  `json:"record"`
}

type BalanceResponse struct {
	AccountID      string          `json:"account_id"`
	Balance        decimal.Decimal `json:"balance"`
	Collectibles   []Item          `json:"collectibles"`
	TotalDeposited decimal.Decimal `json:"total_deposited"`
}
