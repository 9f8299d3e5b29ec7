package models

import "time"

type EventType string

const (
	EventPlayed    EventType = "PLAY_RESULT"
	EventDeposited EventType = "DEPOSIT_APPLIED"
)

// Event is what notifier sinks receive after a ledger commit.
type Event struct {
	Type      EventType      `json:"type"`
	AccountID string         `json:"account_id"`
	Play      *PlayResult    `json:"play,omitempty"`
	Deposit   *DepositRecord `json:"deposit,omitempty"`
	At        time.Time      `json:"at"`
}
