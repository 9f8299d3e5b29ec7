package services

import "time"

const (
	// Account ids are free text, so every per-account key puts the id last
	// behind a prefix no other key family starts with.
	KeyAccount        = "acct:%s"
	KeyAccountHistory = "acct_history:%s"
	KeyDeposit        = "deposit:%s"
	KeyHistoryEntry   = "history:%s"
	KeyTelegramChats  = "telegram:chats"
	KeyRateLimit      = "ratelimit:%s:%s" // action, account

	TTLHistoryEntry = 90 * 24 * time.Hour // 90 days

	// Older entries drop out of the per-account index.
	HistoryRetention = 1000

	DefaultRateLimitPlays = 30 // Max 30 plays per minute
)
