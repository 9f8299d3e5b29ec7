package services

import "errors"

var (
	ErrInvalidAccount    = errors.New("invalid account id")
	ErrInvalidStakeLevel = errors.New("invalid stake level")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidTxID       = errors.New("invalid transaction id")

	// ErrInsufficientFunds is terminal: the mutation had no effect.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConflict means another mutation of the same account won the race.
	// The ledger retries it; callers outside the ledger never see it.
	ErrConflict = errors.New("concurrent account modification")

	// ErrTransient means the ledger could not commit or rule out a commit
	// in time. Nothing was applied.
	ErrTransient = errors.New("ledger temporarily unavailable")

	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrChatNotFound = errors.New("no chat registered for account")
)
