package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rewards-backend/internal/services"
)

// respondError maps ledger sentinels onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal error"

	switch {
	case errors.Is(err, services.ErrInvalidStakeLevel):
		status, message = http.StatusBadRequest, "Unknown stake level"
	case errors.Is(err, services.ErrInvalidAmount):
		status, message = http.StatusBadRequest, "Invalid amount"
	case errors.Is(err, services.ErrInvalidTxID):
		status, message = http.StatusBadRequest, "Invalid transaction id"
	case errors.Is(err, services.ErrInvalidAccount):
		status, message = http.StatusBadRequest, "Invalid account"
	case errors.Is(err, services.ErrInsufficientFunds):
		status, message = http.StatusPaymentRequired, "Insufficient funds"
	case errors.Is(err, services.ErrRateLimited):
		status, message = http.StatusTooManyRequests, "Rate limit exceeded"
	case errors.Is(err, services.ErrTransient):
		status, message = http.StatusServiceUnavailable, "Ledger busy, please retry"
	}

	body := gin.H{"error": message}
	if status < http.StatusInternalServerError {
		body["details"] = err.Error()
	}
	c.JSON(status, body)
}
