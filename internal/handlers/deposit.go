package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rewards-backend/internal/models"
	"rewards-backend/internal/services"
)

type DepositHandler struct {
	intake *services.DepositIntake
}

func NewDepositHandler(intake *services.DepositIntake) *DepositHandler {
	return &DepositHandler{intake: intake}
}

// Deposit is called by the payment watcher once a transfer is final. A
// repeated tx_id answers 200 with applied=false.
func (h *DepositHandler) Deposit(c *gin.Context) {
	var req models.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	result, err := h.intake.Deposit(c.Request.Context(), req.AccountID, req.Amount, req.TxID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"applied":     result.Applied,
		"new_balance": result.NewBalance,
		"deposit":     result.Record,
	})
}
