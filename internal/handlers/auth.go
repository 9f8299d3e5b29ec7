package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rewards-backend/internal/models"
	"rewards-backend/internal/services"
)

type AuthHandler struct {
	telegram *services.TelegramAuthenticator
	jwt      *services.JWTService
	log      *zap.Logger
}

func NewAuthHandler(telegram *services.TelegramAuthenticator, jwt *services.JWTService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{telegram: telegram, jwt: jwt, log: log}
}

// Authenticate exchanges Mini App init data for an API token.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	initData := c.Query("init_data")
	if initData == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data is required"})
		return
	}

	user, err := h.telegram.Verify(initData)
	if err != nil {
		h.log.Warn("telegram auth rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Telegram data"})
		return
	}

	accountID := models.TelegramName(user.Username, user.FirstName, user.LastName)
	token, expiresAt, err := h.jwt.IssueToken(accountID, user.Id)
	if err != nil {
		h.log.Error("failed to issue token", zap.String("account_id", accountID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"account_id": accountID,
		"user": gin.H{
			"id":         user.Id,
			"username":   user.Username,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
		},
	})
}
