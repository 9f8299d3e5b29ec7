package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"rewards-backend/internal/models"
	"rewards-backend/internal/odds"
	"rewards-backend/internal/services"
)

type PlayHandler struct {
	engine *services.WagerEngine
}

func NewPlayHandler(engine *services.WagerEngine) *PlayHandler {
	return &PlayHandler{engine: engine}
}

func (h *PlayHandler) Play(c *gin.Context) {
	accountID := c.GetString("account_id")

	var req models.PlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	result, err := h.engine.Play(c.Request.Context(), accountID, req.StakeLevel)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

func (h *PlayHandler) GetBalance(c *gin.Context) {
	balance, err := h.engine.Balance(c.Request.Context(), c.GetString("account_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": balance,
	})
}

func (h *PlayHandler) GetHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultHistoryLimit)))
	if err != nil {
		limit = services.DefaultHistoryLimit
	}

	entries, err := h.engine.History(c.Request.Context(), c.GetString("account_id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []*models.HistoryEntry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"history": entries,
		"count":   len(entries),
	})
}

type oddsOutcome struct {
	ID      string          `json:"id"`
	Kind    odds.Kind       `json:"kind"`
	Payload string          `json:"payload,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
	Weight  int             `json:"weight_permille"`
}

func newOddsOutcome(o odds.Outcome) oddsOutcome {
	return oddsOutcome{
		ID:      o.ID,
		Kind:    o.Kind,
		Payload: o.Payload,
		Amount:  o.Amount,
		Weight:  o.Weight,
	}
}

type oddsTable struct {
	Level    string          `json:"level"`
	Stake    decimal.Decimal `json:"stake"`
	Outcomes []oddsOutcome   `json:"outcomes"`
}

// GetOdds publishes every table with its exact permille weights, loss included.
func (h *PlayHandler) GetOdds(c *gin.Context) {
	set := h.engine.Odds()

	tables := make([]oddsTable, 0, len(set.Levels()))
	for _, level := range set.Levels() {
		t, _ := set.Table(level)
		outcomes := make([]oddsOutcome, 0, len(t.Outcomes)+1)
		for _, o := range t.Outcomes {
			outcomes = append(outcomes, newOddsOutcome(o))
		}
		outcomes = append(outcomes, newOddsOutcome(t.Loss()))
		tables = append(tables, oddsTable{Level: t.Level, Stake: t.Stake, Outcomes: outcomes})
	}

	c.JSON(http.StatusOK, gin.H{
		"version": set.Version,
		"scale":   odds.Permille,
		"tables":  tables,
	})
}
