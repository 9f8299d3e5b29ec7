package models_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"rewards-backend/internal/models"
)

func TestAccountMutations(t *testing.T) {
	now := time.Now()
	account := models.NewAccount("alice", now)

	if !account.Balance.IsZero() || len(account.Collectibles) != 0 || account.Version != 0 {
		t.Fatalf("new account should be empty, got %+v", account)
	}

	account.Credit(decimal.NewFromInt(10), now)
	if !account.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("balance after credit = %s, want 10", account.Balance)
	}
	if !account.TotalDeposited.Equal(decimal.NewFromInt(10)) {
		t.Errorf("total deposited = %s, want 10", account.TotalDeposited)
	}

	if account.CanApply(models.Adjustment{Delta: decimal.NewFromInt(-11)}) {
		t.Error("debit of 11 from 10 should not be allowed")
	}
	if !account.CanApply(models.Adjustment{Delta: decimal.NewFromInt(-10)}) {
		t.Error("debit of the full balance should be allowed")
	}
	// a winning play still needs the stake up front
	if account.CanApply(models.Adjustment{Delta: decimal.NewFromInt(5), Hold: decimal.NewFromInt(11)}) {
		t.Error("hold above balance should not be allowed")
	}

	item := models.Item{ID: models.GenerateItemID(), OutcomeID: "epic_skin", Payload: "skin:epic"}
	account.Apply(models.Adjustment{Delta: decimal.NewFromInt(-4), Hold: decimal.NewFromInt(4), Items: []models.Item{item}}, now)
	if !account.Balance.Equal(decimal.NewFromInt(6)) {
		t.Errorf("balance after apply = %s, want 6", account.Balance)
	}
	if len(account.Collectibles) != 1 || account.Collectibles[0].OutcomeID != "epic_skin" {
		t.Errorf("collectibles = %+v", account.Collectibles)
	}
	if account.Version != 2 {
		t.Errorf("version = %d, want 2", account.Version)
	}
}

func TestGeneratedIDs(t *testing.T) {
	if id := models.GenerateHistoryID(); !strings.HasPrefix(id, "play_") {
		t.Errorf("history id %q", id)
	}
	if id := models.GenerateDepositID(); !strings.HasPrefix(id, "dep_") {
		t.Errorf("deposit id %q", id)
	}
	if models.GenerateItemID() == models.GenerateItemID() {
		t.Error("item ids should be unique")
	}
}

func TestTelegramName(t *testing.T) {
	tests := []struct {
		username, first, last string
		want                  string
	}{
		{"nestor", "Nes", "Tor", "nestor"},
		{"", "Nes", "Tor", "Nes_Tor"},
		{"", "Nes", "", "Nes"},
		{"", "", "Tor", "Unknown_User"},
		{"", "", "", "Unknown_User"},
	}
	for _, tt := range tests {
		if got := models.TelegramName(tt.username, tt.first, tt.last); got != tt.want {
			t.Errorf("TelegramName(%q, %q, %q) = %q, want %q", tt.username, tt.first, tt.last, got, tt.want)
		}
	}
}
