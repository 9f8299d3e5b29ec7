package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rewards-backend/internal/app"
	"rewards-backend/internal/config"
	"rewards-backend/internal/handlers"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Env:               "test",
		StoreDriver:       config.StoreSQLite,
		SQLitePath:        filepath.Join(t.TempDir(), "app.db"),
		JWTSecret:         "secret",
		JWTTTL:            time.Hour,
		APIKey:            "key",
		BotToken:          "123:abc",
		MaxDeposit:        decimal.NewFromInt(1000),
		LedgerMaxAttempts: 5,
		PlayRateLimit:     30,
	}
}

func TestBuildAndRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	deps, err := app.Build(ctx, testConfig(t), zap.NewNop(), reg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer deps.Close()

	if deps.Limiter != nil {
		t.Error("SQLite deployments should run without a limiter")
	}

	hub := handlers.NewWebSocketHub(zap.NewNop())
	go hub.Run(ctx)
	router := app.NewRouter(deps, hub, reg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	var health map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil || health["status"] != "ok" {
		t.Errorf("Unexpected health response %d %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/internal/deposits",
		strings.NewReader(`{"account_id":"ivan","amount":"3","tx_id":"tx_ivan"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "key")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Deposit failed: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `rewards_deposits_total{applied="true"} 1`) {
		t.Errorf("Expected deposit counter in metrics, got %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/balance", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}
}

func TestLoadOddsFromFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.OddsFile = filepath.Join(t.TempDir(), "missing.json")

	if _, err := app.LoadOdds(cfg, zap.NewNop()); err == nil {
		t.Error("Expected error for missing odds file")
	}

	cfg.OddsFile = ""
	set, err := app.LoadOdds(cfg, zap.NewNop())
	if err != nil || len(set.Levels()) == 0 {
		t.Errorf("Expected built-in odds, got %v", err)
	}
}
