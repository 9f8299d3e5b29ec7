package services_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"rewards-backend/internal/models"
	"rewards-backend/internal/odds"
	"rewards-backend/internal/services"
)

func testLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
}

func newTestStore(t *testing.T) *services.SQLiteStore {
	t.Helper()

	store, err := services.OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"), testLogger(t))
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// testOdds has one level "unit" with stake 1: draws 0-99 pay 2, draws
// 100-199 win a gem, everything else loses.
func testOdds(t *testing.T) *odds.Set {
	t.Helper()

	set, err := odds.Load(odds.Config{
		Version: "test",
		Tables: []odds.TableConfig{{
			Level: "unit",
			Stake: decimal.NewFromInt(1),
			Outcomes: []odds.Outcome{
				{ID: "coin", Kind: odds.KindCurrency, Amount: decimal.NewFromInt(2), Weight: 100},
				{ID: "gem", Kind: odds.KindCollectible, Payload: "gem", Weight: 100},
			},
			LossWeight: 800,
		}},
	})
	if err != nil {
		t.Fatalf("Failed to load odds: %v", err)
	}
	return set
}

const (
	drawCoin = 0
	drawGem  = 150
	drawLoss = 500
)

type fixedRNG int

func (f fixedRNG) IntN(int) int { return int(f) }

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.Event
	ch     chan models.Event
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan models.Event, 64)}
}

func (r *recordingNotifier) Notify(_ context.Context, _ string, event models.Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	select {
	case r.ch <- event:
	default:
	}
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recordingNotifier) wait(t *testing.T) models.Event {
	t.Helper()
	select {
	case ev := <-r.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for notification")
		return models.Event{}
	}
}

type engineFixture struct {
	store    *services.SQLiteStore
	ledger   *services.Ledger
	engine   *services.WagerEngine
	deposits *services.DepositIntake
	notifier *recordingNotifier
}

func newEngineFixture(t *testing.T, rng odds.RNG) *engineFixture {
	t.Helper()

	log := testLogger(t)
	metrics := services.NewMetrics(nil)
	store := newTestStore(t)
	ledger := services.NewLedger(store, log, metrics,
		services.WithMaxAttempts(50),
		services.WithBackoff(time.Millisecond, 10*time.Millisecond))
	notifier := newRecordingNotifier()

	return &engineFixture{
		store:    store,
		ledger:   ledger,
		engine:   services.NewWagerEngine(testOdds(t), ledger, store, notifier, log, metrics, services.WithRNG(rng)),
		deposits: services.NewDepositIntake(ledger, notifier, log, metrics, decimal.NewFromInt(1_000_000)),
		notifier: notifier,
	}
}

func (f *engineFixture) fund(t *testing.T, accountID string, amount int64) {
	t.Helper()
	res, err := f.deposits.Deposit(context.Background(), accountID, decimal.NewFromInt(amount), "fund_"+accountID)
	if err != nil || !res.Applied {
		t.Fatalf("Failed to fund %s: %v", accountID, err)
	}
	f.notifier.wait(t)
}
