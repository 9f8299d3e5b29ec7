// Package app assembles the ledger, engine and stores shared by the API
// server and the bot.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"rewards-backend/internal/config"
	"rewards-backend/internal/odds"
	"rewards-backend/internal/services"
)

const notifyTimeout = 5 * time.Second

type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	Store    services.AccountStore
	Chats    services.ChatDirectory
	Limiter  services.RateLimiter
	Odds     *odds.Set
	Metrics  *services.Metrics
	Ledger   *services.Ledger
	Notifier *services.Fanout
	Engine   *services.WagerEngine
	Deposits *services.DepositIntake
}

// Build opens the configured store and wires every service on top of it.
// Sinks are registered on Notifier afterwards by the caller.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger, reg prometheus.Registerer) (*Deps, error) {
	set, err := LoadOdds(cfg, log)
	if err != nil {
		return nil, err
	}

	store, chats, limiter, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	metrics := services.NewMetrics(reg)
	ledger := services.NewLedger(store, log.Named("ledger"), metrics,
		services.WithMaxAttempts(cfg.LedgerMaxAttempts))
	fanout := services.NewFanout(log.Named("notify"), notifyTimeout)

	return &Deps{
		Config:   cfg,
		Log:      log,
		Store:    store,
		Chats:    chats,
		Limiter:  limiter,
		Odds:     set,
		Metrics:  metrics,
		Ledger:   ledger,
		Notifier: fanout,
		Engine:   services.NewWagerEngine(set, ledger, store, fanout, log.Named("engine"), metrics),
		Deposits: services.NewDepositIntake(ledger, fanout, log.Named("deposits"), metrics, cfg.MaxDeposit),
	}, nil
}

func (d *Deps) Close() error {
	return d.Store.Close()
}

// LoadOdds reads ODDS_FILE, or the built-in tables when it is unset.
func LoadOdds(cfg *config.Config, log *zap.Logger) (*odds.Set, error) {
	var (
		set *odds.Set
		err error
	)
	if cfg.OddsFile == "" {
		set, err = odds.Default()
	} else {
		set, err = odds.LoadFile(cfg.OddsFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load odds: %w", err)
	}

	log.Info("odds loaded",
		zap.String("version", set.Version),
		zap.Strings("levels", set.Levels()),
		zap.String("file", cfg.OddsFile))
	return set, nil
}

// OpenStore returns the account store, the chat directory and, for Redis
// only, a rate limiter. The limiter is a nil interface for SQLite.
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (services.AccountStore, services.ChatDirectory, services.RateLimiter, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		store, err := services.OpenSQLite(cfg.SQLitePath, log.Named("sqlite"))
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("using sqlite store", zap.String("path", cfg.SQLitePath))
		return store, store, nil, nil

	case config.StoreRedis:
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		store, err := services.NewRedisStore(pingCtx, services.RedisOptions{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("using redis store", zap.String("addr", cfg.RedisURL), zap.Int("db", cfg.RedisDB))
		return store, store, store, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
