package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"rewards-backend/internal/models"
)

// RedisStore keeps each account as one JSON document and relies on
// WATCH/MULTI/EXEC for optimistic concurrency.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, now: time.Now}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) ReadAccount(ctx context.Context, accountID string) (*models.Account, error) {
	return s.getAccount(ctx, s.client, accountID)
}

func (s *RedisStore) getAccount(ctx context.Context, r redisGetter, accountID string) (*models.Account, error) {
	data, err := r.Get(ctx, fmt.Sprintf(KeyAccount, accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return models.NewAccount(accountID, s.now().UTC()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	var account models.Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	if account.Collectibles == nil {
		account.Collectibles = []models.Item{}
	}
	return &account, nil
}

func (s *RedisStore) AdjustAccount(ctx context.Context, accountID string, adj models.Adjustment, expectedVersion int64) (*models.Account, error) {
	key := fmt.Sprintf(KeyAccount, accountID)

	var updated *models.Account
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		account, err := s.getAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if account.Version != expectedVersion {
			return ErrConflict
		}
		if !account.CanApply(adj) {
			return ErrInsufficientFunds
		}

		account.Apply(adj, s.now().UTC())
		data, err := json.Marshal(account)
		if err != nil {
			return fmt.Errorf("failed to marshal account: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = account
		return nil
	}, key)

	if err != nil {
		return nil, mapRedisErr(err)
	}
	return updated, nil
}

func (s *RedisStore) CreditDepositIfAbsent(ctx context.Context, accountID string, amount decimal.Decimal, txID string) (*models.DepositRecord, bool, error) {
	accountKey := fmt.Sprintf(KeyAccount, accountID)
	depositKey := fmt.Sprintf(KeyDeposit, txID)

	var (
		record  *models.DepositRecord
		applied bool
	)
	// Watching the deposit key makes two racing credits of one txID
	// abort all but the first EXEC.
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		existing, err := tx.Get(ctx, depositKey).Result()
		if err == nil {
			var rec models.DepositRecord
			if err := json.Unmarshal([]byte(existing), &rec); err != nil {
				return fmt.Errorf("failed to unmarshal deposit: %w", err)
			}
			record, applied = &rec, false
			return nil
		}
		if !errors.Is(err, redis.Nil) {
			return fmt.Errorf("failed to get deposit: %w", err)
		}

		account, err := s.getAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		account.Credit(amount, now)

		rec := &models.DepositRecord{
			ID:           models.GenerateDepositID(),
			AccountID:    accountID,
			Amount:       amount,
			TxID:         txID,
			BalanceAfter: account.Balance,
			AppliedAt:    now,
		}

		accountData, err := json.Marshal(account)
		if err != nil {
			return fmt.Errorf("failed to marshal account: %w", err)
		}
		depositData, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal deposit: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, accountKey, accountData, 0)
			pipe.Set(ctx, depositKey, depositData, 0)
			return nil
		})
		if err != nil {
			return err
		}
		record, applied = rec, true
		return nil
	}, accountKey, depositKey)

	if err != nil {
		return nil, false, mapRedisErr(err)
	}
	return record, applied, nil
}

func (s *RedisStore) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	indexKey := fmt.Sprintf(KeyAccountHistory, entry.AccountID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, fmt.Sprintf(KeyHistoryEntry, entry.ID), data, TTLHistoryEntry)
		pipe.ZAdd(ctx, indexKey, redis.Z{
			Score:  float64(entry.PlayedAt.UnixNano()),
			Member: entry.ID,
		})
		pipe.ZRemRangeByRank(ctx, indexKey, 0, -(HistoryRetention + 1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *RedisStore) ListHistory(ctx context.Context, accountID string, limit int) ([]*models.HistoryEntry, error) {
	limit = clampHistoryLimit(limit)

	ids, err := s.client.ZRevRange(ctx, fmt.Sprintf(KeyAccountHistory, accountID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get history ids: %w", err)
	}
	if len(ids) == 0 {
		return []*models.HistoryEntry{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyHistoryEntry, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	entries := make([]*models.HistoryEntry, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			// expired
			continue
		}
		var entry models.HistoryEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

func (s *RedisStore) SetChatID(ctx context.Context, accountID string, chatID int64) error {
	return s.client.HSet(ctx, KeyTelegramChats, accountID, chatID).Err()
}

func (s *RedisStore) ChatID(ctx context.Context, accountID string) (int64, error) {
	raw, err := s.client.HGet(ctx, KeyTelegramChats, accountID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrChatNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get chat id: %w", err)
	}
	return strconv.ParseInt(raw, 10, 64)
}

// CheckRateLimit counts action calls in a fixed window starting at the
// first call. The counter and its expiry are set in one transaction.
func (s *RedisStore) CheckRateLimit(ctx context.Context, accountID, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, action, accountID)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	return incr.Val() <= int64(limit), nil
}

func (s *RedisStore) ClearRateLimit(ctx context.Context, accountID, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, action, accountID)).Err()
}

// mapRedisErr reports an aborted EXEC as ErrConflict so the ledger retries it.
func mapRedisErr(err error) error {
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// DeleteAccount removes the account document and its history index.
func (s *RedisStore) DeleteAccount(ctx context.Context, accountID string) error {
	return s.client.Del(ctx,
		fmt.Sprintf(KeyAccount, accountID),
		fmt.Sprintf(KeyAccountHistory, accountID),
	).Err()
}

func (s *RedisStore) DeleteDeposit(ctx context.Context, txID string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyDeposit, txID)).Err()
}
