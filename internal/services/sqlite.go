package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rewards-backend/internal/models"
)

// SQLiteStore keeps accounts in a local SQLite file. Money columns are
// decimal strings; times are unix nanoseconds.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens path with WAL and immediate write transactions, then
// applies the embedded migrations.
func OpenSQLite(path string, log *zap.Logger) (*SQLiteStore, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if err := Migrate(db, Migrations(), log); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migration failed: %w", err)
	}
	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) ReadAccount(ctx context.Context, accountID string) (*models.Account, error) {
	return s.readAccount(ctx, s.db, accountID)
}

func (s *SQLiteStore) readAccount(ctx context.Context, q queryer, accountID string) (*models.Account, error) {
	var (
		balance, deposited, withdrawn string
		version, createdAt, updatedAt int64
	)
	err := q.QueryRowContext(ctx, `
		SELECT balance, total_deposited, total_withdrawn, version, created_at, updated_at
		FROM accounts
		WHERE id = ?`, accountID).Scan(&balance, &deposited, &withdrawn, &version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewAccount(accountID, s.now().UTC()), nil
	}
	if err != nil {
		return nil, mapSQLiteErr(err)
	}

	account := &models.Account{
		ID:        accountID,
		Version:   version,
		CreatedAt: time.Unix(0, createdAt).UTC(),
		UpdatedAt: time.Unix(0, updatedAt).UTC(),
	}
	if account.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("corrupt balance for %s: %w", accountID, err)
	}
	if account.TotalDeposited, err = decimal.NewFromString(deposited); err != nil {
		return nil, fmt.Errorf("corrupt total_deposited for %s: %w", accountID, err)
	}
	if account.TotalWithdrawn, err = decimal.NewFromString(withdrawn); err != nil {
		return nil, fmt.Errorf("corrupt total_withdrawn for %s: %w", accountID, err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, outcome_id, payload, stake_level, won_at
		FROM collectibles
		WHERE account_id = ?
		ORDER BY rowid`, accountID)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	account.Collectibles = []models.Item{}
	for rows.Next() {
		var item models.Item
		var wonAt int64
		if err := rows.Scan(&item.ID, &item.OutcomeID, &item.Payload, &item.StakeLevel, &wonAt); err != nil {
			return nil, err
		}
		item.WonAt = time.Unix(0, wonAt).UTC()
		account.Collectibles = append(account.Collectibles, item)
	}
	return account, rows.Err()
}

func (s *SQLiteStore) AdjustAccount(ctx context.Context, accountID string, adj models.Adjustment, expectedVersion int64) (*models.Account, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer tx.Rollback()

	account, err := s.readAccount(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if account.Version != expectedVersion {
		return nil, ErrConflict
	}
	if !account.CanApply(adj) {
		return nil, ErrInsufficientFunds
	}

	account.Apply(adj, s.now().UTC())
	if err := s.saveAccount(ctx, tx, account, expectedVersion); err != nil {
		return nil, err
	}

	for _, item := range adj.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO collectibles (id, account_id, outcome_id, payload, stake_level, won_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			item.ID, accountID, item.OutcomeID, item.Payload, item.StakeLevel, item.WonAt.UnixNano())
		if err != nil {
			return nil, mapSQLiteErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapSQLiteErr(err)
	}
	return account, nil
}

func (s *SQLiteStore) CreditDepositIfAbsent(ctx context.Context, accountID string, amount decimal.Decimal, txID string) (*models.DepositRecord, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, mapSQLiteErr(err)
	}
	defer tx.Rollback()

	account, err := s.readAccount(ctx, tx, accountID)
	if err != nil {
		return nil, false, err
	}
	expectedVersion := account.Version

	now := s.now().UTC()
	account.Credit(amount, now)

	record := &models.DepositRecord{
		ID:           models.GenerateDepositID(),
		AccountID:    accountID,
		Amount:       amount,
		TxID:         txID,
		BalanceAfter: account.Balance,
		AppliedAt:    now,
	}

	// The primary key on tx_id is the dedup: the insert and the credit
	// commit together or not at all.
	res, err := tx.ExecContext(ctx, `
		INSERT INTO deposits (tx_id, id, account_id, amount, balance_after, applied_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tx_id) DO NOTHING`,
		txID, record.ID, accountID, amount.String(), record.BalanceAfter.String(), now.UnixNano())
	if err != nil {
		return nil, false, mapSQLiteErr(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, false, err
	} else if n == 0 {
		existing, err := s.readDeposit(ctx, tx, txID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	if err := s.saveAccount(ctx, tx, account, expectedVersion); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, mapSQLiteErr(err)
	}
	return record, true, nil
}

func (s *SQLiteStore) readDeposit(ctx context.Context, q queryer, txID string) (*models.DepositRecord, error) {
	var (
		rec                  models.DepositRecord
		amount, balanceAfter string
		appliedAt            int64
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, account_id, amount, balance_after, applied_at
		FROM deposits
		WHERE tx_id = ?`, txID).Scan(&rec.ID, &rec.AccountID, &amount, &balanceAfter, &appliedAt)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	rec.TxID = txID
	rec.AppliedAt = time.Unix(0, appliedAt).UTC()
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("corrupt deposit amount for %s: %w", txID, err)
	}
	if rec.BalanceAfter, err = decimal.NewFromString(balanceAfter); err != nil {
		return nil, fmt.Errorf("corrupt deposit balance for %s: %w", txID, err)
	}
	return &rec, nil
}

// saveAccount writes account only if the stored row is still at
// expectedVersion; version 0 means the row must not exist yet.
func (s *SQLiteStore) saveAccount(ctx context.Context, tx *sql.Tx, account *models.Account, expectedVersion int64) error {
	var (
		res sql.Result
		err error
	)
	if expectedVersion == 0 {
		res, err = tx.ExecContext(ctx, `
			INSERT INTO accounts (id, balance, total_deposited, total_withdrawn, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			account.ID, account.Balance.String(), account.TotalDeposited.String(), account.TotalWithdrawn.String(),
			account.Version, account.CreatedAt.UnixNano(), account.UpdatedAt.UnixNano())
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE accounts
			SET balance = ?, total_deposited = ?, total_withdrawn = ?, version = ?, updated_at = ?
			WHERE id = ? AND version = ?`,
			account.Balance.String(), account.TotalDeposited.String(), account.TotalWithdrawn.String(),
			account.Version, account.UpdatedAt.UnixNano(), account.ID, expectedVersion)
	}
	if err != nil {
		return mapSQLiteErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

func (s *SQLiteStore) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (id, account_id, stake_level, stake_amount, outcome_id, outcome_kind, payload, net_delta, balance_after, played_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.AccountID, entry.StakeLevel, entry.StakeAmount.String(), entry.OutcomeID,
		entry.OutcomeKind, entry.Payload, entry.NetDelta.String(), entry.BalanceAfter.String(), entry.PlayedAt.UnixNano())
	return mapSQLiteErr(err)
}

func (s *SQLiteStore) ListHistory(ctx context.Context, accountID string, limit int) ([]*models.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stake_level, stake_amount, outcome_id, outcome_kind, payload, net_delta, balance_after, played_at
		FROM history
		WHERE account_id = ?
		ORDER BY played_at DESC, rowid DESC
		LIMIT ?`, accountID, clampHistoryLimit(limit))
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		var (
			e                             models.HistoryEntry
			stake, netDelta, balanceAfter string
			playedAt                      int64
		)
		if err := rows.Scan(&e.ID, &e.StakeLevel, &stake, &e.OutcomeID, &e.OutcomeKind, &e.Payload, &netDelta, &balanceAfter, &playedAt); err != nil {
			return nil, err
		}
		e.AccountID = accountID
		e.PlayedAt = time.Unix(0, playedAt).UTC()
		if e.StakeAmount, err = decimal.NewFromString(stake); err != nil {
			return nil, err
		}
		if e.NetDelta, err = decimal.NewFromString(netDelta); err != nil {
			return nil, err
		}
		if e.BalanceAfter, err = decimal.NewFromString(balanceAfter); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) SetChatID(ctx context.Context, accountID string, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO telegram_chats (account_id, chat_id) VALUES (?, ?)
		ON CONFLICT(account_id) DO UPDATE SET chat_id = excluded.chat_id`,
		accountID, chatID)
	return mapSQLiteErr(err)
}

func (s *SQLiteStore) ChatID(ctx context.Context, accountID string) (int64, error) {
	var chatID int64
	err := s.db.QueryRowContext(ctx, `SELECT chat_id FROM telegram_chats WHERE account_id = ?`, accountID).Scan(&chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrChatNotFound
	}
	return chatID, mapSQLiteErr(err)
}

// mapSQLiteErr turns lock contention and lost uniqueness races into
// ErrConflict so the ledger retries them.
func mapSQLiteErr(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.Code == sqlite3.ErrBusy, sqliteErr.Code == sqlite3.ErrLocked:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey,
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}
