package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rewards-backend/internal/models"
)

const (
	// TON amounts carry at most nine decimal places.
	maxDepositPlaces = 9
	maxTxIDLength    = 128
)

type DepositIntake struct {
	ledger    *Ledger
	notifier  Notifier
	log       *zap.Logger
	metrics   *Metrics
	maxAmount decimal.Decimal
}

func NewDepositIntake(ledger *Ledger, notifier Notifier, log *zap.Logger, metrics *Metrics, maxAmount decimal.Decimal) *DepositIntake {
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &DepositIntake{
		ledger:    ledger,
		notifier:  notifier,
		log:       log,
		metrics:   metrics,
		maxAmount: maxAmount,
	}
}

// Deposit credits amount to the account once per txID.
func (d *DepositIntake) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, txID string) (*models.DepositResult, error) {
	accountID = strings.TrimSpace(accountID)
	txID = strings.TrimSpace(txID)

	if accountID == "" {
		return nil, ErrInvalidAccount
	}
	if err := d.validateAmount(amount); err != nil {
		return nil, err
	}
	if txID == "" || len(txID) > maxTxIDLength {
		return nil, ErrInvalidTxID
	}

	record, applied, err := d.ledger.RecordDeposit(ctx, accountID, amount, txID)
	if err != nil {
		return nil, err
	}

	d.metrics.Deposits.WithLabelValues(boolLabel(applied)).Inc()

	if !applied {
		if record.AccountID != accountID || !record.Amount.Equal(amount) {
			d.log.Warn("deposit tx id replayed with different details",
				zap.String("tx_id", txID),
				zap.String("account_id", accountID),
				zap.String("recorded_account_id", record.AccountID),
				zap.String("amount", amount.String()),
				zap.String("recorded_amount", record.Amount.String()))
		}
		return &models.DepositResult{NewBalance: record.BalanceAfter, Applied: false, Record: record}, nil
	}

	d.log.Info("deposit applied",
		zap.String("account_id", accountID),
		zap.String("tx_id", txID),
		zap.String("amount", amount.String()))

	go d.notifier.Notify(context.WithoutCancel(ctx), accountID, models.Event{
		Type:      models.EventDeposited,
		AccountID: accountID,
		Deposit:   record,
		At:        time.Now().UTC(),
	})

	return &models.DepositResult{NewBalance: record.BalanceAfter, Applied: true, Record: record}, nil
}

func (d *DepositIntake) validateAmount(amount decimal.Decimal) error {
	switch {
	case !amount.IsPositive():
		return ErrInvalidAmount
	case amount.GreaterThan(d.maxAmount):
		return ErrInvalidAmount
	case !amount.Equal(amount.Truncate(maxDepositPlaces)):
		return ErrInvalidAmount
	}
	return nil
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
