package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fitgrid/platform/internal/domain"
	"github.com/fitgrid/platform/internal/infra"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type transactionRepo struct{}

// NewTransactionRepository returns a pgx-backed TransactionRepository.
func NewTransactionRepository() TransactionRepository {
	return &transactionRepo{}
}

const txColumns = `id, tenant_id, payment_intent_id, rail, amount, correlation_key,
	       entity, status, issued_at, expires_at, settled_at, gateway_metadata`

func (r *transactionRepo) Create(ctx context.Context, db DBTX, tx *domain.PaymentTransaction) error {
	meta := tx.GatewayMetadata
	if meta == nil {
		meta = json.RawMessage(`{}`)
	}
	_, err := db.Exec(ctx, `
		INSERT INTO payment_transactions
		  (id, tenant_id, payment_intent_id, rail, amount, correlation_key,
		   entity, status, issued_at, expires_at, gateway_metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		tx.ID, tx.TenantID, tx.PaymentIntentID, string(tx.Rail),
		infra.Int64ToNumeric(tx.AmountCents), tx.CorrelationKey,
		tx.Entity, string(tx.Status), tx.IssuedAt, tx.ExpiresAt, meta,
	)
	if err != nil {
		return fmt.Errorf("insert payment transaction: %w", err)
	}
	return nil
}

func (r *transactionRepo) FindByID(ctx context.Context, db DBTX, tenantID, id uuid.UUID) (*domain.PaymentTransaction, error) {
	row := db.QueryRow(ctx, `
		SELECT `+txColumns+`
		FROM payment_transactions WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanTransaction(row)
}

func (r *transactionRepo) FindByCorrelation(ctx context.Context, db DBTX, rail domain.Rail, key string) (*domain.PaymentTransaction, error) {
	row := db.QueryRow(ctx, `
		SELECT `+txColumns+`
		FROM payment_transactions
		WHERE rail = $1 AND correlation_key = $2
		ORDER BY issued_at DESC
		LIMIT 1`,
		string(rail), key)
	return scanTransaction(row)
}

func (r *transactionRepo) TransitionStatus(ctx context.Context, db DBTX, id uuid.UUID, to domain.TransactionStatus, settledAt *time.Time) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE payment_transactions
		SET status = $2, settled_at = $3
		WHERE id = $1 AND status = 'pending'`,
		id, string(to), settledAt)
	if err != nil {
		return false, fmt.Errorf("transition transaction status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *transactionRepo) ExpireBefore(ctx context.Context, db DBTX, cutoff time.Time) ([]domain.PaymentTransaction, error) {
	rows, err := db.Query(ctx, `
		UPDATE payment_transactions
		SET status = 'expired'
		WHERE status = 'pending' AND expires_at < $1
		RETURNING `+txColumns, cutoff)
	if err != nil {
		return nil, fmt.Errorf("expire pending transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (r *transactionRepo) ListByTenant(ctx context.Context, db DBTX, tenantID uuid.UUID, limit int) ([]domain.PaymentTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := db.Query(ctx, `
		SELECT `+txColumns+`
		FROM payment_transactions WHERE tenant_id = $1
		ORDER BY issued_at DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("query tenant transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func scanTransaction(row pgx.Row) (*domain.PaymentTransaction, error) {
	var tx domain.PaymentTransaction
	var amountNum pgtype.Numeric
	err := row.Scan(
		&tx.ID, &tx.TenantID, &tx.PaymentIntentID, &tx.Rail, &amountNum,
		&tx.CorrelationKey, &tx.Entity, &tx.Status, &tx.IssuedAt,
		&tx.ExpiresAt, &tx.SettledAt, &tx.GatewayMetadata,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan payment transaction: %w", err)
	}
	tx.AmountCents, err = infra.NumericToInt64(amountNum)
	if err != nil {
		return nil, fmt.Errorf("convert transaction amount: %w", err)
	}
	return &tx, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.PaymentTransaction, error) {
	var txs []domain.PaymentTransaction
	for rows.Next() {
		var tx domain.PaymentTransaction
		var amountNum pgtype.Numeric
		err := rows.Scan(
			&tx.ID, &tx.TenantID, &tx.PaymentIntentID, &tx.Rail, &amountNum,
			&tx.CorrelationKey, &tx.Entity, &tx.Status, &tx.IssuedAt,
			&tx.ExpiresAt, &tx.SettledAt, &tx.GatewayMetadata,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		tx.AmountCents, err = infra.NumericToInt64(amountNum)
		if err != nil {
			return nil, fmt.Errorf("convert transaction amount: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
