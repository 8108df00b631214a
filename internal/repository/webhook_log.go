package repository

import (
	"context"
	"fmt"

	"github.com/fitgrid/platform/internal/domain"
	"github.com/google/uuid"
)

type webhookLogRepo struct{}

// NewWebhookLogRepository returns a pgx-backed WebhookLogRepository.
func NewWebhookLogRepository() WebhookLogRepository {
	return &webhookLogRepo{}
}

func (r *webhookLogRepo) Insert(ctx context.Context, db DBTX, entry *domain.WebhookLogEntry) error {
	_, err := db.Exec(ctx, `
		INSERT INTO webhook_log (id, raw_payload, received_at)
		VALUES ($1, $2, $3)`,
		entry.ID, entry.RawPayload, entry.ReceivedAt)
	if err != nil {
		return fmt.Errorf("insert webhook log entry: %w", err)
	}
	return nil
}

func (r *webhookLogRepo) Finalize(ctx context.Context, db DBTX, id uuid.UUID, outcome domain.WebhookOutcome, txID *uuid.UUID) error {
	// Append-only: the outcome is written once, onto a row that has none yet.
	_, err := db.Exec(ctx, `
		UPDATE webhook_log
		SET outcome = $2, transaction_id = $3, processed_at = now()
		WHERE id = $1 AND processed_at IS NULL`,
		id, string(outcome), txID)
	if err != nil {
		return fmt.Errorf("finalize webhook log entry: %w", err)
	}
	return nil
}

func (r *webhookLogRepo) ListUnmatched(ctx context.Context, db DBTX, limit int) ([]domain.WebhookLogEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
		SELECT id, raw_payload, received_at, transaction_id, outcome, processed_at
		FROM webhook_log
		WHERE outcome IN ('unmatched', 'error')
		ORDER BY received_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unmatched webhooks: %w", err)
	}
	defer rows.Close()

	var entries []domain.WebhookLogEntry
	for rows.Next() {
		var e domain.WebhookLogEntry
		if err := rows.Scan(&e.ID, &e.RawPayload, &e.ReceivedAt, &e.TransactionID, &e.Outcome, &e.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan webhook log row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
