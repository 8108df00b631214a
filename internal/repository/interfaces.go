package repository

import (
	"context"
	"time"

	"github.com/fitgrid/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// TransactionRepository provides access to payment_transactions.
type TransactionRepository interface {
	// Create inserts a new pending transaction.
	Create(ctx context.Context, db DBTX, tx *domain.PaymentTransaction) error

	// FindByID returns a transaction scoped to its tenant.
	FindByID(ctx context.Context, db DBTX, tenantID, id uuid.UUID) (*domain.PaymentTransaction, error)

	// FindByCorrelation returns the most recently issued transaction for the
	// given rail and correlation key, any status. The lookup is gateway-wide:
	// the stored tenant id is authoritative, the webhook payload is not
	// trusted. At most one such transaction can be pending at a time.
	FindByCorrelation(ctx context.Context, db DBTX, rail domain.Rail, key string) (*domain.PaymentTransaction, error)

	// TransitionStatus conditionally moves a pending transaction to a terminal
	// state. Returns false when the row was no longer pending, so concurrent
	// deliveries race safely: exactly one caller observes true.
	TransitionStatus(ctx context.Context, db DBTX, id uuid.UUID, to domain.TransactionStatus, settledAt *time.Time) (bool, error)

	// ExpireBefore transitions all pending rows with expires_at < cutoff to
	// expired, using the same conditional discipline, and returns them.
	ExpireBefore(ctx context.Context, db DBTX, cutoff time.Time) ([]domain.PaymentTransaction, error)

	// ListByTenant returns a tenant's transactions, newest first.
	ListByTenant(ctx context.Context, db DBTX, tenantID uuid.UUID, limit int) ([]domain.PaymentTransaction, error)
}

// WebhookLogRepository provides access to the append-only webhook_log table.
type WebhookLogRepository interface {
	// Insert records a raw delivery before any transaction mutation.
	Insert(ctx context.Context, db DBTX, entry *domain.WebhookLogEntry) error

	// Finalize appends the processing outcome to an existing entry.
	Finalize(ctx context.Context, db DBTX, id uuid.UUID, outcome domain.WebhookOutcome, txID *uuid.UUID) error

	// ListUnmatched returns deliveries flagged for manual investigation.
	ListUnmatched(ctx context.Context, db DBTX, limit int) ([]domain.WebhookLogEntry, error)
}

// CredentialRepository provides access to gateway_credentials.
type CredentialRepository interface {
	// FindByTenantAndRail returns a tenant's credentials for one rail.
	FindByTenantAndRail(ctx context.Context, db DBTX, tenantID uuid.UUID, rail domain.Rail) (*domain.RailCredentials, error)

	// Upsert creates or replaces a tenant's per-rail credentials.
	Upsert(ctx context.Context, db DBTX, creds *domain.RailCredentials) error
}

// OutboxRepository provides the write side of the event_outbox table. The
// publish side lives with the poller, which owns the published_at marking.
type OutboxRepository interface {
	// Insert writes an outbox event.
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error
}
