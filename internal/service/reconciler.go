package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fitgrid/platform/internal/domain"
	"github.com/fitgrid/platform/internal/gateway"
	"github.com/fitgrid/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReconcileOutcome describes how a notification was reconciled.
type ReconcileOutcome string

const (
	// OutcomeSettled means this delivery won the transition out of pending.
	OutcomeSettled ReconcileOutcome = "settled"
	// OutcomeAlreadyTerminal means the transaction was already settled,
	// failed or expired; redeliveries land here and change nothing.
	OutcomeAlreadyTerminal ReconcileOutcome = "already_terminal"
	// OutcomeUnmatched means no transaction matched the correlation key.
	OutcomeUnmatched ReconcileOutcome = "unmatched"
)

// Reconciler matches inbound gateway notifications to stored transactions
// and advances their state exactly once.
type Reconciler struct {
	pool    *pgxpool.Pool
	txRepo  repository.TransactionRepository
	logRepo repository.WebhookLogRepository
	outbox  repository.OutboxRepository
	logger  *slog.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(
	pool *pgxpool.Pool,
	txRepo repository.TransactionRepository,
	logRepo repository.WebhookLogRepository,
	outbox repository.OutboxRepository,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{pool: pool, txRepo: txRepo, logRepo: logRepo, outbox: outbox, logger: logger}
}

// Ingest processes one raw gateway delivery. The audit log entry is written
// before anything else, so no notification is ever silently lost. Parse
// failures are returned to the transport layer (client error); match
// failures are not errors, only logged outcomes.
func (r *Reconciler) Ingest(ctx context.Context, rawPayload []byte) (*domain.WebhookLogEntry, ReconcileOutcome, error) {
	entry := &domain.WebhookLogEntry{
		ID:         uuid.New(),
		RawPayload: string(rawPayload),
		ReceivedAt: time.Now(),
	}
	if err := r.logRepo.Insert(ctx, r.pool, entry); err != nil {
		// Store unreachable: fail loudly so the gateway redelivers later.
		return nil, "", domain.ErrInternal("record webhook delivery", err)
	}

	notification, err := gateway.ParseNotification(rawPayload)
	if err != nil {
		r.finalize(ctx, entry.ID, domain.OutcomeError, nil)
		return entry, "", err
	}

	outcome, txID, err := r.Reconcile(ctx, notification)
	if err != nil {
		// Store failure mid-reconcile: the 5xx makes the gateway redeliver,
		// the log entry keeps the payload for replay either way.
		r.finalize(ctx, entry.ID, domain.OutcomeError, txID)
		return entry, "", domain.ErrInternal("reconcile webhook delivery", err)
	}

	logOutcome := domain.OutcomeMatched
	if outcome == OutcomeUnmatched {
		logOutcome = domain.OutcomeUnmatched
	}
	r.finalize(ctx, entry.ID, logOutcome, txID)
	return entry, outcome, nil
}

// Reconcile looks up the pending transaction for the notification's
// correlation key and applies the rail-specific status mapping with a
// conditional update, so concurrent deliveries race safely. A non-nil error
// means the store failed mid-reconcile; the caller must not ack the delivery.
func (r *Reconciler) Reconcile(ctx context.Context, n *domain.Notification) (ReconcileOutcome, *uuid.UUID, error) {
	rail := n.Rail()
	key := n.CorrelationKey()

	tx, err := r.txRepo.FindByCorrelation(ctx, r.pool, rail, key)
	if err != nil {
		r.logger.Error("correlation lookup failed", "error", err, "rail", rail, "correlation_key", key)
		return "", nil, fmt.Errorf("correlation lookup: %w", err)
	}
	if tx == nil {
		r.logger.Warn("webhook matched no transaction", "rail", rail, "correlation_key", key)
		return OutcomeUnmatched, nil, nil
	}

	// The stored tenant is authoritative. A stored entity that disagrees
	// with the callback means gateway key reuse across sandboxes: refuse.
	if rail == domain.RailReference && tx.Entity != nil && n.Reference.Entity != "" && *tx.Entity != n.Reference.Entity {
		r.logger.Warn("webhook entity mismatch",
			"transaction_id", tx.ID, "stored_entity", *tx.Entity, "payload_entity", n.Reference.Entity)
		return OutcomeUnmatched, nil, nil
	}

	if tx.Status.Terminal() {
		// Gateway retry storms land here constantly; redelivery of a settled
		// notification is a no-op, never a second settlement.
		return OutcomeAlreadyTerminal, &tx.ID, nil
	}

	rawStatus := ""
	var notifCents int64
	if n.Kind == domain.NotificationPush {
		rawStatus = n.Push.RawStatus
		notifCents = n.Push.AmountCents
	} else {
		notifCents = n.Reference.AmountCents
	}
	target, ok := domain.MapRawStatus(rail, rawStatus)
	if !ok {
		r.logger.Warn("unknown gateway status code", "transaction_id", tx.ID, "raw_status", rawStatus)
		return OutcomeUnmatched, nil, nil
	}

	var settledAt *time.Time
	if target == domain.StatusPaid {
		now := time.Now()
		settledAt = &now
	}

	won, err := r.txRepo.TransitionStatus(ctx, r.pool, tx.ID, target, settledAt)
	if err != nil {
		r.logger.Error("status transition failed", "error", err, "transaction_id", tx.ID)
		return "", &tx.ID, fmt.Errorf("transition status: %w", err)
	}
	if !won {
		// A concurrent delivery or the sweeper got there first.
		return OutcomeAlreadyTerminal, &tx.ID, nil
	}

	if notifCents > 0 && notifCents != tx.AmountCents {
		// The stored amount stays authoritative; the discrepancy goes to the
		// audit trail for the operator.
		r.logger.Warn("callback amount differs from issued amount",
			"transaction_id", tx.ID, "issued_cents", tx.AmountCents, "callback_cents", notifCents)
	}

	tx.Status = target
	tx.SettledAt = settledAt
	r.logger.Info("transaction reconciled",
		"transaction_id", tx.ID, "tenant_id", tx.TenantID, "rail", rail, "status", target)

	if target == domain.StatusPaid {
		// Exactly one delivery reaches this point per transaction; the
		// conditional update above is the idempotency guarantee, not this call.
		if err := r.outbox.Insert(ctx, r.pool, domain.NewPaymentSettledEvent(tx)); err != nil {
			r.logger.Error("record settlement event", "error", err, "transaction_id", tx.ID)
		}
	}

	return OutcomeSettled, &tx.ID, nil
}

func (r *Reconciler) finalize(ctx context.Context, id uuid.UUID, outcome domain.WebhookOutcome, txID *uuid.UUID) {
	if err := r.logRepo.Finalize(ctx, r.pool, id, outcome, txID); err != nil {
		r.logger.Error("finalize webhook log entry", "error", err, "entry_id", id)
	}
}

// ListUnmatched returns webhook deliveries flagged for manual investigation.
func (r *Reconciler) ListUnmatched(ctx context.Context, limit int) ([]domain.WebhookLogEntry, error) {
	entries, err := r.logRepo.ListUnmatched(ctx, r.pool, limit)
	if err != nil {
		return nil, domain.ErrInternal("list unmatched webhooks", err)
	}
	return entries, nil
}
