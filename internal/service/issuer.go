package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fitgrid/platform/internal/domain"
	"github.com/fitgrid/platform/internal/gateway"
	"github.com/fitgrid/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Issuer obtains payment handles from the gateway and records the pending
// transaction rows the reconciler later settles.
type Issuer struct {
	pool   *pgxpool.Pool
	rails  *gateway.Registry
	txRepo repository.TransactionRepository
	creds  repository.CredentialRepository
	logger *slog.Logger
}

// NewIssuer creates an Issuer.
func NewIssuer(
	pool *pgxpool.Pool,
	rails *gateway.Registry,
	txRepo repository.TransactionRepository,
	creds repository.CredentialRepository,
	logger *slog.Logger,
) *Issuer {
	return &Issuer{pool: pool, rails: rails, txRepo: txRepo, creds: creds, logger: logger}
}

// IssueParams carries an issuance request.
type IssueParams struct {
	TenantID    uuid.UUID
	Rail        domain.Rail
	AmountCents int64
	IntentRef   *string
	PhoneNumber string // push rail only
}

// IssuedPayment is the caller-facing result of an issuance.
type IssuedPayment struct {
	TransactionID uuid.UUID   `json:"transaction_id"`
	Rail          domain.Rail `json:"rail"`
	AmountCents   int64       `json:"amount_cents"`
	Entity        string      `json:"entity,omitempty"`
	Reference     string      `json:"reference,omitempty"`
	RequestID     string      `json:"request_id,omitempty"`
	Status        string      `json:"status"`
	Message       string      `json:"message,omitempty"`
	ExpiresAt     time.Time   `json:"expires_at"`
}

// Issue validates the request, calls the gateway and persists the pending
// transaction. A row is written only when the gateway returned a handle:
// a failed call leaves nothing behind.
func (s *Issuer) Issue(ctx context.Context, params IssueParams) (*IssuedPayment, error) {
	if params.AmountCents <= 0 {
		return nil, domain.ErrValidation("amount must be positive")
	}
	if !params.Rail.Valid() {
		return nil, domain.ErrValidation("unknown rail")
	}

	creds, err := s.creds.FindByTenantAndRail(ctx, s.pool, params.TenantID, params.Rail)
	if err != nil {
		return nil, domain.ErrInternal("load gateway credentials", err)
	}
	if creds == nil || !creds.Enabled {
		return nil, domain.ErrRailNotConfigured(params.Rail)
	}

	adapter := s.rails.Adapter(params.Rail)
	if adapter == nil {
		return nil, domain.ErrRailNotConfigured(params.Rail)
	}

	txID := uuid.New()
	handle, err := adapter.Issue(ctx, creds, gateway.IssueRequest{
		// The order id is ours; embedding the transaction id lets callbacks
		// be cross-checked even if the gateway reuses correlation keys.
		OrderID:     txID.String(),
		AmountCents: params.AmountCents,
		PhoneNumber: params.PhoneNumber,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tx := &domain.PaymentTransaction{
		ID:              txID,
		TenantID:        params.TenantID,
		PaymentIntentID: params.IntentRef,
		Rail:            params.Rail,
		AmountCents:     params.AmountCents,
		CorrelationKey:  handle.CorrelationKey,
		Status:          domain.StatusPending,
		IssuedAt:        now,
		ExpiresAt:       now.Add(creds.ExpiryWindow()),
		GatewayMetadata: handle.RawResponse,
	}
	if handle.Entity != "" {
		entity := handle.Entity
		tx.Entity = &entity
	}

	if err := s.txRepo.Create(ctx, s.pool, tx); err != nil {
		// The gateway already holds a live handle for this key; surface the
		// failure so the caller retries rather than charging twice silently.
		s.logger.Error("record issued transaction", "error", err,
			"tenant_id", params.TenantID, "rail", params.Rail, "correlation_key", handle.CorrelationKey)
		return nil, domain.ErrInternal("record issued transaction", err)
	}

	s.logger.Info("payment issued",
		"transaction_id", tx.ID, "tenant_id", tx.TenantID,
		"rail", tx.Rail, "amount_cents", tx.AmountCents, "expires_at", tx.ExpiresAt)

	out := &IssuedPayment{
		TransactionID: tx.ID,
		Rail:          tx.Rail,
		AmountCents:   tx.AmountCents,
		Reference:     handle.CorrelationKey,
		Status:        string(domain.StatusPending),
		Message:       handle.Message,
		ExpiresAt:     tx.ExpiresAt,
	}
	if params.Rail == domain.RailReference {
		out.Entity = handle.Entity
	} else {
		out.Reference = ""
		out.RequestID = handle.RequestID
	}
	return out, nil
}

// GetTransaction returns a tenant-scoped transaction snapshot.
func (s *Issuer) GetTransaction(ctx context.Context, tenantID, id uuid.UUID) (*domain.PaymentTransaction, error) {
	tx, err := s.txRepo.FindByID(ctx, s.pool, tenantID, id)
	if err != nil {
		return nil, domain.ErrInternal("find transaction", err)
	}
	if tx == nil {
		return nil, domain.ErrNotFound("transaction", id.String())
	}
	return tx, nil
}

// ListTransactions returns a tenant's recent transactions.
func (s *Issuer) ListTransactions(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.PaymentTransaction, error) {
	txs, err := s.txRepo.ListByTenant(ctx, s.pool, tenantID, limit)
	if err != nil {
		return nil, domain.ErrInternal("list transactions", err)
	}
	return txs, nil
}
