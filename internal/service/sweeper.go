package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fitgrid/platform/internal/domain"
	"github.com/fitgrid/platform/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sweeper periodically expires pending transactions past their expiry
// window. It uses the same conditional-update discipline as the reconciler:
// a webhook that settled a row first is never overwritten.
type Sweeper struct {
	pool     *pgxpool.Pool
	txRepo   repository.TransactionRepository
	outbox   repository.OutboxRepository
	logger   *slog.Logger
	interval time.Duration
}

// NewSweeper creates a Sweeper running at the given interval.
func NewSweeper(
	pool *pgxpool.Pool,
	txRepo repository.TransactionRepository,
	outbox repository.OutboxRepository,
	interval time.Duration,
	logger *slog.Logger,
) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{pool: pool, txRepo: txRepo, outbox: outbox, logger: logger, interval: interval}
}

// Start begins sweeping in a goroutine. Stops when ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("expiry sweeper started", "interval", s.interval)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("expiry sweeper stopped")
				return
			case <-ticker.C:
				if _, err := s.SweepExpired(ctx, time.Now()); err != nil {
					s.logger.Error("sweep error", "error", err)
				}
			}
		}
	}()
}

// SweepExpired expires all pending transactions whose window ended before
// now and returns how many were expired. Re-running is a no-op by
// construction: only rows still pending are touched.
func (s *Sweeper) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.txRepo.ExpireBefore(ctx, s.pool, now)
	if err != nil {
		return 0, domain.ErrInternal("expire pending transactions", err)
	}

	for i := range expired {
		tx := &expired[i]
		s.logger.Info("transaction expired",
			"transaction_id", tx.ID, "tenant_id", tx.TenantID, "rail", tx.Rail, "expired_at", tx.ExpiresAt)
		if err := s.outbox.Insert(ctx, s.pool, domain.NewPaymentExpiredEvent(tx)); err != nil {
			s.logger.Error("record expiry event", "error", err, "transaction_id", tx.ID)
		}
	}

	if len(expired) > 0 {
		s.logger.Info("sweep complete", "expired", len(expired))
	}
	return len(expired), nil
}
