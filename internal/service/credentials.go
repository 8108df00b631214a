package service

import (
	"context"
	"log/slog"

	"github.com/fitgrid/platform/internal/domain"
	"github.com/fitgrid/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CredentialAdmin manages tenant gateway credentials.
type CredentialAdmin struct {
	pool   *pgxpool.Pool
	repo   repository.CredentialRepository
	logger *slog.Logger
}

// NewCredentialAdmin creates a CredentialAdmin.
func NewCredentialAdmin(pool *pgxpool.Pool, repo repository.CredentialRepository, logger *slog.Logger) *CredentialAdmin {
	return &CredentialAdmin{pool: pool, repo: repo, logger: logger}
}

// Upsert validates and stores a tenant's per-rail gateway credentials.
func (s *CredentialAdmin) Upsert(ctx context.Context, creds *domain.RailCredentials) error {
	if !creds.Rail.Valid() {
		return domain.ErrValidation("unknown rail")
	}
	if creds.APIKey == "" {
		return domain.ErrValidation("api_key is required")
	}
	if creds.ExpiryWindowMinutes != nil && *creds.ExpiryWindowMinutes <= 0 {
		return domain.ErrValidation("expiry_window_minutes must be positive")
	}

	if err := s.repo.Upsert(ctx, s.pool, creds); err != nil {
		return domain.ErrInternal("store gateway credentials", err)
	}

	s.logger.Info("gateway credentials updated",
		"tenant_id", creds.TenantID, "rail", creds.Rail, "enabled", creds.Enabled, "sandbox", creds.Sandbox)
	return nil
}

// Get returns a tenant's credentials for one rail, or NOT_FOUND.
func (s *CredentialAdmin) Get(ctx context.Context, tenantID uuid.UUID, rail domain.Rail) (*domain.RailCredentials, error) {
	creds, err := s.repo.FindByTenantAndRail(ctx, s.pool, tenantID, rail)
	if err != nil {
		return nil, domain.ErrInternal("load gateway credentials", err)
	}
	if creds == nil {
		return nil, domain.ErrNotFound("credentials", string(rail))
	}
	return creds, nil
}
