package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitgrid/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type credentialRepo struct{}

// NewCredentialRepository returns a pgx-backed CredentialRepository.
func NewCredentialRepository() CredentialRepository {
	return &credentialRepo{}
}

func (r *credentialRepo) FindByTenantAndRail(ctx context.Context, db DBTX, tenantID uuid.UUID, rail domain.Rail) (*domain.RailCredentials, error) {
	row := db.QueryRow(ctx, `
		SELECT tenant_id, rail, api_key, sandbox, enabled, expiry_window_minutes
		FROM gateway_credentials
		WHERE tenant_id = $1 AND rail = $2`, tenantID, string(rail))

	var c domain.RailCredentials
	err := row.Scan(&c.TenantID, &c.Rail, &c.APIKey, &c.Sandbox, &c.Enabled, &c.ExpiryWindowMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan gateway credentials: %w", err)
	}
	return &c, nil
}

func (r *credentialRepo) Upsert(ctx context.Context, db DBTX, creds *domain.RailCredentials) error {
	_, err := db.Exec(ctx, `
		INSERT INTO gateway_credentials (tenant_id, rail, api_key, sandbox, enabled, expiry_window_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, rail) DO UPDATE
		SET api_key = EXCLUDED.api_key,
		    sandbox = EXCLUDED.sandbox,
		    enabled = EXCLUDED.enabled,
		    expiry_window_minutes = EXCLUDED.expiry_window_minutes,
		    updated_at = now()`,
		creds.TenantID, string(creds.Rail), creds.APIKey, creds.Sandbox, creds.Enabled, creds.ExpiryWindowMinutes)
	if err != nil {
		return fmt.Errorf("upsert gateway credentials: %w", err)
	}
	return nil
}
