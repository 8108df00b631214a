//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// ServiceToken generates a JWT bound to the given tenant.
func (env *TestEnv) ServiceToken(tenantID uuid.UUID) string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateServiceToken(uuid.New(), tenantID)
	if err != nil {
		env.t.Fatalf("ServiceToken: %v", err)
	}
	return token
}

// AdminToken generates a JWT for a platform operator with the given role.
func (env *TestEnv) AdminToken(role string) string {
	env.t.Helper()
	token, err := env.JWTMgr.GenerateAdminToken(uuid.New(), role)
	if err != nil {
		env.t.Fatalf("AdminToken: %v", err)
	}
	return token
}

// SeedCredentials enables a rail for a tenant directly in the DB.
func (env *TestEnv) SeedCredentials(tenantID uuid.UUID, rail string, windowMinutes *int) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := env.Pool.Exec(ctx, `
		INSERT INTO gateway_credentials (tenant_id, rail, api_key, sandbox, enabled, expiry_window_minutes)
		VALUES ($1, $2, 'test-api-key', false, true, $3)
		ON CONFLICT (tenant_id, rail) DO UPDATE
		SET enabled = true, expiry_window_minutes = EXCLUDED.expiry_window_minutes`,
		tenantID, rail, windowMinutes)
	if err != nil {
		env.t.Fatalf("SeedCredentials: %v", err)
	}
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("POST %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("POST", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("POST %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("GET", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("AuthGET %s: new request: %v", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("AuthGET %s: %v", path, err)
	}
	return resp
}

// AuthPUT performs an authenticated PUT request.
func (env *TestEnv) AuthPUT(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("PUT %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("PUT", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("PUT %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("PUT %s: %v", path, err)
	}
	return resp
}

// RawPOST performs a POST request with raw bytes and custom headers.
func (env *TestEnv) RawPOST(path string, body []byte, headers map[string]string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("POST", env.Server.URL+path, bytes.NewReader(body))
	if err != nil {
		env.t.Fatalf("RawPOST %s: new request: %v", path, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("RawPOST %s: %v", path, err)
	}
	return resp
}

// DecodeBody decodes a JSON response body into dst and closes it.
func (env *TestEnv) DecodeBody(resp *http.Response, dst interface{}) {
	env.t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		env.t.Fatalf("DecodeBody: %v", err)
	}
}

// TransactionStatus reads a transaction's status straight from the DB.
func (env *TestEnv) TransactionStatus(id uuid.UUID) string {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var status string
	err := env.Pool.QueryRow(ctx,
		"SELECT status FROM payment_transactions WHERE id = $1", id).Scan(&status)
	if err != nil {
		env.t.Fatalf("TransactionStatus: %v", err)
	}
	return status
}

// ExpireTransaction backdates a transaction's expiry window.
func (env *TestEnv) ExpireTransaction(id uuid.UUID) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := env.Pool.Exec(ctx,
		"UPDATE payment_transactions SET expires_at = now() - interval '1 hour' WHERE id = $1", id)
	if err != nil {
		env.t.Fatalf("ExpireTransaction: %v", err)
	}
}

// OutboxEventCount counts outbox events of the given type.
func (env *TestEnv) OutboxEventCount(eventType string) int {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		"SELECT count(*) FROM event_outbox WHERE event_type = $1", eventType).Scan(&count)
	if err != nil {
		env.t.Fatalf("OutboxEventCount: %v", err)
	}
	return count
}
