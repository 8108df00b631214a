//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/fitgrid/platform/test/integration/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminUpsertCredentialsEnablesIssuance(t *testing.T) {
	env := testutil.NewTestEnv(t)
	tenantID := uuid.New()

	// Without credentials: 422
	resp := env.POST("/payments/reference", map[string]interface{}{
		"amount_cents": 1000,
	}, env.ServiceToken(tenantID))
	resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Operator configures the rail
	putResp := env.AuthPUT("/admin/tenants/"+tenantID.String()+"/credentials", map[string]interface{}{
		"rail":    "reference",
		"api_key": "live-key-123",
		"enabled": true,
	}, env.AdminToken("admin"))
	putResp.Body.Close()
	require.Equal(t, http.StatusOK, putResp.StatusCode)

	// Issuance now works
	resp = env.POST("/payments/reference", map[string]interface{}{
		"amount_cents": 1000,
	}, env.ServiceToken(tenantID))
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAdminCredentialEndpointsRequireAdminRole(t *testing.T) {
	env := testutil.NewTestEnv(t)
	tenantID := uuid.New()

	resp := env.AuthPUT("/admin/tenants/"+tenantID.String()+"/credentials", map[string]interface{}{
		"rail":    "reference",
		"api_key": "k",
		"enabled": true,
	}, env.AdminToken("viewer"))
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminRoutesRejectServiceTokens(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.AuthGET("/admin/webhooks/unmatched", env.ServiceToken(uuid.New()))
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdminGetCredentialsNeverReturnsAPIKey(t *testing.T) {
	env := testutil.NewTestEnv(t)
	tenantID := uuid.New()
	env.SeedCredentials(tenantID, "push", nil)

	resp := env.AuthGET("/admin/tenants/"+tenantID.String()+"/credentials/push", env.AdminToken("admin"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	env.DecodeBody(resp, &body)
	assert.Equal(t, "push", body["rail"])
	assert.NotContains(t, body, "api_key")
}

func TestHealthEndpoint(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.GET("/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	env.DecodeBody(resp, &body)
	assert.Equal(t, "healthy", body["status"])
}
