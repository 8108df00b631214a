//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/fitgrid/platform/test/integration/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

func issueReference(t *testing.T, env *testutil.TestEnv, tenantID uuid.UUID, amountCents int64) issuedPayment {
	t.Helper()
	env.SeedCredentials(tenantID, "reference", nil)
	resp := env.POST("/payments/reference", map[string]interface{}{
		"amount_cents": amountCents,
	}, env.ServiceToken(tenantID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var issued issuedPayment
	env.DecodeBody(resp, &issued)
	return issued
}

func TestWebhookSettlesPayment(t *testing.T) {
	env := testutil.NewTestEnv(t)
	issued := issueReference(t, env, uuid.New(), 4500)

	payload := []byte(fmt.Sprintf(`{"entity":"11111","reference":"%s","value":"45.00"}`, issued.Reference))
	resp := env.RawPOST("/webhooks/gateway", payload, jsonHeaders)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ack map[string]string
	env.DecodeBody(resp, &ack)
	assert.Equal(t, "settled", ack["outcome"])

	assert.Equal(t, "paid", env.TransactionStatus(issued.TransactionID))
	assert.Equal(t, 1, env.OutboxEventCount("payment.settled"))
}

func TestWebhookRedeliveryIsIdempotent(t *testing.T) {
	env := testutil.NewTestEnv(t)
	issued := issueReference(t, env, uuid.New(), 4500)

	payload := []byte(fmt.Sprintf(`{"entity":"11111","reference":"%s","value":"45.00"}`, issued.Reference))

	for i := 0; i < 3; i++ {
		resp := env.RawPOST("/webhooks/gateway", payload, jsonHeaders)
		var ack map[string]string
		env.DecodeBody(resp, &ack)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		if i == 0 {
			assert.Equal(t, "settled", ack["outcome"])
		} else {
			assert.Equal(t, "already_terminal", ack["outcome"])
		}
	}

	assert.Equal(t, "paid", env.TransactionStatus(issued.TransactionID))
	assert.Equal(t, 1, env.OutboxEventCount("payment.settled"))
}

func TestWebhookUnmatchedIsAcked(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.RawPOST("/webhooks/gateway",
		[]byte(`{"entity":"11111","reference":"000000000","value":"10.00"}`), jsonHeaders)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ack map[string]string
	env.DecodeBody(resp, &ack)
	assert.Equal(t, "unmatched", ack["outcome"])
}

func TestWebhookMalformedReturns400(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.RawPOST("/webhooks/gateway", []byte(`{"unexpected":"shape"}`), jsonHeaders)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhookRequiresNoAuth(t *testing.T) {
	env := testutil.NewTestEnv(t)

	// The gateway cannot send bearer tokens; the endpoint must accept
	// anonymous posts and rely on correlation, not authentication.
	resp := env.RawPOST("/webhooks/gateway",
		[]byte(`{"reference":"123456789","value":"1.00"}`), jsonHeaders)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnmatchedWebhookVisibleToAdmin(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.RawPOST("/webhooks/gateway",
		[]byte(`{"entity":"22222","reference":"555444333","value":"20.00"}`), jsonHeaders)
	resp.Body.Close()

	adminResp := env.AuthGET("/admin/webhooks/unmatched", env.AdminToken("viewer"))
	require.Equal(t, http.StatusOK, adminResp.StatusCode)

	var entries []struct {
		ID         uuid.UUID `json:"id"`
		RawPayload string    `json:"raw_payload"`
		Outcome    string    `json:"outcome"`
	}
	env.DecodeBody(adminResp, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "unmatched", entries[0].Outcome)
	assert.Contains(t, entries[0].RawPayload, "555444333")
}
