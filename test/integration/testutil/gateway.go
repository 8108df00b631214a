//go:build integration

package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// FakeGateway emulates the payment gateway's issuance endpoints so the real
// rail adapters can be exercised without network access. References and
// request ids are sequential, so tests can predict correlation keys.
type FakeGateway struct {
	server *httptest.Server
	seq    atomic.Int64

	mu       sync.Mutex
	failNext bool
}

// NewFakeGateway starts the fake gateway server.
func NewFakeGateway(t *testing.T) *FakeGateway {
	t.Helper()
	g := &FakeGateway{}
	mux := http.NewServeMux()
	mux.HandleFunc("/clientes/rest_api/multibanco/create", g.handleReference)
	mux.HandleFunc("/clientes/rest_api/mbway/create", g.handlePush)
	g.server = httptest.NewServer(mux)
	return g
}

// URL returns the fake gateway's base URL.
func (g *FakeGateway) URL() string { return g.server.URL }

// Close shuts the fake gateway down.
func (g *FakeGateway) Close() { g.server.Close() }

// FailNext makes the next issuance call return a gateway-side rejection.
func (g *FakeGateway) FailNext() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNext = true
}

// NextReference returns the reference number the next issuance will produce.
func (g *FakeGateway) NextReference() string {
	return fmt.Sprintf("9%08d", g.seq.Load()+1)
}

func (g *FakeGateway) takeFailure() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	failed := g.failNext
	g.failNext = false
	return failed
}

func (g *FakeGateway) handleReference(w http.ResponseWriter, r *http.Request) {
	if g.takeFailure() {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sucesso": false, "estado": "err", "resposta": "invalid api key",
		})
		return
	}
	n := g.seq.Add(1)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sucesso":    true,
		"estado":     "ok",
		"entidade":   "11111",
		"referencia": fmt.Sprintf("9%08d", n),
		"resposta":   "reference created",
	})
}

func (g *FakeGateway) handlePush(w http.ResponseWriter, r *http.Request) {
	if g.takeFailure() {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sucesso": false, "estado": "err", "resposta": "invalid api key",
		})
		return
	}
	n := g.seq.Add(1)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sucesso":    true,
		"estado":     "pending",
		"referencia": fmt.Sprintf("req-%06d", n),
		"resposta":   "push sent",
	})
}
