package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fitgrid/platform/internal/domain"
)

// IssueRequest carries the rail-agnostic issuance parameters. OrderID is the
// identifier the platform controls; it is echoed back by the gateway and
// carries the transaction id for cross-checking.
type IssueRequest struct {
	OrderID     string
	AmountCents int64
	PhoneNumber string // push rail only
}

// Handle is the gateway's payment handle for an issued request.
type Handle struct {
	// CorrelationKey is the rail-specific matching key for webhooks:
	// the reference number, or the push request id.
	CorrelationKey string
	Entity         string // reference rail only
	RequestID      string // push rail only
	Message        string
	RawResponse    json.RawMessage
}

// RailAdapter issues payment requests for one rail family. Implementations
// are selected from a registry built at startup, never by per-call string
// dispatch.
type RailAdapter interface {
	Rail() domain.Rail
	Issue(ctx context.Context, creds *domain.RailCredentials, req IssueRequest) (*Handle, error)
}

// Registry holds one adapter per configured rail.
type Registry struct {
	adapters map[domain.Rail]RailAdapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...RailAdapter) (*Registry, error) {
	m := make(map[domain.Rail]RailAdapter, len(adapters))
	for _, a := range adapters {
		if _, dup := m[a.Rail()]; dup {
			return nil, fmt.Errorf("duplicate adapter for rail %s", a.Rail())
		}
		m[a.Rail()] = a
	}
	return &Registry{adapters: m}, nil
}

// Adapter returns the adapter for the given rail, or nil if none registered.
func (r *Registry) Adapter(rail domain.Rail) RailAdapter {
	return r.adapters[rail]
}
