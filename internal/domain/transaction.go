package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Rail identifies a payment method family exposed by the gateway.
type Rail string

const (
	// RailReference is the Multibanco-style entity+reference rail. Settlement
	// happens via bank transfer, so references stay open for days.
	RailReference Rail = "reference"

	// RailPush is the MBWay-style rail: the gateway pushes an approval prompt
	// to the member's phone, which either confirms within minutes or never.
	RailPush Rail = "push"
)

// Valid reports whether r is a known rail.
func (r Rail) Valid() bool {
	return r == RailReference || r == RailPush
}

// TransactionStatus tracks the payment transaction lifecycle.
type TransactionStatus string

const (
	StatusPending TransactionStatus = "pending"
	StatusPaid    TransactionStatus = "paid"
	StatusFailed  TransactionStatus = "failed"
	StatusExpired TransactionStatus = "expired"
)

// Terminal reports whether no further transition out of s is permitted.
func (s TransactionStatus) Terminal() bool {
	return s == StatusPaid || s == StatusFailed || s == StatusExpired
}

// Default expiry windows per rail. Reference payments settle over slow bank
// rails; push payments die with the approval prompt.
const (
	DefaultReferenceExpiry = 72 * time.Hour
	DefaultPushExpiry      = 5 * time.Minute
)

// PaymentTransaction is a payment_transactions table row: one issued gateway
// handle and its reconciliation state. Rows are never deleted.
type PaymentTransaction struct {
	ID              uuid.UUID         `json:"id"`
	TenantID        uuid.UUID         `json:"tenant_id"`
	PaymentIntentID *string           `json:"payment_intent_id,omitempty"`
	Rail            Rail              `json:"rail"`
	AmountCents     int64             `json:"amount_cents"`
	CorrelationKey  string            `json:"correlation_key"`
	Entity          *string           `json:"entity,omitempty"`
	Status          TransactionStatus `json:"status"`
	IssuedAt        time.Time         `json:"issued_at"`
	ExpiresAt       time.Time         `json:"expires_at"`
	SettledAt       *time.Time        `json:"settled_at,omitempty"`
	GatewayMetadata json.RawMessage   `json:"gateway_metadata"`
}

// RailCredentials is a tenant's per-rail gateway configuration. The
// reconciliation core only reads these; writes belong to tenant settings.
type RailCredentials struct {
	TenantID            uuid.UUID `json:"tenant_id"`
	Rail                Rail      `json:"rail"`
	APIKey              string    `json:"-"`
	Sandbox             bool      `json:"sandbox"`
	Enabled             bool      `json:"enabled"`
	ExpiryWindowMinutes *int      `json:"expiry_window_minutes,omitempty"`
}

// ExpiryWindow returns the tenant override when set, else the rail default.
func (c *RailCredentials) ExpiryWindow() time.Duration {
	if c.ExpiryWindowMinutes != nil && *c.ExpiryWindowMinutes > 0 {
		return time.Duration(*c.ExpiryWindowMinutes) * time.Minute
	}
	if c.Rail == RailPush {
		return DefaultPushExpiry
	}
	return DefaultReferenceExpiry
}
