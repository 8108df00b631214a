package domain

import (
	"time"

	"github.com/google/uuid"
)

// WebhookOutcome records how an inbound gateway notification was processed.
type WebhookOutcome string

const (
	OutcomeMatched   WebhookOutcome = "matched"
	OutcomeUnmatched WebhookOutcome = "unmatched"
	OutcomeError     WebhookOutcome = "error"
)

// WebhookLogEntry is a webhook_log table row. Entries are written before any
// transaction mutation and are append-only: only processed_at, outcome and
// the resolved transaction id are filled in afterwards, never rewritten.
type WebhookLogEntry struct {
	ID uuid.UUID `json:"id"`

	// RawPayload holds the delivery body byte-for-byte, including bodies that
	// never parsed as JSON, so it is stored and served as opaque text.
	RawPayload    string          `json:"raw_payload"`
	ReceivedAt    time.Time       `json:"received_at"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
	Outcome       *WebhookOutcome `json:"outcome,omitempty"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
}

// NotificationKind tags the parsed shape of a gateway notification.
type NotificationKind string

const (
	NotificationReference NotificationKind = "reference"
	NotificationPush      NotificationKind = "push"
)

// ReferenceNotification is the reference-rail callback shape: the gateway
// reports a settled entity/reference/value triple. The entity field is
// optional; some gateway channels omit it on the callback.
type ReferenceNotification struct {
	Key         string
	Entity      string
	Reference   string
	AmountCents int64
	Transaction string
}

// PushNotification is the push-rail callback shape: the request identifier
// assigned at issuance plus the prompt outcome status code.
type PushNotification struct {
	RequestID   string
	RawStatus   string
	AmountCents int64
}

// Notification is the closed sum of the two callback shapes. Exactly one of
// Reference/Push is set, matching Kind.
type Notification struct {
	Kind      NotificationKind
	Reference *ReferenceNotification
	Push      *PushNotification
}

// Rail returns the rail the notification belongs to.
func (n *Notification) Rail() Rail {
	if n.Kind == NotificationPush {
		return RailPush
	}
	return RailReference
}

// CorrelationKey returns the rail-specific matching key.
func (n *Notification) CorrelationKey() string {
	if n.Kind == NotificationPush {
		return n.Push.RequestID
	}
	return n.Reference.Reference
}

// pushStatusTable maps push-rail gateway status codes to terminal states.
// The gateway sends both numeric codes and words depending on channel.
var pushStatusTable = map[string]TransactionStatus{
	"000":       StatusPaid,
	"ok":        StatusPaid,
	"success":   StatusPaid,
	"paid":      StatusPaid,
	"020":       StatusFailed,
	"declined":  StatusFailed,
	"rejected":  StatusFailed,
	"cancelled": StatusFailed,
	"expired":   StatusFailed,
	"failed":    StatusFailed,
}

// MapRawStatus translates a rail-specific raw status into a terminal
// transaction status. Reference-rail callbacks are only sent on settlement,
// so any structurally valid one means paid. Unknown push codes return
// ok=false; the caller leaves the transaction alone rather than guess.
func MapRawStatus(rail Rail, raw string) (TransactionStatus, bool) {
	if rail == RailReference {
		return StatusPaid, true
	}
	status, ok := pushStatusTable[raw]
	return status, ok
}
