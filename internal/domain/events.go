package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AggregateType identifies the event source aggregate.
type AggregateType string

const AggregatePayment AggregateType = "payment"

// EventType identifies the outbox event kind.
type EventType string

const (
	EventPaymentSettled EventType = "payment.settled"
	EventPaymentExpired EventType = "payment.expired"
)

// OutboxDraft is an event_outbox row pending publication.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType AggregateType   `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     EventType       `json:"event_type"`
	PartitionKey  string          `json:"partition_key"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NewPaymentSettledEvent creates the downstream settlement notification for a
// transaction that just transitioned to paid. Partitioned by tenant so
// billing consumers see one tenant's settlements in order.
func NewPaymentSettledEvent(tx *PaymentTransaction) OutboxDraft {
	payload, _ := json.Marshal(tx)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregatePayment,
		AggregateID:   tx.ID.String(),
		EventType:     EventPaymentSettled,
		PartitionKey:  tx.TenantID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewPaymentExpiredEvent creates the expiry notification emitted by the sweeper.
func NewPaymentExpiredEvent(tx *PaymentTransaction) OutboxDraft {
	payload, _ := json.Marshal(map[string]string{
		"transaction_id": tx.ID.String(),
		"tenant_id":      tx.TenantID.String(),
		"rail":           string(tx.Rail),
		"expired_at":     tx.ExpiresAt.Format(time.RFC3339),
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregatePayment,
		AggregateID:   tx.ID.String(),
		EventType:     EventPaymentExpired,
		PartitionKey:  tx.TenantID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
