package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fitgrid/platform/internal/domain"
)

// webhookEnvelope is the superset of both callback shapes. The gateway does
// not send a trusted type header, so the shape is decided structurally:
// a reference callback carries a reference/value pair, a push callback
// carries a request id and a status code.
type webhookEnvelope struct {
	Key         string          `json:"key"`
	Entity      string          `json:"entity"`
	Reference   string          `json:"reference"`
	Value       json.RawMessage `json:"value"`
	Transaction string          `json:"transaction"`
	RequestID   string          `json:"request_id"`
	Status      string          `json:"status"`
}

// ParseNotification decodes a raw gateway callback into the closed
// notification sum type. Payloads matching neither shape return
// MALFORMED_WEBHOOK.
func ParseNotification(raw []byte) (*domain.Notification, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, domain.ErrMalformedWebhook("payload is not valid JSON")
	}

	switch {
	case env.Reference != "" && len(env.Value) > 0:
		cents, err := parseEuroAmount(env.Value)
		if err != nil {
			return nil, domain.ErrMalformedWebhook(fmt.Sprintf("bad value field: %v", err))
		}
		return &domain.Notification{
			Kind: domain.NotificationReference,
			Reference: &domain.ReferenceNotification{
				Key:         env.Key,
				Entity:      env.Entity,
				Reference:   env.Reference,
				AmountCents: cents,
				Transaction: env.Transaction,
			},
		}, nil

	case env.RequestID != "" && env.Status != "":
		var cents int64
		if len(env.Value) > 0 {
			var err error
			cents, err = parseEuroAmount(env.Value)
			if err != nil {
				return nil, domain.ErrMalformedWebhook(fmt.Sprintf("bad value field: %v", err))
			}
		}
		return &domain.Notification{
			Kind: domain.NotificationPush,
			Push: &domain.PushNotification{
				RequestID:   env.RequestID,
				RawStatus:   strings.ToLower(strings.TrimSpace(env.Status)),
				AmountCents: cents,
			},
		}, nil
	}

	return nil, domain.ErrMalformedWebhook("payload matches neither callback shape")
}

// parseEuroAmount converts a gateway amount field into cents. The gateway
// sends either a decimal string ("45.00") or a bare number (45.0).
func parseEuroAmount(raw json.RawMessage) (int64, error) {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	whole, frac, _ := strings.Cut(s, ".")
	euros, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || euros < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	var cents int64
	if frac != "" {
		// Normalize to exactly two fractional digits.
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
	}

	return euros*100 + cents, nil
}
