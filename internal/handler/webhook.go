package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/fitgrid/platform/internal/service"
)

// WebhookHandler handles inbound gateway notification callbacks.
type WebhookHandler struct {
	reconciler *service.Reconciler
	logger     *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(reconciler *service.Reconciler, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, logger: logger}
}

// HandleGatewayWebhook handles POST /webhooks/gateway.
//
// The gateway treats any non-2xx as a delivery failure and redelivers, so
// the contract here is strict: structurally valid payloads are always acked
// with 200, matched or not. 400 is reserved for payloads the gateway should
// stop retrying, 500 for a store outage where a retry will help.
func (h *WebhookHandler) HandleGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		h.logger.Error("read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	entry, outcome, err := h.reconciler.Ingest(r.Context(), body)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{
		"delivery_id": entry.ID.String(),
		"outcome":     string(outcome),
	})
}
