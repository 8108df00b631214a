package handler

import (
	"net/http"
	"strconv"

	"github.com/fitgrid/platform/internal/auth"
	"github.com/fitgrid/platform/internal/domain"
	"github.com/fitgrid/platform/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PaymentHandler handles the tenant-facing payment issuance endpoints.
type PaymentHandler struct {
	issuer *service.Issuer
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(issuer *service.Issuer) *PaymentHandler {
	return &PaymentHandler{issuer: issuer}
}

type issuePaymentRequest struct {
	AmountCents int64   `json:"amount_cents"`
	IntentRef   *string `json:"payment_intent_id,omitempty"`
	PhoneNumber string  `json:"phone_number,omitempty"`
}

// IssueReference handles POST /payments/reference.
func (h *PaymentHandler) IssueReference(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, domain.RailReference)
}

// IssuePush handles POST /payments/push.
func (h *PaymentHandler) IssuePush(w http.ResponseWriter, r *http.Request) {
	h.issue(w, r, domain.RailPush)
}

func (h *PaymentHandler) issue(w http.ResponseWriter, r *http.Request, rail domain.Rail) {
	tenantID, ok := auth.TenantFromContext(r.Context())
	if !ok {
		RespondError(w, domain.ErrUnauthorized("no tenant context"))
		return
	}

	var req issuePaymentRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code": "VALIDATION_ERROR", "message": "invalid request body",
		})
		return
	}

	if req.AmountCents <= 0 {
		RespondError(w, domain.ErrValidation("amount_cents must be positive"))
		return
	}
	if rail == domain.RailPush && req.PhoneNumber == "" {
		RespondError(w, domain.ErrValidation("phone_number is required"))
		return
	}

	issued, err := h.issuer.Issue(r.Context(), service.IssueParams{
		TenantID:    tenantID,
		Rail:        rail,
		AmountCents: req.AmountCents,
		IntentRef:   req.IntentRef,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, issued)
}

// GetPayment handles GET /payments/{id}.
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantFromContext(r.Context())
	if !ok {
		RespondError(w, domain.ErrUnauthorized("no tenant context"))
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid transaction id"))
		return
	}

	tx, err := h.issuer.GetTransaction(r.Context(), tenantID, id)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, tx)
}

// ListPayments handles GET /payments.
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := auth.TenantFromContext(r.Context())
	if !ok {
		RespondError(w, domain.ErrUnauthorized("no tenant context"))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := h.issuer.ListTransactions(r.Context(), tenantID, limit)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, txs)
}
