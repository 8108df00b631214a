package handler

import (
	"net/http"
	"strconv"

	"github.com/fitgrid/platform/internal/domain"
	"github.com/fitgrid/platform/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AdminHandler handles the operator endpoints: credential management and the
// unmatched webhook audit queue.
type AdminHandler struct {
	credentials *service.CredentialAdmin
	reconciler  *service.Reconciler
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(credentials *service.CredentialAdmin, reconciler *service.Reconciler) *AdminHandler {
	return &AdminHandler{credentials: credentials, reconciler: reconciler}
}

type upsertCredentialsRequest struct {
	Rail                string `json:"rail"`
	APIKey              string `json:"api_key"`
	Sandbox             bool   `json:"sandbox"`
	Enabled             bool   `json:"enabled"`
	ExpiryWindowMinutes *int   `json:"expiry_window_minutes,omitempty"`
}

// UpsertCredentials handles PUT /admin/tenants/{tenantID}/credentials.
func (h *AdminHandler) UpsertCredentials(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid tenant id"))
		return
	}

	var req upsertCredentialsRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondJSON(w, http.StatusBadRequest, map[string]string{
			"code": "VALIDATION_ERROR", "message": "invalid request body",
		})
		return
	}

	creds := &domain.RailCredentials{
		TenantID:            tenantID,
		Rail:                domain.Rail(req.Rail),
		APIKey:              req.APIKey,
		Sandbox:             req.Sandbox,
		Enabled:             req.Enabled,
		ExpiryWindowMinutes: req.ExpiryWindowMinutes,
	}
	if err := h.credentials.Upsert(r.Context(), creds); err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, creds)
}

// GetCredentials handles GET /admin/tenants/{tenantID}/credentials/{rail}.
func (h *AdminHandler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuid.Parse(chi.URLParam(r, "tenantID"))
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid tenant id"))
		return
	}

	creds, err := h.credentials.Get(r.Context(), tenantID, domain.Rail(chi.URLParam(r, "rail")))
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, creds)
}

// ListUnmatchedWebhooks handles GET /admin/webhooks/unmatched.
func (h *AdminHandler) ListUnmatchedWebhooks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.reconciler.ListUnmatched(r.Context(), limit)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, entries)
}
