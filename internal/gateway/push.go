package gateway

import (
	"context"
	"fmt"

	"github.com/fitgrid/platform/internal/domain"
)

// PushAdapter issues MBWay-style push payment requests: the gateway sends an
// approval prompt to the member's phone and reports the outcome by webhook.
type PushAdapter struct {
	client *Client
}

// NewPushAdapter creates the push-rail adapter.
func NewPushAdapter(client *Client) *PushAdapter {
	return &PushAdapter{client: client}
}

func (a *PushAdapter) Rail() domain.Rail { return domain.RailPush }

type pushCreateRequest struct {
	Key    string `json:"chave"`
	Amount string `json:"valor"`
	Phone  string `json:"alias"`
	ID     string `json:"id"`
}

type pushCreateResponse struct {
	Success   bool   `json:"sucesso"`
	Status    string `json:"estado"`
	RequestID string `json:"referencia"`
	Message   string `json:"resposta"`
}

// Issue sends a push payment request to the given phone number. The
// gateway-assigned request id is the correlation key for the callback.
func (a *PushAdapter) Issue(ctx context.Context, creds *domain.RailCredentials, req IssueRequest) (*Handle, error) {
	if req.PhoneNumber == "" {
		return nil, domain.ErrValidation("phone_number is required for push payments")
	}

	body := pushCreateRequest{
		Key:    creds.APIKey,
		Amount: formatEuros(req.AmountCents),
		Phone:  req.PhoneNumber,
		ID:     req.OrderID,
	}

	var out pushCreateResponse
	raw, err := a.client.postJSON(ctx, creds.Sandbox, "/clientes/rest_api/mbway/create", body, &out)
	if err != nil {
		return nil, err
	}

	if !out.Success || out.RequestID == "" {
		return nil, domain.ErrGatewayUnavailable(
			fmt.Sprintf("push issuance rejected: %s", out.Message), nil)
	}

	return &Handle{
		CorrelationKey: out.RequestID,
		RequestID:      out.RequestID,
		Message:        out.Message,
		RawResponse:    raw,
	}, nil
}
