package gateway

import (
	"context"
	"fmt"

	"github.com/fitgrid/platform/internal/domain"
)

// ReferenceAdapter issues Multibanco-style entity+reference payment handles.
type ReferenceAdapter struct {
	client *Client
}

// NewReferenceAdapter creates the reference-rail adapter.
func NewReferenceAdapter(client *Client) *ReferenceAdapter {
	return &ReferenceAdapter{client: client}
}

func (a *ReferenceAdapter) Rail() domain.Rail { return domain.RailReference }

type referenceCreateRequest struct {
	Key    string `json:"chave"`
	Amount string `json:"valor"`
	ID     string `json:"id"`
}

type referenceCreateResponse struct {
	Success   bool   `json:"sucesso"`
	Status    string `json:"estado"`
	Entity    string `json:"entidade"`
	Reference string `json:"referencia"`
	Message   string `json:"resposta"`
}

// Issue requests a new entity+reference pair from the gateway. The reference
// number is the correlation key for later callbacks.
func (a *ReferenceAdapter) Issue(ctx context.Context, creds *domain.RailCredentials, req IssueRequest) (*Handle, error) {
	body := referenceCreateRequest{
		Key:    creds.APIKey,
		Amount: formatEuros(req.AmountCents),
		ID:     req.OrderID,
	}

	var out referenceCreateResponse
	raw, err := a.client.postJSON(ctx, creds.Sandbox, "/clientes/rest_api/multibanco/create", body, &out)
	if err != nil {
		return nil, err
	}

	if !out.Success || out.Reference == "" {
		return nil, domain.ErrGatewayUnavailable(
			fmt.Sprintf("reference issuance rejected: %s", out.Message), nil)
	}

	return &Handle{
		CorrelationKey: out.Reference,
		Entity:         out.Entity,
		Message:        out.Message,
		RawResponse:    raw,
	}, nil
}

// formatEuros renders a cent amount as the decimal string the gateway expects.
func formatEuros(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
