package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fitgrid/platform/internal/domain"
)

// Client is the shared HTTP transport for gateway calls. Sandbox tenants are
// routed to the sandbox endpoint; everything else hits production.
type Client struct {
	baseURL        string
	sandboxBaseURL string
	httpClient     *http.Client
	timeout        time.Duration
}

// NewClient creates a gateway HTTP client with a bounded per-call timeout.
func NewClient(baseURL, sandboxBaseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:        baseURL,
		sandboxBaseURL: sandboxBaseURL,
		httpClient:     &http.Client{Timeout: timeout},
		timeout:        timeout,
	}
}

func (c *Client) endpoint(sandbox bool, path string) string {
	if sandbox {
		return c.sandboxBaseURL + path
	}
	return c.baseURL + path
}

// postJSON performs a gateway POST and decodes the JSON response body into
// out. Timeouts map to GATEWAY_TIMEOUT; transport failures and non-2xx
// responses map to GATEWAY_UNAVAILABLE. Success is never assumed on timeout.
func (c *Client) postJSON(ctx context.Context, sandbox bool, path string, body interface{}, out interface{}) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, domain.ErrInternal("encode gateway request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(sandbox, path), bytes.NewReader(payload))
	if err != nil {
		return nil, domain.ErrInternal("create gateway request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, domain.ErrGatewayTimeout(err)
		}
		return nil, domain.ErrGatewayUnavailable("gateway call failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, domain.ErrGatewayUnavailable("read gateway response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.ErrGatewayUnavailable(
			fmt.Sprintf("gateway returned status %d", resp.StatusCode), errors.New(string(raw)))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return nil, domain.ErrGatewayUnavailable("decode gateway response", err)
	}
	return raw, nil
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
