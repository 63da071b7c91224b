package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adinventory/backend/internal/domain/integration"
)

const (
	// maxResponseSize bounds every provider response body
	maxResponseSize = 10 << 20
	// maxErrorBodySize bounds the body kept on an ExternalAPIError
	maxErrorBodySize = 4 << 10

	defaultHTTPTimeout = 30 * time.Second
)

// NewHTTPClient returns the client shared by all adapters
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// apiClient performs JSON requests against one provider
type apiClient struct {
	provider   integration.Provider
	httpClient *http.Client
}

func newAPIClient(provider integration.Provider, httpClient *http.Client) apiClient {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	return apiClient{provider: provider, httpClient: httpClient}
}

// request describes one provider call
type request struct {
	op      string
	method  string
	url     string
	headers map[string]string
	body    any
}

// do sends the request and decodes a 2xx JSON response into out (if non-nil).
// Non-2xx responses become *integration.ExternalAPIError.
func (c apiClient) do(ctx context.Context, r request, out any) (http.Header, error) {
	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to encode %s request: %w", c.provider, r.op, err)
		}
		body = bytes.NewReader(payload)
	}

	method := r.method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create %s request: %w", c.provider, r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(c.provider, r.op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s response: %w", c.provider, r.op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &integration.ExternalAPIError{
			Provider:   c.provider,
			Operation:  r.op,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(raw), maxErrorBodySize),
		}
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("%w: %s %s: %v", integration.ErrInvalidResponse, c.provider, r.op, err)
		}
	}
	return resp.Header, nil
}

// transportError wraps a failed round trip. The request URL is dropped
// because query strings may carry credentials.
func transportError(provider integration.Provider, op string, err error) *integration.ExternalAPIError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return &integration.ExternalAPIError{Provider: provider, Operation: op, Err: err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
