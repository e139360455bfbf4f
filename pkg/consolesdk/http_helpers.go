package consolesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/forgeplex/psp-console/pkg/idx"
)

// requestOption customises a single request.
type requestOption func(*requestConfig)

type requestConfig struct {
	sessionID     string
	bearer        string
	sessionScoped bool
}

// withSessionID attaches the login session id via the X-Session-ID header.
// Used by unauthenticated MFA-scoped calls.
func withSessionID(sessionID string) requestOption {
	return func(rc *requestConfig) {
		rc.sessionID = sessionID
		rc.sessionScoped = true
	}
}

// withBearer attaches an access token for authenticated calls.
func withBearer(token string) requestOption {
	return func(rc *requestConfig) {
		rc.bearer = token
	}
}

// do performs a POST with a JSON body (nil for empty) and decodes the JSON
// response into out (nil to discard). Non-2xx responses are returned as typed
// errors, and a 401 outside the auth surface fires OnAuthFailure.
func (c *Client) do(ctx context.Context, path string, in, out any, opts ...requestOption) error {
	var rc requestConfig
	for _, opt := range opts {
		opt(&rc)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", idx.New().String())
	if rc.sessionID != "" {
		req.Header.Set("X-Session-ID", rc.sessionID)
	}
	if rc.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+rc.bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized && !authExempt(path) && c.OnAuthFailure != nil {
			c.OnAuthFailure()
		}
		return parseErrorResponse(resp.StatusCode, respBody, rc.sessionScoped)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
