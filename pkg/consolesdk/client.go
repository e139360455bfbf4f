package consolesdk

import (
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every request so a dead backend surfaces as a
// transport failure instead of a hung call.
const DefaultTimeout = 15 * time.Second

// Client is a client for the PSP admin backend authentication API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// OnAuthFailure is invoked after a 401 response from any endpoint outside
	// the auth surface (login, MFA, refresh). The application hooks global
	// logout here. Optional.
	OnAuthFailure func()
}

// NewClient creates a client for the backend at baseURL. A non-positive
// timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// url builds a complete URL by appending the path to the base URL.
func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// authExempt reports whether a 401 from this path is an expected flow outcome
// (wrong credential, wrong code, stale refresh token) rather than a revoked
// session. Exempt paths never trigger OnAuthFailure.
func authExempt(path string) bool {
	for _, prefix := range []string{
		"/api/v1/auth/",
		"/api/admin/auth/",
		"/api/admin/mfa/",
	} {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
