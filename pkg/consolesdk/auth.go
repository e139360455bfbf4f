package consolesdk

import (
	"context"
	"fmt"
)

// Login submits credentials and returns the backend's MFA decision for the
// new login session. A credential rejection comes back as an *APIError with
// an AUTH_* code.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, "/api/v1/auth/login", req, &resp); err != nil {
		return nil, err
	}
	if resp.SessionID == "" {
		return nil, fmt.Errorf("login response missing session id")
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a fresh token pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var resp TokenResponse
	err := c.do(ctx, "/api/v1/auth/refresh", RefreshRequest{RefreshToken: refreshToken}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout invalidates the server-side session for the given access token.
// Local state cleanup is the caller's responsibility.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, "/api/v1/auth/logout", nil, nil, withBearer(accessToken))
}
