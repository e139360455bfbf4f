package consolesdk

import (
	"context"
	"fmt"
)

// TOTPSetup begins TOTP enrollment for an unauthenticated login session and
// returns the one-time enrollment material. Callers own keeping the secret
// out of logs and persistent storage.
func (c *Client) TOTPSetup(ctx context.Context, sessionID string) (*TOTPSetupResponse, error) {
	var resp TOTPSetupResponse
	err := c.do(ctx, "/api/admin/mfa/totp/setup", nil, &resp, withSessionID(sessionID))
	if err != nil {
		return nil, err
	}
	if resp.Secret == "" || resp.QRCodeURI == "" {
		return nil, fmt.Errorf("totp setup response missing enrollment material")
	}
	return &resp, nil
}

// TOTPBind confirms enrollment by verifying a code derived from the secret
// issued by TOTPSetup. Success=false means the code did not match; the
// session and secret stay valid for another attempt.
func (c *Client) TOTPBind(ctx context.Context, sessionID, code string) (*TOTPBindResponse, error) {
	var resp TOTPBindResponse
	err := c.do(ctx, "/api/admin/mfa/totp/bind", TOTPBindRequest{Code: code}, &resp, withSessionID(sessionID))
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Verify submits a TOTP or recovery code for the login session. A rejected
// code is returned as a challenge-class *APIError, not a VerifyResponse with
// Success=false.
func (c *Client) Verify(ctx context.Context, sessionID string, req VerifyRequest) (*VerifyResponse, error) {
	var resp VerifyResponse
	err := c.do(ctx, "/api/admin/auth/mfa/verify", req, &resp, withSessionID(sessionID))
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &APIError{Code: CodeInvalidMFACode, Message: "verification rejected"}
	}
	return &resp, nil
}

// RegenerateBackupCodes reissues the full set of recovery codes for the
// authenticated account. Every previously issued code is dead on success.
func (c *Client) RegenerateBackupCodes(ctx context.Context, accessToken string) ([]string, error) {
	var resp RegenerateBackupCodesResponse
	err := c.do(ctx, "/api/admin/mfa/backup-codes/regenerate", nil, &resp, withBearer(accessToken))
	if err != nil {
		return nil, err
	}
	if len(resp.BackupCodes) == 0 {
		return nil, fmt.Errorf("regenerate response contained no backup codes")
	}
	return resp.BackupCodes, nil
}
