package consolesdk

import (
	"context"

	"github.com/go-webauthn/webauthn/protocol"
)

// PasskeyRegistrationOptions fetches WebAuthn creation options for enrolling
// a passkey on this device.
func (c *Client) PasskeyRegistrationOptions(ctx context.Context, sessionID string) (*protocol.CredentialCreation, error) {
	var opts protocol.CredentialCreation
	err := c.do(ctx, "/api/admin/mfa/passkey/registration/options", nil, &opts, withSessionID(sessionID))
	if err != nil {
		return nil, err
	}
	return &opts, nil
}

// PasskeyRegistrationComplete submits the attestation produced by the
// authenticator. On success the device's passkey is usable for future
// authentication ceremonies.
func (c *Client) PasskeyRegistrationComplete(ctx context.Context, sessionID string, attestation *protocol.CredentialCreationResponse) (bool, error) {
	var resp struct {
		Success bool `json:"success"`
	}
	err := c.do(ctx, "/api/admin/mfa/passkey/registration/complete", attestation, &resp, withSessionID(sessionID))
	if err != nil {
		return false, err
	}
	return resp.Success, nil
}

// PasskeyAuthenticationOptions fetches WebAuthn request options for
// authenticating with an enrolled passkey.
func (c *Client) PasskeyAuthenticationOptions(ctx context.Context, sessionID string) (*protocol.CredentialAssertion, error) {
	var opts protocol.CredentialAssertion
	err := c.do(ctx, "/api/admin/mfa/passkey/authentication/options", nil, &opts, withSessionID(sessionID))
	if err != nil {
		return nil, err
	}
	return &opts, nil
}

// PasskeyAuthenticationVerify submits the assertion produced by the
// authenticator and, on success, returns the token-bearing verification
// result.
func (c *Client) PasskeyAuthenticationVerify(ctx context.Context, sessionID string, assertion *protocol.CredentialAssertionResponse) (*VerifyResponse, error) {
	var resp VerifyResponse
	err := c.do(ctx, "/api/admin/mfa/passkey/authentication/verify", assertion, &resp, withSessionID(sessionID))
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &APIError{Code: CodePasskeyFailed, Message: "passkey verification rejected"}
	}
	return &resp, nil
}
