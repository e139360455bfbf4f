package flow

import (
	"context"
	"fmt"

	"github.com/forgeplex/psp-console/pkg/consolesdk"
	"github.com/forgeplex/psp-console/pkg/webauthnx"
)

// PasskeyCeremony pairs the backend's WebAuthn endpoints with a local
// authenticator. Both ceremonies are two round trips: fetch options, run the
// authenticator, send the result back.
type PasskeyCeremony struct {
	api  *consolesdk.Client
	auth webauthnx.Authenticator
}

func NewPasskeyCeremony(api *consolesdk.Client, auth webauthnx.Authenticator) *PasskeyCeremony {
	return &PasskeyCeremony{api: api, auth: auth}
}

// Authenticate runs the assertion ceremony for an unauthenticated login
// session. A cancelled ceremony comes back as webauthnx.ErrCancelled and the
// caller treats it as a non-event.
func (p *PasskeyCeremony) Authenticate(ctx context.Context, sessionID string) (*consolesdk.VerifyResponse, error) {
	opts, err := p.api.PasskeyAuthenticationOptions(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	assertion, err := p.auth.Get(ctx, opts)
	if err != nil {
		return nil, err
	}

	return p.api.PasskeyAuthenticationVerify(ctx, sessionID, assertion)
}

// Register runs the attestation ceremony to add a passkey to the account
// behind an active login session.
func (p *PasskeyCeremony) Register(ctx context.Context, sessionID string) error {
	opts, err := p.api.PasskeyRegistrationOptions(ctx, sessionID)
	if err != nil {
		return err
	}

	attestation, err := p.auth.Create(ctx, opts)
	if err != nil {
		return err
	}

	ok, err := p.api.PasskeyRegistrationComplete(ctx, sessionID, attestation)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("flow: passkey registration not accepted")
	}
	return nil
}
