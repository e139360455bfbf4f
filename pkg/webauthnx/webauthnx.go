// Package webauthnx defines the narrow capability surface the login flow
// needs from a WebAuthn authenticator. The browser (or platform) credential
// API is inherently dynamic; keeping the flow behind this interface means the
// coordinator and its tests never touch a global credential object.
package webauthnx

import (
	"context"
	"errors"

	"github.com/go-webauthn/webauthn/protocol"
)

// ErrCancelled reports that the user dismissed or aborted the ceremony
// (NotAllowedError / AbortError in browser terms). It is a neutral outcome,
// not a verification failure: callers should return to an idle state and
// allow a retry without surfacing an error.
var ErrCancelled = errors.New("webauthnx: ceremony cancelled")

// Authenticator performs the two WebAuthn ceremonies. Both calls block on
// user presence or biometric confirmation, so they must honour context
// cancellation.
type Authenticator interface {
	// Create runs the registration ceremony against the server-issued
	// creation options and returns the attestation to send back.
	Create(ctx context.Context, opts *protocol.CredentialCreation) (*protocol.CredentialCreationResponse, error)

	// Get runs the authentication ceremony against the server-issued request
	// options and returns the assertion to send back.
	Get(ctx context.Context, opts *protocol.CredentialAssertion) (*protocol.CredentialAssertionResponse, error)
}

// Cancelled reports whether err represents a user-cancelled ceremony rather
// than a hard failure. Context cancellation counts: navigating away from the
// step aborts the ceremony the same way the user dismissing the prompt does.
func Cancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
