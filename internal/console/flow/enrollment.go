package flow

import (
	"context"
	"fmt"
	"sync"

	"github.com/pquerna/otp"

	"github.com/forgeplex/psp-console/internal/console/domain"
	"github.com/forgeplex/psp-console/pkg/consolesdk"
)

// TOTPEnrollment holds the one-shot enrollment material for the setup step.
// The secret lives in memory only: it is zeroed the moment the flow leaves
// the setup step, whether by bind success, back navigation, or session loss.
type TOTPEnrollment struct {
	api *consolesdk.Client

	mu           sync.Mutex
	material     *domain.TOTPEnrollmentMaterial
	revealSecret bool
}

func NewTOTPEnrollment(api *consolesdk.Client) *TOTPEnrollment {
	return &TOTPEnrollment{api: api}
}

// Setup fetches fresh enrollment material for the session. A repeat call
// while material is already held is a no-op, so re-rendering the setup step
// does not burn a new secret.
func (e *TOTPEnrollment) Setup(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	if e.material != nil {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	resp, err := e.api.TOTPSetup(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := validateProvisioningURI(resp.QRCodeURI, resp.Secret); err != nil {
		return err
	}

	e.mu.Lock()
	e.material = &domain.TOTPEnrollmentMaterial{
		Secret:      resp.Secret,
		QRCodeURI:   resp.QRCodeURI,
		BackupCodes: append([]string(nil), resp.BackupCodes...),
	}
	e.revealSecret = false
	e.mu.Unlock()
	return nil
}

// validateProvisioningURI checks that the QR payload is a well-formed
// otpauth:// URI and that its embedded secret matches the one offered for
// manual entry. A mismatch would enroll the authenticator app and the manual
// path against different secrets.
func validateProvisioningURI(uri, secret string) error {
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return fmt.Errorf("flow: malformed provisioning uri: %w", err)
	}
	if key.Secret() != secret {
		return fmt.Errorf("flow: provisioning uri secret does not match manual-entry secret")
	}
	return nil
}

// Material returns the held enrollment material, or nil outside the setup
// step.
func (e *TOTPEnrollment) Material() *domain.TOTPEnrollmentMaterial {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.material == nil {
		return nil
	}
	m := *e.material
	m.BackupCodes = append([]string(nil), e.material.BackupCodes...)
	return &m
}

// RevealSecret toggles manual-entry display of the secret. The default is
// hidden; the QR code is the expected path.
func (e *TOTPEnrollment) RevealSecret(show bool) {
	e.mu.Lock()
	e.revealSecret = show
	e.mu.Unlock()
}

func (e *TOTPEnrollment) SecretRevealed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revealSecret
}

// Bind verifies a code from the freshly provisioned authenticator.
func (e *TOTPEnrollment) Bind(ctx context.Context, sessionID, code string) (*consolesdk.TOTPBindResponse, error) {
	e.mu.Lock()
	held := e.material != nil
	e.mu.Unlock()
	if !held {
		return nil, fmt.Errorf("flow: bind attempted without enrollment material")
	}
	return e.api.TOTPBind(ctx, sessionID, code)
}

// Discard zeroes the held material. Idempotent.
func (e *TOTPEnrollment) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.material == nil {
		return
	}
	*e.material = domain.TOTPEnrollmentMaterial{}
	e.material = nil
	e.revealSecret = false
}
