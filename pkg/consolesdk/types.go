package consolesdk

// MFARequirement values returned in LoginResponse.MFAStatus.
const (
	MFANotRequired          = "not_required"
	MFAVerified             = "verified"
	MFARequiresVerification = "requires_verification"
	MFARequiresSetup        = "requires_setup"
)

// LoginRequest is the credential-submit payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`

	// DeviceFingerprint lets the backend match this client against a
	// previously established trust window. Optional.
	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
}

// MFAStatusPayload is the read-only projection of the account's MFA
// configuration included in login responses.
type MFAStatusPayload struct {
	Enabled              bool   `json:"enabled"`
	HasTOTP              bool   `json:"has_totp"`
	HasPasskey           bool   `json:"has_passkey"`
	PrimaryMethod        string `json:"primary_method"`
	BackupCodesRemaining int    `json:"backup_codes_remaining"`
}

// LoginResponse is returned from POST /api/v1/auth/login. Tokens are present
// only when MFAStatus is "verified" or "not_required".
type LoginResponse struct {
	SessionID         string            `json:"session_id"`
	MFAStatus         string            `json:"mfa_status"`
	AvailableMFATypes []string          `json:"available_mfa_types,omitempty"`
	MFA               *MFAStatusPayload `json:"mfa,omitempty"`

	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// VerifyRequest submits a TOTP or recovery code for an unauthenticated login
// session. TrustDevice asks the backend to open a trust window for the
// device identified by DeviceFingerprint; it is only honoured on a successful
// TOTP verification.
type VerifyRequest struct {
	Method            string `json:"method"`
	Code              string `json:"code"`
	TrustDevice       bool   `json:"trust_device,omitempty"`
	DeviceFingerprint string `json:"device_fingerprint,omitempty"`
}

// VerifyResponse is the verification result. BackupCodesRemaining is a
// pointer because the backend omits it for non-recovery verifications.
type VerifyResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`

	BackupCodesRemaining *int `json:"backup_codes_remaining,omitempty"`

	// TrustedUntil is the server-granted trust expiry (RFC3339) when the
	// request asked to trust this device. The duration is entirely
	// server-controlled.
	TrustedUntil string `json:"trusted_until,omitempty"`
}

// TOTPSetupResponse is the enrollment material issued once per attempt. The
// backup codes here are the same ones the user later confirms having saved;
// they are not regenerated between steps.
type TOTPSetupResponse struct {
	Secret      string   `json:"secret"`
	QRCodeURI   string   `json:"qr_code_uri"`
	BackupCodes []string `json:"backup_codes"`
}

// TOTPBindRequest confirms enrollment with a code from the freshly issued
// secret.
type TOTPBindRequest struct {
	Code string `json:"code"`
}

// TOTPBindResponse reports whether the bind code matched. On success the
// backend issues the session's token pair here, since enrollment doubles as
// this login's verification.
type TOTPBindResponse struct {
	Success bool `json:"success"`

	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// RegenerateBackupCodesResponse carries a fresh set of codes; all previous
// codes are invalid the moment this call succeeds.
type RegenerateBackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is a token pair as issued by login, verify or refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}
