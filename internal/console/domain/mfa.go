package domain

import (
	"strings"
	"time"
)

// MFAMethod identifies a verification strategy.
type MFAMethod string

const (
	MethodTOTP     MFAMethod = "totp"
	MethodPasskey  MFAMethod = "passkey"
	MethodRecovery MFAMethod = "recovery"
)

// challengePriority is the order used when picking a default method.
// Recovery is deliberately absent: it is only ever user-selected.
var challengePriority = []MFAMethod{MethodTOTP, MethodPasskey}

// DefaultMethod returns the method to pre-select from the server's offered
// list, or "" when none of the offered methods is eligible as a default.
func DefaultMethod(available []MFAMethod) MFAMethod {
	for _, want := range challengePriority {
		for _, m := range available {
			if m == want {
				return m
			}
		}
	}
	return ""
}

// MethodsFromStrings converts the wire representation of available MFA types,
// dropping anything unrecognised.
func MethodsFromStrings(raw []string) []MFAMethod {
	out := make([]MFAMethod, 0, len(raw))
	for _, s := range raw {
		switch m := MFAMethod(strings.ToLower(strings.TrimSpace(s))); m {
		case MethodTOTP, MethodPasskey, MethodRecovery:
			out = append(out, m)
		}
	}
	return out
}

// MFARequirement is the server's decision on what the login attempt needs
// next, returned with the credential-submit response.
type MFARequirement string

const (
	RequirementNone     MFARequirement = "not_required"
	RequirementVerified MFARequirement = "verified"
	RequirementVerify   MFARequirement = "requires_verification"
	RequirementSetup    MFARequirement = "requires_setup"
)

// Satisfied reports whether the requirement allows the flow to complete
// without any further MFA step.
func (r MFARequirement) Satisfied() bool {
	return r == RequirementNone || r == RequirementVerified
}

// MFAStatus is a read-only projection of the server-side MFA configuration
// for the authenticating account.
type MFAStatus struct {
	Enabled              bool
	HasTOTP              bool
	HasPasskey           bool
	PrimaryMethod        MFAMethod
	BackupCodesRemaining int
}

// BackupCode is a single-use recovery credential. Once Used flips to true it
// never flips back and the code is never displayed again.
type BackupCode struct {
	Code string
	Used bool
}

// TOTPEnrollmentMaterial is issued once per enrollment attempt. The secret
// must not be logged or persisted beyond the lifetime of the enrollment step.
type TOTPEnrollmentMaterial struct {
	Secret      string
	QRCodeURI   string
	BackupCodes []string
}

// TrustedDeviceMarker records a server-granted trust window for this device.
// The client only ever stores what the server returned; it cannot extend or
// fabricate trust.
type TrustedDeviceMarker struct {
	Fingerprint  string
	TrustedUntil time.Time
	NotedAt      time.Time
}

// Valid reports whether the trust window is still open at the given time.
func (m TrustedDeviceMarker) Valid(now time.Time) bool {
	return m.Fingerprint != "" && now.Before(m.TrustedUntil)
}
