package domain

import "time"

// SessionStatus tracks the lifecycle of a server-side login attempt.
type SessionStatus string

const (
	SessionPending     SessionStatus = "pending"
	SessionMFARequired SessionStatus = "mfa_required"
	SessionVerified    SessionStatus = "verified"
	SessionExpired     SessionStatus = "expired"
)

// Session is the ephemeral record identifying an in-progress login attempt.
// It is created on credential submission and destroyed on verification
// success, explicit logout, or expiry. There is exactly one active Session
// per login attempt.
type Session struct {
	ID        string
	CreatedAt time.Time
	Status    SessionStatus
}

// Active reports whether the session can still accept MFA operations.
func (s Session) Active() bool {
	return s.ID != "" && (s.Status == SessionPending || s.Status == SessionMFARequired)
}
