package flow

import (
	"fmt"
	"strings"

	"github.com/forgeplex/psp-console/internal/console/domain"
)

const (
	otpCodeLength      = 6
	recoveryMinLength  = 8
	recoveryMaxLength  = 12
	recoveryGroupWidth = 4
)

// otpInput accumulates one-time-code digits. Push reports the complete code
// exactly once, clearing the buffer as it does, so a caller driving a network
// submit off the ready signal cannot fire twice for the same six digits.
type otpInput struct {
	digits []rune
}

func (in *otpInput) Push(ch rune) (code string, ready bool) {
	if ch < '0' || ch > '9' {
		return "", false
	}
	if len(in.digits) >= otpCodeLength {
		return "", false
	}
	in.digits = append(in.digits, ch)
	if len(in.digits) < otpCodeLength {
		return "", false
	}
	code = string(in.digits)
	in.digits = nil
	return code, true
}

func (in *otpInput) Len() int { return len(in.digits) }

func (in *otpInput) Clear() { in.digits = nil }

// NormalizeRecoveryCode strips separators and whitespace and upcases what is
// left. Users paste codes with the display grouping intact, so "a3f9-k2m7"
// and "A3F9K2M7" are the same code.
func NormalizeRecoveryCode(raw string) string {
	var b strings.Builder
	for _, ch := range strings.ToUpper(raw) {
		switch {
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// GroupRecoveryCode renders a normalized code in four-character groups for
// display, e.g. "A3F9K2M7" becomes "A3F9-K2M7".
func GroupRecoveryCode(code string) string {
	if len(code) <= recoveryGroupWidth {
		return code
	}
	var groups []string
	for len(code) > recoveryGroupWidth {
		groups = append(groups, code[:recoveryGroupWidth])
		code = code[recoveryGroupWidth:]
	}
	groups = append(groups, code)
	return strings.Join(groups, "-")
}

// MFAChallengeResolver tracks which verification method is active and buffers
// the user's challenge input. It is pure state, the coordinator drives all
// network traffic.
type MFAChallengeResolver struct {
	available []domain.MFAMethod
	active    domain.MFAMethod
	otp       otpInput
	recovery  string
}

// Reset installs the methods the backend offered for this session and arms
// the default. Recovery is never the default even when it is the only entry,
// the user has to reach for it explicitly.
func (r *MFAChallengeResolver) Reset(available []domain.MFAMethod) {
	r.available = append([]domain.MFAMethod(nil), available...)
	r.active = domain.DefaultMethod(available)
	r.ClearInputs()
}

func (r *MFAChallengeResolver) Available() []domain.MFAMethod {
	return append([]domain.MFAMethod(nil), r.available...)
}

func (r *MFAChallengeResolver) Active() domain.MFAMethod { return r.active }

// Select switches the active method. Any buffered input from the previous
// method is dropped.
func (r *MFAChallengeResolver) Select(m domain.MFAMethod) error {
	if !r.offered(m) {
		return fmt.Errorf("flow: method %q not offered for this session", m)
	}
	r.active = m
	r.ClearInputs()
	return nil
}

func (r *MFAChallengeResolver) offered(m domain.MFAMethod) bool {
	// Recovery is always reachable as the fallback path even when the
	// backend omits it from the offered list.
	if m == domain.MethodRecovery {
		return true
	}
	for _, have := range r.available {
		if have == m {
			return true
		}
	}
	return false
}

// PushDigit feeds one one-time-code digit and reports the full code once the
// sixth digit lands.
func (r *MFAChallengeResolver) PushDigit(ch rune) (code string, ready bool) {
	return r.otp.Push(ch)
}

func (r *MFAChallengeResolver) OTPLen() int { return r.otp.Len() }

// SetRecoveryInput stores the normalized form of whatever the user typed.
func (r *MFAChallengeResolver) SetRecoveryInput(raw string) {
	code := NormalizeRecoveryCode(raw)
	if len(code) > recoveryMaxLength {
		code = code[:recoveryMaxLength]
	}
	r.recovery = code
}

func (r *MFAChallengeResolver) RecoveryInput() string { return r.recovery }

// RecoverySubmittable reports whether the buffered recovery code is long
// enough to send.
func (r *MFAChallengeResolver) RecoverySubmittable() bool {
	return len(r.recovery) >= recoveryMinLength
}

// ClearInputs drops all buffered challenge input. Called after every failed
// attempt so a rejected code never lingers on screen.
func (r *MFAChallengeResolver) ClearInputs() {
	r.otp.Clear()
	r.recovery = ""
}
