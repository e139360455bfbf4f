package flow

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// BackupCodeVault holds the recovery codes issued by an enrollment or a
// regeneration for their single display window. Once the flow moves past the
// backup-codes step the vault is dropped and the codes are gone for good;
// there is no way to fetch them again.
type BackupCodeVault struct {
	mu           sync.Mutex
	codes        []string
	issuedAt     time.Time
	acknowledged bool
}

func NewBackupCodeVault(codes []string) *BackupCodeVault {
	return &BackupCodeVault{
		codes:    append([]string(nil), codes...),
		issuedAt: time.Now().UTC(),
	}
}

// Codes returns the raw codes in issue order.
func (v *BackupCodeVault) Codes() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.codes...)
}

// Formatted returns the codes grouped for display, e.g. "A3F9-K2M7".
func (v *BackupCodeVault) Formatted() []string {
	codes := v.Codes()
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = GroupRecoveryCode(NormalizeRecoveryCode(c))
	}
	return out
}

// ClipboardText renders the codes one per line for a copy action.
func (v *BackupCodeVault) ClipboardText() string {
	return strings.Join(v.Formatted(), "\n")
}

// WriteTo writes a small text file with the codes and their issue time.
// Copying or downloading counts as acknowledgement.
func (v *BackupCodeVault) WriteTo(w io.Writer) (int64, error) {
	v.mu.Lock()
	issuedAt := v.issuedAt
	v.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "PSP admin console recovery codes (issued %s)\n", issuedAt.Format(time.RFC3339))
	b.WriteString("Each code works exactly once. Store this file somewhere safe.\n\n")
	for _, c := range v.Formatted() {
		b.WriteString(c)
		b.WriteByte('\n')
	}

	n, err := io.WriteString(w, b.String())
	if err == nil {
		v.Acknowledge()
	}
	return int64(n), err
}

// Acknowledge records that the user confirmed saving the codes. The confirm
// action stays disabled until this has happened.
func (v *BackupCodeVault) Acknowledge() {
	v.mu.Lock()
	v.acknowledged = true
	v.mu.Unlock()
}

func (v *BackupCodeVault) Acknowledged() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.acknowledged
}
