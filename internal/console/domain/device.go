package domain

import "time"

// DeviceIdentity is the locally generated identity of this installation: a
// random id minted on first use plus the fingerprint derived from it. The
// fingerprint is what the backend sees; the id never leaves the machine.
type DeviceIdentity struct {
	ID          string
	Fingerprint string
	CreatedAt   time.Time
}
