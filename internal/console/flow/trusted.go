package flow

import (
	"context"
	"errors"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/forgeplex/psp-console/internal/console/domain"
	"github.com/forgeplex/psp-console/internal/console/store"
	"github.com/forgeplex/psp-console/pkg/cryptox"
)

// TrustedDeviceRegistry manages the local device identity and the trust
// markers the server has granted it. The registry never decides trust on its
// own: markers are written verbatim from server responses and the server
// re-checks the fingerprint on every login anyway.
type TrustedDeviceRegistry struct {
	devices store.Devices
	now     func() time.Time
}

func NewTrustedDeviceRegistry(devices store.Devices) *TrustedDeviceRegistry {
	return &TrustedDeviceRegistry{devices: devices, now: time.Now}
}

// Fingerprint returns the stable fingerprint for this install, minting and
// storing a device identity on first use.
func (t *TrustedDeviceRegistry) Fingerprint(ctx context.Context) (string, error) {
	id, err := t.devices.Identity(ctx)
	if err == nil {
		return id.Fingerprint, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	hostname, _ := os.Hostname()
	deviceID := uuid.NewString()
	fp, err := cryptox.DeviceFingerprint(deviceID, hostname, runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return "", err
	}

	id = domain.DeviceIdentity{
		ID:          deviceID,
		Fingerprint: fp,
		CreatedAt:   t.now().UTC(),
	}
	if err := t.devices.SaveIdentity(ctx, id); err != nil {
		return "", err
	}
	return fp, nil
}

// Note records a server-granted trust window for the fingerprint.
func (t *TrustedDeviceRegistry) Note(ctx context.Context, fingerprint string, trustedUntil time.Time) error {
	return t.devices.SaveMarker(ctx, domain.TrustedDeviceMarker{
		Fingerprint:  fingerprint,
		TrustedUntil: trustedUntil.UTC(),
		NotedAt:      t.now().UTC(),
	})
}

// Trusted reports whether this device holds an unexpired trust marker.
func (t *TrustedDeviceRegistry) Trusted(ctx context.Context) (bool, error) {
	fp, err := t.Fingerprint(ctx)
	if err != nil {
		return false, err
	}
	m, err := t.devices.Marker(ctx, fp)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return m.Valid(t.now()), nil
}

// Markers lists every stored trust marker.
func (t *TrustedDeviceRegistry) Markers(ctx context.Context) ([]domain.TrustedDeviceMarker, error) {
	return t.devices.Markers(ctx)
}

// Forget drops the marker for a fingerprint. The server-side trust window is
// untouched; this only stops the client from advertising the fingerprint.
func (t *TrustedDeviceRegistry) Forget(ctx context.Context, fingerprint string) error {
	return t.devices.DeleteMarker(ctx, fingerprint)
}
