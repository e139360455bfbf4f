package cryptox_test

import (
	"testing"

	"github.com/forgeplex/psp-console/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestDeviceFingerprintDeterministic(t *testing.T) {
	t.Parallel()

	a, err := cryptox.DeviceFingerprint("device-1", "host", "linux")
	require.NoError(t, err)
	b, err := cryptox.DeviceFingerprint("device-1", "host", "linux")
	require.NoError(t, err)

	require.Equal(t, a, b)
	require.Len(t, a, 43)
}

func TestDeviceFingerprintKeyedByDeviceID(t *testing.T) {
	t.Parallel()

	a, err := cryptox.DeviceFingerprint("device-1", "host", "linux")
	require.NoError(t, err)
	b, err := cryptox.DeviceFingerprint("device-2", "host", "linux")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestDeviceFingerprintLongKeyTruncated(t *testing.T) {
	t.Parallel()

	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}

	_, err := cryptox.DeviceFingerprint(string(long), "host")
	require.NoError(t, err)
}

func TestDeviceFingerprintRejectsEmptyID(t *testing.T) {
	t.Parallel()

	_, err := cryptox.DeviceFingerprint("")
	require.Error(t, err)
}

func TestFingerprintCodeStable(t *testing.T) {
	t.Parallel()

	fp := cryptox.FingerprintCode("A8F2K9M3")
	require.Equal(t, fp, cryptox.FingerprintCode("A8F2K9M3"))
	require.NotEqual(t, fp, cryptox.FingerprintCode("A8F2K9M4"))
	require.NotContains(t, fp, "A8F2")
}
