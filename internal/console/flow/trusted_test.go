package flow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrustedDeviceRegistry(t *testing.T) {
	t.Parallel()

	t.Run("fingerprint is minted once and stable", func(t *testing.T) {
		reg := NewTrustedDeviceRegistry(newMemDevices())

		first, err := reg.Fingerprint(context.Background())
		require.NoError(t, err)
		require.NotEmpty(t, first)

		second, err := reg.Fingerprint(context.Background())
		require.NoError(t, err)
		require.Equal(t, first, second)
	})

	t.Run("separate installs get different fingerprints", func(t *testing.T) {
		a, err := NewTrustedDeviceRegistry(newMemDevices()).Fingerprint(context.Background())
		require.NoError(t, err)
		b, err := NewTrustedDeviceRegistry(newMemDevices()).Fingerprint(context.Background())
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})

	t.Run("trust follows the recorded window", func(t *testing.T) {
		reg := NewTrustedDeviceRegistry(newMemDevices())
		fp, err := reg.Fingerprint(context.Background())
		require.NoError(t, err)

		trusted, err := reg.Trusted(context.Background())
		require.NoError(t, err)
		require.False(t, trusted)

		require.NoError(t, reg.Note(context.Background(), fp, time.Now().Add(time.Hour)))
		trusted, err = reg.Trusted(context.Background())
		require.NoError(t, err)
		require.True(t, trusted)
	})

	t.Run("an expired window is not trusted", func(t *testing.T) {
		reg := NewTrustedDeviceRegistry(newMemDevices())
		fp, err := reg.Fingerprint(context.Background())
		require.NoError(t, err)

		require.NoError(t, reg.Note(context.Background(), fp, time.Now().Add(-time.Minute)))
		trusted, err := reg.Trusted(context.Background())
		require.NoError(t, err)
		require.False(t, trusted)
	})

	t.Run("forget drops the marker", func(t *testing.T) {
		reg := NewTrustedDeviceRegistry(newMemDevices())
		fp, err := reg.Fingerprint(context.Background())
		require.NoError(t, err)
		require.NoError(t, reg.Note(context.Background(), fp, time.Now().Add(time.Hour)))

		require.NoError(t, reg.Forget(context.Background(), fp))
		trusted, err := reg.Trusted(context.Background())
		require.NoError(t, err)
		require.False(t, trusted)

		markers, err := reg.Markers(context.Background())
		require.NoError(t, err)
		require.Empty(t, markers)
	})
}
