package flow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgeplex/psp-console/internal/console/domain"
)

func TestOTPInput(t *testing.T) {
	t.Parallel()

	t.Run("reports the code exactly once at six digits", func(t *testing.T) {
		var in otpInput
		for _, ch := range "65432" {
			code, ready := in.Push(ch)
			require.False(t, ready)
			require.Empty(t, code)
		}

		code, ready := in.Push('1')
		require.True(t, ready)
		require.Equal(t, "654321", code)

		// The buffer reset with the ready signal, so the next digit starts
		// a fresh code instead of re-triggering.
		code, ready = in.Push('9')
		require.False(t, ready)
		require.Empty(t, code)
		require.Equal(t, 1, in.Len())
	})

	t.Run("ignores non-digits", func(t *testing.T) {
		var in otpInput
		for _, ch := range "a -#x" {
			_, ready := in.Push(ch)
			require.False(t, ready)
		}
		require.Zero(t, in.Len())
	})
}

func TestNormalizeRecoveryCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, "A3F9K2M7", NormalizeRecoveryCode("a3f9-k2m7"))
	require.Equal(t, "A3F9K2M7", NormalizeRecoveryCode(" A3F9 K2M7 "))
	require.Equal(t, "A3F9K2M7", NormalizeRecoveryCode("A3F9K2M7"))
	require.Empty(t, NormalizeRecoveryCode("---"))
}

func TestGroupRecoveryCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, "A3F9-K2M7", GroupRecoveryCode("A3F9K2M7"))
	require.Equal(t, "A3F9-K2M7-X1", GroupRecoveryCode("A3F9K2M7X1"))
	require.Equal(t, "A3F9", GroupRecoveryCode("A3F9"))
	require.Empty(t, GroupRecoveryCode(""))
}

func TestResolverDefaults(t *testing.T) {
	t.Parallel()

	t.Run("totp wins over passkey", func(t *testing.T) {
		var r MFAChallengeResolver
		r.Reset([]domain.MFAMethod{domain.MethodPasskey, domain.MethodTOTP})
		require.Equal(t, domain.MethodTOTP, r.Active())
	})

	t.Run("passkey is the fallback default", func(t *testing.T) {
		var r MFAChallengeResolver
		r.Reset([]domain.MFAMethod{domain.MethodRecovery, domain.MethodPasskey})
		require.Equal(t, domain.MethodPasskey, r.Active())
	})

	t.Run("recovery is never the default", func(t *testing.T) {
		var r MFAChallengeResolver
		r.Reset([]domain.MFAMethod{domain.MethodRecovery})
		require.Empty(t, r.Active())
	})
}

func TestResolverSelect(t *testing.T) {
	t.Parallel()

	var r MFAChallengeResolver
	r.Reset([]domain.MFAMethod{domain.MethodTOTP})

	t.Run("unoffered methods are rejected", func(t *testing.T) {
		require.Error(t, r.Select(domain.MethodPasskey))
	})

	t.Run("recovery is reachable even when not offered", func(t *testing.T) {
		require.NoError(t, r.Select(domain.MethodRecovery))
		require.Equal(t, domain.MethodRecovery, r.Active())
	})

	t.Run("selecting clears buffered input", func(t *testing.T) {
		r.SetRecoveryInput("A3F9K2M7")
		require.NoError(t, r.Select(domain.MethodTOTP))
		require.Empty(t, r.RecoveryInput())
	})
}

func TestResolverRecoveryInput(t *testing.T) {
	t.Parallel()

	var r MFAChallengeResolver
	r.Reset(nil)

	r.SetRecoveryInput("a3f9-k2")
	require.False(t, r.RecoverySubmittable())

	r.SetRecoveryInput("a3f9-k2m7")
	require.True(t, r.RecoverySubmittable())
	require.Equal(t, "A3F9K2M7", r.RecoveryInput())

	// Pasting something absurdly long is clipped to the longest legal code.
	r.SetRecoveryInput("A3F9K2M7A3F9K2M7")
	require.Len(t, r.RecoveryInput(), recoveryMaxLength)
}
