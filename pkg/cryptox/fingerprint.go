// Package cryptox provides the small pieces of hashing the console needs:
// deriving a stable device fingerprint and fingerprinting one-time codes so
// they can be remembered without storing the code itself.
package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// DeviceFingerprint derives a stable fingerprint from a locally generated
// device id and a set of machine attributes (hostname, OS, user). The device
// id acts as the hash key, so the fingerprint cannot be reproduced from the
// attributes alone.
//
// The result is base64url, 43 chars, safe for headers and storage.
func DeviceFingerprint(deviceID string, attrs ...string) (string, error) {
	if deviceID == "" {
		return "", fmt.Errorf("cryptox: device id must not be empty")
	}

	key := []byte(deviceID)
	if len(key) > blake2b.Size {
		key = key[:blake2b.Size]
	}

	h, err := blake2b.New256(key)
	if err != nil {
		return "", fmt.Errorf("cryptox: failed to init blake2b: %w", err)
	}
	h.Write([]byte(strings.Join(attrs, "\x00")))

	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

// FingerprintCode returns a deterministic SHA-256 fingerprint of a one-time
// code. It lets the client remember which codes were already consumed without
// ever persisting the code value.
func FingerprintCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
