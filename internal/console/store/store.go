// Package store defines the durable client-side state the console keeps
// between runs: the issued token pair, the device identity and trust markers,
// and fingerprints of recovery codes already consumed in a login session.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/forgeplex/psp-console/internal/console/domain"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface, implemented by concrete drivers
// (sqlite today). Every operation here is a single statement, so unlike a
// server-side store there is no transaction surface.
type Store interface {
	Tokens() Tokens
	Devices() Devices
	ConsumedCodes() ConsumedCodes

	ApplyMigrations() error

	// Close releases the underlying database.
	Close() error

	// Ping verifies the database is reachable and writable.
	Ping(ctx context.Context) error
}

// Tokens holds at most one token pair: the credentials of the currently
// authenticated operator.
type Tokens interface {
	// Save replaces the stored pair. expiresAt is the absolute access-token
	// expiry computed when the pair was received.
	Save(ctx context.Context, pair domain.TokenPair, expiresAt time.Time) error

	// Load returns the stored pair and its expiry, or ErrNotFound.
	Load(ctx context.Context) (domain.TokenPair, time.Time, error)

	// Delete removes the stored pair. Deleting an empty store is not an error.
	Delete(ctx context.Context) error
}

// Devices holds the local device identity and any server-granted trust
// markers.
type Devices interface {
	// Identity returns the stored device identity, or ErrNotFound before the
	// first SaveIdentity.
	Identity(ctx context.Context) (domain.DeviceIdentity, error)

	// SaveIdentity stores the identity. There is only ever one per install.
	SaveIdentity(ctx context.Context, id domain.DeviceIdentity) error

	// SaveMarker upserts a trust marker by fingerprint.
	SaveMarker(ctx context.Context, m domain.TrustedDeviceMarker) error

	// Marker returns the marker for a fingerprint, or ErrNotFound.
	Marker(ctx context.Context, fingerprint string) (domain.TrustedDeviceMarker, error)

	// Markers lists all stored trust markers, newest first.
	Markers(ctx context.Context) ([]domain.TrustedDeviceMarker, error)

	// DeleteMarker removes a marker. Missing markers are not an error.
	DeleteMarker(ctx context.Context, fingerprint string) error
}

// ConsumedCodes remembers which recovery codes were accepted within a login
// session, by fingerprint. This is what keeps a code single-use even if the
// process restarts while the session is still alive.
type ConsumedCodes interface {
	MarkConsumed(ctx context.Context, sessionID, codeFingerprint string) error
	Consumed(ctx context.Context, sessionID, codeFingerprint string) (bool, error)

	// PurgeSession drops all fingerprints recorded for a session, called once
	// the session itself is gone.
	PurgeSession(ctx context.Context, sessionID string) error
}
