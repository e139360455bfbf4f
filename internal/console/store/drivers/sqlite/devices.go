package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/forgeplex/psp-console/internal/console/domain"
)

type devicesRepo struct {
	db *sql.DB
}

func (r *devicesRepo) Identity(ctx context.Context) (domain.DeviceIdentity, error) {
	var id domain.DeviceIdentity
	var createdAt string

	row := r.db.QueryRowContext(ctx, `
		SELECT device_id, fingerprint, created_at FROM device_identity WHERE id = 1`)
	if err := row.Scan(&id.ID, &id.Fingerprint, &createdAt); err != nil {
		return domain.DeviceIdentity{}, mapNotFound(err)
	}

	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return domain.DeviceIdentity{}, err
	}
	id.CreatedAt = ts
	return id, nil
}

func (r *devicesRepo) SaveIdentity(ctx context.Context, id domain.DeviceIdentity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_identity (id, device_id, fingerprint, created_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			device_id   = excluded.device_id,
			fingerprint = excluded.fingerprint,
			created_at  = excluded.created_at`,
		id.ID, id.Fingerprint, id.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *devicesRepo) SaveMarker(ctx context.Context, m domain.TrustedDeviceMarker) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trusted_devices (fingerprint, trusted_until, noted_at)
		VALUES (?, ?, ?)
		ON CONFLICT (fingerprint) DO UPDATE SET
			trusted_until = excluded.trusted_until,
			noted_at      = excluded.noted_at`,
		m.Fingerprint,
		m.TrustedUntil.UTC().Format(time.RFC3339),
		m.NotedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *devicesRepo) Marker(ctx context.Context, fingerprint string) (domain.TrustedDeviceMarker, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT fingerprint, trusted_until, noted_at FROM trusted_devices WHERE fingerprint = ?`,
		fingerprint)
	return scanMarker(row)
}

func (r *devicesRepo) Markers(ctx context.Context) ([]domain.TrustedDeviceMarker, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT fingerprint, trusted_until, noted_at FROM trusted_devices
		ORDER BY noted_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markers []domain.TrustedDeviceMarker
	for rows.Next() {
		m, err := scanMarker(rows)
		if err != nil {
			return nil, err
		}
		markers = append(markers, m)
	}
	return markers, rows.Err()
}

func (r *devicesRepo) DeleteMarker(ctx context.Context, fingerprint string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM trusted_devices WHERE fingerprint = ?`, fingerprint)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarker(row rowScanner) (domain.TrustedDeviceMarker, error) {
	var m domain.TrustedDeviceMarker
	var trustedUntil, notedAt string

	if err := row.Scan(&m.Fingerprint, &trustedUntil, &notedAt); err != nil {
		return domain.TrustedDeviceMarker{}, mapNotFound(err)
	}

	var err error
	if m.TrustedUntil, err = time.Parse(time.RFC3339, trustedUntil); err != nil {
		return domain.TrustedDeviceMarker{}, err
	}
	if m.NotedAt, err = time.Parse(time.RFC3339, notedAt); err != nil {
		return domain.TrustedDeviceMarker{}, err
	}
	return m, nil
}
