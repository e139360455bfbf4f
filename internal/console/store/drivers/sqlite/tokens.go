package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/forgeplex/psp-console/internal/console/domain"
)

type tokensRepo struct {
	db *sql.DB
}

func (r *tokensRepo) Save(ctx context.Context, pair domain.TokenPair, expiresAt time.Time) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (id, access_token, refresh_token, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			access_token  = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at    = excluded.expires_at,
			updated_at    = excluded.updated_at`,
		pair.AccessToken, pair.RefreshToken, expiresAt.UTC().Format(time.RFC3339), now)
	return err
}

func (r *tokensRepo) Load(ctx context.Context) (domain.TokenPair, time.Time, error) {
	var pair domain.TokenPair
	var expiresAt string

	row := r.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, expires_at FROM tokens WHERE id = 1`)
	if err := row.Scan(&pair.AccessToken, &pair.RefreshToken, &expiresAt); err != nil {
		return domain.TokenPair{}, time.Time{}, mapNotFound(err)
	}

	exp, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return domain.TokenPair{}, time.Time{}, err
	}
	return pair, exp, nil
}

func (r *tokensRepo) Delete(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE id = 1`)
	return err
}
