package sqlite

import (
	"context"
	"database/sql"
	"time"
)

type consumedCodesRepo struct {
	db *sql.DB
}

func (r *consumedCodesRepo) MarkConsumed(ctx context.Context, sessionID, codeFingerprint string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO consumed_codes (session_id, code_fingerprint, consumed_at)
		VALUES (?, ?, ?)
		ON CONFLICT (session_id, code_fingerprint) DO NOTHING`,
		sessionID, codeFingerprint, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (r *consumedCodesRepo) Consumed(ctx context.Context, sessionID, codeFingerprint string) (bool, error) {
	var one int
	row := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM consumed_codes WHERE session_id = ? AND code_fingerprint = ?`,
		sessionID, codeFingerprint)
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *consumedCodesRepo) PurgeSession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM consumed_codes WHERE session_id = ?`, sessionID)
	return err
}
