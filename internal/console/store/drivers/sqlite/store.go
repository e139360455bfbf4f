package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/forgeplex/psp-console/internal/console/store"

	_ "modernc.org/sqlite"
)

// Store is the sqlite-backed client state store. The database lives in the
// operator's config directory; ":memory:" works for tests.
type Store struct {
	db  *sql.DB
	dsn string
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Single writer, and the file may sit on a network home dir.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dsn: dsn}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Tokens() store.Tokens               { return &tokensRepo{db: s.db} }
func (s *Store) Devices() store.Devices             { return &devicesRepo{db: s.db} }
func (s *Store) ConsumedCodes() store.ConsumedCodes { return &consumedCodesRepo{db: s.db} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
