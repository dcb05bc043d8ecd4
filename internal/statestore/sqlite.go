package statestore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"jobharvest-engine/internal/store"
)

var sqliteSchema = []store.SchemaStep{
	{Version: 1, Stmts: []string{`
CREATE TABLE IF NOT EXISTS harvest_state (
  session TEXT NOT NULL,
  kind TEXT NOT NULL,
  value BLOB NOT NULL,
  updated_at TEXT NOT NULL,
  PRIMARY KEY (session, kind)
);`}},
}

type SQLite struct {
	db *store.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(db.Pool, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, session, kind string) ([]byte, error) {
	var v []byte
	err := s.db.Pool.QueryRowContext(ctx,
		`SELECT value FROM harvest_state WHERE session = ? AND kind = ? LIMIT 1;`,
		session, kind,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *SQLite) Put(ctx context.Context, session, kind string, value []byte) error {
	_, err := s.db.Pool.ExecContext(ctx, `
INSERT INTO harvest_state(session, kind, value, updated_at)
VALUES(?,?,?,?)
ON CONFLICT(session, kind) DO UPDATE SET
  value = excluded.value,
  updated_at = excluded.updated_at;
`, session, kind, value, time.Now().UTC().Format(time.RFC3339))
	return err
}

func (s *SQLite) Delete(ctx context.Context, session, kind string) error {
	_, err := s.db.Pool.ExecContext(ctx,
		`DELETE FROM harvest_state WHERE session = ? AND kind = ?;`, session, kind)
	return err
}

func (s *SQLite) ClearSession(ctx context.Context, session string) error {
	_, err := s.db.Pool.ExecContext(ctx, `DELETE FROM harvest_state WHERE session = ?;`, session)
	return err
}

// PruneBefore drops sessions untouched since cutoff; tabs that died with the
// process never get a close event.
func (s *SQLite) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.Pool.ExecContext(ctx,
		`DELETE FROM harvest_state WHERE updated_at < ?;`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLite) Close() error { return s.db.Close() }
