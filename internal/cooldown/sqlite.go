package cooldown

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists values in a single key/value table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serialises writers inside the process.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS cooldown_state (
		key        TEXT PRIMARY KEY,
		value      REAL NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
	)`)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (float64, error) {
	var v float64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM cooldown_state WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select cooldown: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value float64) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO cooldown_state (key, value, updated_at)
		VALUES (?, ?, strftime('%s','now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("upsert cooldown: %w", err)
	}
	return nil
}

// CompareAndSwap runs in an immediate transaction so concurrent processes sharing
// the database file cannot both win.
func (s *SQLiteStore) CompareAndSwap(ctx context.Context, key string, old, new float64) (bool, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	var cur float64
	err = conn.QueryRowContext(ctx, `SELECT value FROM cooldown_state WHERE key = ?`, key).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		cur = 0
	case err != nil:
		return false, fmt.Errorf("select cooldown: %w", err)
	}
	if cur != old {
		return false, nil
	}

	if _, err := conn.ExecContext(ctx, `INSERT INTO cooldown_state (key, value, updated_at)
		VALUES (?, ?, strftime('%s','now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, new); err != nil {
		return false, fmt.Errorf("upsert cooldown: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return true, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
