package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLStore persists session modes in a single table. The same queries run
// on SQLite and Postgres; only the placeholder style differs.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

type dialect struct {
	name   string
	get    string
	upsert string
}

var (
	sqliteDialect = dialect{
		name: "sqlite",
		get:  `SELECT mode FROM session_modes WHERE session_id = ?`,
		upsert: `INSERT INTO session_modes (session_id, mode, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET mode = excluded.mode, updated_at = excluded.updated_at`,
	}
	postgresDialect = dialect{
		name: "postgres",
		get:  `SELECT mode FROM session_modes WHERE session_id = $1`,
		upsert: `INSERT INTO session_modes (session_id, mode, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (session_id) DO UPDATE SET mode = EXCLUDED.mode, updated_at = EXCLUDED.updated_at`,
	}
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS session_modes (
    session_id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    updated_at DATETIME NOT NULL
)`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS session_modes (
    session_id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

// OpenSQLite creates or opens a SQLite database at path. ":memory:" is
// accepted for tests.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// A pool of :memory: connections would each see a separate database.
	db.SetMaxOpenConns(1)
	return newSQLStore(ctx, db, sqliteDialect, sqliteSchema)
}

// OpenPostgres connects through the pgx database/sql driver.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	return newSQLStore(ctx, db, postgresDialect, postgresSchema)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, schema string) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging %s: %w", d.name, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running %s migrations: %w", d.name, err)
	}
	return &SQLStore{db: db, dialect: d}, nil
}

func (s *SQLStore) Mode(ctx context.Context, sessionID string) (string, error) {
	var mode string
	err := s.db.QueryRowContext(ctx, s.dialect.get, sessionID).Scan(&mode)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s get mode: %w", s.dialect.name, err)
	}
	return mode, nil
}

func (s *SQLStore) SetMode(ctx context.Context, sessionID, mode string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, sessionID, mode, time.Now().UTC()); err != nil {
		return fmt.Errorf("%s set mode: %w", s.dialect.name, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
