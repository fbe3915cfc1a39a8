// Package store handles history persistence in SQLite or Postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver.
	_ "modernc.org/sqlite"             // SQLite driver.

	"github.com/verte-zerg/retest/internal/model"
)

type dialect struct {
	driver     string
	idColumn   string
	returnsIDs bool
}

var (
	sqliteDialect   = dialect{driver: "sqlite", idColumn: "id INTEGER PRIMARY KEY"}
	postgresDialect = dialect{driver: "pgx", idColumn: "id BIGSERIAL PRIMARY KEY", returnsIDs: true}
)

// Store wraps database access for the check history.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open opens or creates the history database and applies migrations.
// A postgres:// or postgresql:// DSN selects Postgres; anything else is a
// SQLite file path.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	d := sqliteDialect
	if isPostgresDSN(dsn) {
		d = postgresDialect
	} else if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, err
	}
	if d.driver == "sqlite" {
		// One connection keeps :memory: databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}
	store := &Store{db: db, dialect: d}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS checks (
			` + s.dialect.idColumn + `,
			pattern TEXT NOT NULL,
			test_string TEXT NOT NULL,
			matched BOOLEAN NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_checks_created_at ON checks(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Append stores a check and returns it with its assigned ID.
func (s *Store) Append(ctx context.Context, entry model.HistoryEntry) (model.HistoryEntry, error) {
	query := `INSERT INTO checks (pattern, test_string, matched, created_at) VALUES (?, ?, ?, ?)`
	args := []any{
		entry.Pattern,
		entry.TestString,
		entry.Matched,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if s.dialect.returnsIDs {
		if err := s.db.QueryRowContext(ctx, s.rebind(query+` RETURNING id`), args...).Scan(&entry.ID); err != nil {
			return model.HistoryEntry{}, err
		}
		return entry, nil
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return model.HistoryEntry{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.HistoryEntry{}, err
	}
	entry.ID = id
	return entry, nil
}

// List returns up to limit entries, newest first. A non-positive limit returns all entries.
func (s *Store) List(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	query := `SELECT id, pattern, test_string, matched, created_at FROM checks ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		var entry model.HistoryEntry
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.Pattern, &entry.TestString, &entry.Matched, &createdAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		entry.Timestamp = parsed
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the number of recorded checks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checks`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
