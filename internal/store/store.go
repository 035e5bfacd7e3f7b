package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Config selects the backing database for the record store. SQLite is the
// default; postgres and mysql are supported for shared deployments where
// multiple instances contend on the same records.
type Config struct {
	Driver  string // "sqlite" (default), "postgres", "mysql"
	DSN     string // ignored for sqlite when DataDir is set
	DataDir string // sqlite database directory; empty = in-memory
}

// Store is the system of record: accounts, API keys, QR codes, settings.
// All counter mutations are single atomic UPDATE statements so concurrent
// callers never lose increments.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New opens the record store and runs migrations.
func New(cfg Config) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
	}

	var db *sqlx.DB
	var err error

	switch driver {
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			if cfg.DataDir == "" {
				dsn = ":memory:?_journal_mode=WAL"
			} else {
				if mkErr := os.MkdirAll(cfg.DataDir, 0755); mkErr != nil {
					return nil, fmt.Errorf("create data dir: %w", mkErr)
				}
				dsn = filepath.Join(cfg.DataDir, "qrforge.db") + "?_journal_mode=WAL&_busy_timeout=5000"
			}
		}
		db, err = sqlx.Connect("sqlite", dsn)
		if err == nil {
			db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
		}
	case "postgres":
		db, err = sqlx.Connect("pgx", cfg.DSN)
	case "mysql":
		db, err = sqlx.Connect("mysql", cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(driver); err != nil {
		return nil, fmt.Errorf("migrate record store: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the backing database is reachable.
func (s *Store) Ping() error {
	return s.db.Ping()
}

// rebind translates ? placeholders to the driver's bind style.
func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}

// insertID runs a named INSERT and returns the new row's id. The pgx
// driver does not implement LastInsertId, so postgres gets a RETURNING
// clause instead.
func (s *Store) insertID(ctx context.Context, query string, arg any) (int64, error) {
	if s.driver == "postgres" {
		rows, err := s.db.NamedQueryContext(ctx, query+" RETURNING id", arg)
		if err != nil {
			return 0, err
		}
		defer rows.Close()
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return 0, err
			}
			return 0, sql.ErrNoRows
		}
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := s.db.NamedExecContext(ctx, query, arg)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}
