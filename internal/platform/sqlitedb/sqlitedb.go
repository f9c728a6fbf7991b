// Package sqlitedb owns the local record store database: connection, schema,
// transactions and the seeded recommendation catalog.
package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const TimeLayout = "2006-01-02T15:04:05Z07:00"

type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type DB struct {
	db *sql.DB
}

type txKey struct{}

func Open(ctx context.Context, dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps foreign_keys on every statement.
	db.SetMaxOpenConns(1)
	store := &DB{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Conn returns the transaction bound to ctx, or the database itself.
func (d *DB) Conn(ctx context.Context) Querier {
	if sqlTx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return sqlTx
	}
	return d.db
}

// Within runs fn in one transaction. Nested calls join the outer one.
func (d *DB) Within(ctx context.Context, fn func(context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, sqlTx)); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (d *DB) ensureSchema(ctx context.Context) error {
	const ddl = `
PRAGMA foreign_keys = ON;
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS revoked_tokens (
  token TEXT PRIMARY KEY,
  revoked_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS catalog (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  author TEXT NOT NULL,
  total_pages INTEGER NOT NULL,
  image_url TEXT
);
CREATE TABLE IF NOT EXISTS books (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  author TEXT NOT NULL,
  total_pages INTEGER NOT NULL,
  image_url TEXT,
  status TEXT NOT NULL,
  created_at TEXT NOT NULL,
  UNIQUE(user_id, title, author)
);
CREATE TABLE IF NOT EXISTS progress (
  id TEXT PRIMARY KEY,
  book_id TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
  seq INTEGER NOT NULL,
  start_page INTEGER NOT NULL,
  finish_page INTEGER,
  start_time TEXT NOT NULL,
  finish_time TEXT,
  reading_time REAL,
  speed REAL,
  status TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS progress_book_seq ON progress(book_id, seq);
`
	if _, err := d.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return d.seedCatalog(ctx)
}

type catalogSeed struct {
	id, title, author string
	pages             int
}

var seeds = []catalogSeed{
	{"cat-1", "The Pragmatic Programmer", "Andrew Hunt, David Thomas", 352},
	{"cat-2", "Dune", "Frank Herbert", 688},
	{"cat-3", "The Go Programming Language", "Alan Donovan, Brian Kernighan", 400},
	{"cat-4", "Designing Data-Intensive Applications", "Martin Kleppmann", 616},
	{"cat-5", "The Left Hand of Darkness", "Ursula K. Le Guin", 304},
	{"cat-6", "Thinking, Fast and Slow", "Daniel Kahneman", 512},
	{"cat-7", "A Philosophy of Software Design", "John Ousterhout", 190},
	{"cat-8", "Project Hail Mary", "Andy Weir", 496},
}

func (d *DB) seedCatalog(ctx context.Context) error {
	for _, s := range seeds {
		if _, err := d.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO catalog (id, title, author, total_pages, image_url) VALUES (?, ?, ?, ?, '')`,
			s.id, s.title, s.author, s.pages,
		); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}
	return nil
}
