package sqlitedb_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"readjourney/internal/platform/sqlitedb"
)

func TestWithinRollsBackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := sqlitedb.Open(ctx, filepath.Join(t.TempDir(), "rj.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	boom := errors.New("boom")
	err = db.Within(ctx, func(ctx context.Context) error {
		if _, err := db.Conn(ctx).ExecContext(ctx, `INSERT INTO users (id, name, email, password_hash, created_at) VALUES ('u-1', 'Ada', 'ada@example.com', 'x', 'now')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var count int
	if err := db.Conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, found %d users", count)
	}
}

func TestOpenSeedsCatalogOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rj.db")
	for i := 0; i < 2; i++ {
		db, err := sqlitedb.Open(ctx, path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		var count int
		if err := db.Conn(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog`).Scan(&count); err != nil {
			t.Fatalf("count catalog: %v", err)
		}
		if count != 8 {
			t.Fatalf("expected 8 catalog rows, got %d", count)
		}
		_ = db.Close()
	}
}
