package out_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	libraryout "readjourney/internal/modules/library/adapter/out"
	"readjourney/internal/modules/library/domain"
	"readjourney/internal/platform/clock"
	"readjourney/internal/platform/credential"
	apperrors "readjourney/internal/platform/errors"
	"readjourney/internal/platform/id"
	"readjourney/internal/platform/sqlitedb"
	"readjourney/internal/platform/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newLocalStore(t *testing.T) (*libraryout.SQLiteBookStore, *sqlitedb.DB) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlitedb.Open(ctx, filepath.Join(t.TempDir(), "rj.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if _, err := db.Conn(ctx).ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, created_at) VALUES ('u-1', 'Ada', 'ada@example.com', 'x', 'now')`); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	issuer := token.NewIssuer(token.Config{Secret: testSecret, Issuer: "readjourney", Audience: "readjourney", TTL: time.Hour}, nil)
	raw, err := issuer.Issue("u-1", "ada@example.com", "Ada")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	auth := sqlitedb.NewAuthenticator(db, issuer, credential.Static(raw))
	return libraryout.NewSQLiteBookStore(db, auth, clock.SystemClock{}, id.UUID{}), db
}

func TestSQLiteBookStoreAddListRemove(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newLocalStore(t)

	added, err := store.Add(ctx, domain.NewBook{Title: "Dune", Author: "Frank Herbert", TotalPages: 688})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.Status != domain.BookStatusUnread {
		t.Fatalf("new books start unread, got %q", added.Status)
	}
	if _, err := store.Add(ctx, domain.NewBook{Title: "Dune", Author: "Frank Herbert", TotalPages: 688}); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict on duplicate, got %v", err)
	}

	books, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(books) != 1 || books[0].ID != added.ID || len(books[0].Progress) != 0 {
		t.Fatalf("unexpected library %+v", books)
	}
	if done, err := store.List(ctx, domain.BookStatusDone); err != nil || len(done) != 0 {
		t.Fatalf("expected empty done shelf, got %+v (%v)", done, err)
	}

	if err := store.Remove(ctx, added.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.Get(ctx, added.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found after remove, got %v", err)
	}
	if err := store.Remove(ctx, added.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found on second remove, got %v", err)
	}
}

func TestSQLiteBookStoreRecommendedAndAdopt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _ := newLocalStore(t)

	page, err := store.Recommended(ctx, domain.CatalogQuery{Page: 1, Limit: 3})
	if err != nil {
		t.Fatalf("recommended: %v", err)
	}
	if len(page.Books) != 3 || page.TotalPages != 3 {
		t.Fatalf("expected 3 books on page 1 of 3, got %d of %d", len(page.Books), page.TotalPages)
	}

	filtered, err := store.Recommended(ctx, domain.CatalogQuery{Page: 1, Limit: 10, Title: "dune"})
	if err != nil {
		t.Fatalf("filtered: %v", err)
	}
	if len(filtered.Books) != 1 || filtered.Books[0].ID != "cat-2" {
		t.Fatalf("expected Dune only, got %+v", filtered.Books)
	}

	adopted, err := store.AddFromCatalog(ctx, "cat-2")
	if err != nil {
		t.Fatalf("adopt: %v", err)
	}
	if adopted.Title != "Dune" || adopted.TotalPages != 688 {
		t.Fatalf("unexpected adopted book %+v", adopted)
	}
	if _, err := store.AddFromCatalog(ctx, "cat-2"); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict adopting twice, got %v", err)
	}
	if _, err := store.AddFromCatalog(ctx, "cat-404"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found for unknown catalog id, got %v", err)
	}
}

func TestSQLiteBookStoreRequiresToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db, err := sqlitedb.Open(ctx, filepath.Join(t.TempDir(), "rj.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	issuer := token.NewIssuer(token.Config{Secret: testSecret, TTL: time.Hour}, nil)
	store := libraryout.NewSQLiteBookStore(db, sqlitedb.NewAuthenticator(db, issuer, credential.Static("")), clock.SystemClock{}, id.UUID{})
	if _, err := store.List(ctx, ""); !apperrors.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized without token, got %v", err)
	}
}
