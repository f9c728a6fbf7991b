package out_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	librarydomain "readjourney/internal/modules/library/domain"
	readingout "readjourney/internal/modules/reading/adapter/out"
	"readjourney/internal/modules/reading/domain"
	readingport "readjourney/internal/modules/reading/port/out"
	"readjourney/internal/platform/clock"
	"readjourney/internal/platform/markdown"
)

func ptr[T any](v T) *T { return &v }

func TestVaultDiaryStoreKeepsNotesOnReexport(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store := readingout.NewVaultDiaryStore(dir, clock.Fixed(time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)))
	book := librarydomain.Book{ID: "b1", Title: "Dune Messiah", Author: "Frank Herbert", TotalPages: 200, Progress: []librarydomain.RawProgressEntry{
		{StartPage: ptr(1), FinishPage: ptr(50), StartTime: ptr("s1"), FinishTime: ptr("f1"), Speed: ptr(40.0)},
	}}
	sessions := domain.Normalize(book)
	entry := readingport.DiaryEntry{Book: book, Sessions: sessions, Stats: domain.Aggregate(book, sessions)}

	path, err := store.WriteDiary(context.Background(), entry)
	if err != nil {
		t.Fatalf("write diary: %v", err)
	}
	if filepath.Base(path) != "dune-messiah.md" {
		t.Fatalf("unexpected diary path %s", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read diary: %v", err)
	}
	withNote := strings.Replace(string(raw), "## Notes\n", "## Notes\n\nLoved the desert chapters.\n", 1)
	if err := os.WriteFile(path, []byte(withNote), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}

	book.Progress = append(book.Progress, librarydomain.RawProgressEntry{StartPage: ptr(50), StartTime: ptr("s2")})
	sessions = domain.Normalize(book)
	entry = readingport.DiaryEntry{Book: book, Sessions: sessions, Stats: domain.Aggregate(book, sessions)}
	if _, err := store.WriteDiary(context.Background(), entry); err != nil {
		t.Fatalf("rewrite diary: %v", err)
	}
	raw, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("read diary: %v", err)
	}
	note, err := markdown.Parse(string(raw))
	if err != nil {
		t.Fatalf("parse diary: %v", err)
	}
	meta, body := note.Meta, note.Body
	if meta["book_id"] != "b1" || meta["pages_read"] != 49 || meta["currently_reading"] != true {
		t.Fatalf("unexpected frontmatter %+v", meta)
	}
	if !strings.Contains(body, "Loved the desert chapters.") {
		t.Fatalf("user notes were lost:\n%s", body)
	}
	table, ok := note.Section("sessions")
	if strings.Count(body, "<!-- readjourney:sessions:start -->") != 1 || !ok || !strings.Contains(table, "in progress") {
		t.Fatalf("managed block not replaced in place:\n%s", body)
	}
}
