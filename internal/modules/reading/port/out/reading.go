package out

import (
	"context"

	librarydomain "readjourney/internal/modules/library/domain"
	"readjourney/internal/modules/reading/domain"
)

// SessionStore applies session mutations on the record store. It never returns
// the resulting state; callers re-fetch the book.
type SessionStore interface {
	StartSession(ctx context.Context, bookID string, page int) error
	FinishSession(ctx context.Context, bookID string, page int) error
	// DeleteSession removes one session; sessionID is the store id when known,
	// otherwise the derived "<bookId>-<index>" id.
	DeleteSession(ctx context.Context, bookID, sessionID string) error
}

// BookReader fetches a book with its raw progress entries.
type BookReader interface {
	GetBook(ctx context.Context, bookID string) (librarydomain.Book, error)
}

type DiaryEntry struct {
	Book     librarydomain.Book
	Sessions []domain.ReadingSession
	Stats    domain.Stats
}

type DiaryWriter interface {
	WriteDiary(ctx context.Context, entry DiaryEntry) (string, error)
}
