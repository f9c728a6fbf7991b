package service

import (
	"context"
	"errors"

	librarydomain "readjourney/internal/modules/library/domain"
	"readjourney/internal/modules/reading/domain"
	readingout "readjourney/internal/modules/reading/port/out"
	apperrors "readjourney/internal/platform/errors"
)

// Snapshot is one consistent read of a book: raw -> sessions -> stats.
type Snapshot struct {
	Book     librarydomain.Book
	Found    bool
	Sessions []domain.ReadingSession
	Stats    domain.Stats
}

type ProgressService struct {
	books readingout.BookReader
}

func NewProgressService(books readingout.BookReader) *ProgressService {
	return &ProgressService{books: books}
}

// Load fetches the book and derives its sessions and stats. A book the store
// does not know yields an empty snapshot instead of an error.
func (s *ProgressService) Load(ctx context.Context, bookID string) (Snapshot, error) {
	book, err := s.books.GetBook(ctx, bookID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return Snapshot{Book: librarydomain.Book{ID: bookID}, Sessions: []domain.ReadingSession{}}, nil
	}
	if err != nil {
		return Snapshot{}, err
	}
	sessions := domain.Normalize(book)
	return Snapshot{
		Book:     book,
		Found:    true,
		Sessions: sessions,
		Stats:    domain.Aggregate(book, sessions),
	}, nil
}
