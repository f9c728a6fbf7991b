package out

import (
	"context"

	librarydomain "readjourney/internal/modules/library/domain"
	libraryin "readjourney/internal/modules/library/port/in"
	readingout "readjourney/internal/modules/reading/port/out"
)

// LibraryBookReader reads books through the library usecase.
type LibraryBookReader struct {
	library libraryin.Usecase
}

var _ readingout.BookReader = (*LibraryBookReader)(nil)

func NewLibraryBookReader(library libraryin.Usecase) *LibraryBookReader {
	return &LibraryBookReader{library: library}
}

func (r *LibraryBookReader) GetBook(ctx context.Context, bookID string) (librarydomain.Book, error) {
	detail, err := r.library.GetBook(ctx, bookID)
	if err != nil {
		return librarydomain.Book{}, err
	}
	return librarydomain.Book{
		ID:         detail.ID,
		Title:      detail.Title,
		Author:     detail.Author,
		TotalPages: detail.TotalPages,
		Status:     librarydomain.BookStatus(detail.Status),
		ImageURL:   detail.ImageURL,
		Progress:   detail.Progress,
	}, nil
}
