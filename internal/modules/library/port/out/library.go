package out

import (
	"context"

	"readjourney/internal/modules/library/domain"
)

// BookStore is the record store owning the user's library.
type BookStore interface {
	// List returns the library; status narrows it when the store supports filtering.
	List(ctx context.Context, status domain.BookStatus) ([]domain.Book, error)
	Get(ctx context.Context, id string) (domain.Book, error)
	Add(ctx context.Context, book domain.NewBook) (domain.Book, error)
	AddFromCatalog(ctx context.Context, catalogID string) (domain.Book, error)
	Remove(ctx context.Context, id string) error
	Recommended(ctx context.Context, query domain.CatalogQuery) (domain.CatalogPage, error)
}

// ImageCache remembers cover images per book id across restarts.
type ImageCache interface {
	Image(ctx context.Context, bookID string) (string, bool, error)
	RememberImages(ctx context.Context, images map[string]string) error
}

type PageCounter interface {
	CountPages(ctx context.Context, path string) (int, error)
}
