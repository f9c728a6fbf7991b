package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"readjourney/internal/modules/library/domain"
	libraryout "readjourney/internal/modules/library/port/out"
	apperrors "readjourney/internal/platform/errors"
)

type BookService struct {
	store  libraryout.BookStore
	images libraryout.ImageCache
	pages  libraryout.PageCounter
	logger *slog.Logger
}

func NewBookService(store libraryout.BookStore, images libraryout.ImageCache, pages libraryout.PageCounter, logger *slog.Logger) *BookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookService{store: store, images: images, pages: pages, logger: logger}
}

// ListBooks returns the library narrowed to status. Filtering is repeated here so
// stores that ignore the filter still yield a consistent result.
func (s *BookService) ListBooks(ctx context.Context, status domain.BookStatus) ([]domain.Book, error) {
	if err := status.Validate(); err != nil {
		return nil, apperrors.Validation("list books", err.Error())
	}
	books, err := s.store.List(ctx, status)
	if err != nil {
		return nil, err
	}
	books = domain.FilterByStatus(books, status)
	for i := range books {
		books[i].ImageURL = s.resolveImage(ctx, books[i])
	}
	return books, nil
}

func (s *BookService) GetBook(ctx context.Context, id string) (domain.Book, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Book{}, apperrors.Validation("get book", "book id is required")
	}
	book, err := s.store.Get(ctx, id)
	if err != nil {
		return domain.Book{}, err
	}
	book.ImageURL = s.resolveImage(ctx, book)
	return book, nil
}

// AddBook stores a new book. When totalPages is zero and pdfPath is set the
// page count is read from the PDF.
func (s *BookService) AddBook(ctx context.Context, input domain.NewBook, pdfPath string) (domain.Book, error) {
	if input.TotalPages <= 0 && strings.TrimSpace(pdfPath) != "" {
		if s.pages == nil {
			return domain.Book{}, apperrors.Validation("add book", "pdf page counting is not available")
		}
		count, err := s.pages.CountPages(ctx, pdfPath)
		if err != nil {
			return domain.Book{}, apperrors.Validation("add book", fmt.Sprintf("read pdf: %v", err))
		}
		input.TotalPages = count
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Author = strings.TrimSpace(input.Author)
	if err := input.Validate(); err != nil {
		return domain.Book{}, apperrors.Validation("add book", err.Error())
	}
	book, err := s.store.Add(ctx, input)
	if err != nil {
		return domain.Book{}, err
	}
	if input.ImageURL != "" {
		s.remember(ctx, map[string]string{book.ID: input.ImageURL})
		book.ImageURL = input.ImageURL
	}
	book.ImageURL = s.resolveImage(ctx, book)
	return book, nil
}

func (s *BookService) AddRecommended(ctx context.Context, catalogID string) (domain.Book, error) {
	if strings.TrimSpace(catalogID) == "" {
		return domain.Book{}, apperrors.Validation("add recommended", "catalog id is required")
	}
	book, err := s.store.AddFromCatalog(ctx, catalogID)
	if err != nil {
		return domain.Book{}, err
	}
	book.ImageURL = s.resolveImage(ctx, book)
	return book, nil
}

func (s *BookService) RemoveBook(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.Validation("remove book", "book id is required")
	}
	return s.store.Remove(ctx, id)
}

// Recommended loads one catalog page and remembers the cover of every entry so
// adopted books keep their image.
func (s *BookService) Recommended(ctx context.Context, query domain.CatalogQuery) (domain.CatalogPage, error) {
	query = query.Normalize()
	page, err := s.store.Recommended(ctx, query)
	if err != nil {
		return domain.CatalogPage{}, err
	}
	if page.Page == 0 {
		page.Page = query.Page
	}
	if page.PerPage == 0 {
		page.PerPage = query.Limit
	}
	if page.TotalPages == 0 {
		page.TotalPages = 1
	}
	seen := make(map[string]string, len(page.Books))
	for i := range page.Books {
		if page.Books[i].ImageURL == "" {
			page.Books[i].ImageURL = domain.PlaceholderImage(page.Books[i].Title)
		}
		if page.Books[i].ID != "" {
			seen[page.Books[i].ID] = page.Books[i].ImageURL
		}
	}
	s.remember(ctx, seen)
	return page, nil
}

func (s *BookService) resolveImage(ctx context.Context, book domain.Book) string {
	if book.ImageURL != "" {
		return book.ImageURL
	}
	if s.images != nil && book.ID != "" {
		cached, ok, err := s.images.Image(ctx, book.ID)
		if err != nil {
			s.logger.Warn("image cache lookup failed", "book_id", book.ID, "error", err)
		}
		if ok && cached != "" {
			return cached
		}
	}
	return domain.PlaceholderImage(book.Title)
}

// remember is best effort; a cache failure never fails the library call.
func (s *BookService) remember(ctx context.Context, images map[string]string) {
	if s.images == nil || len(images) == 0 {
		return
	}
	if err := s.images.RememberImages(ctx, images); err != nil {
		s.logger.Warn("image cache write failed", "count", len(images), "error", err)
	}
}
