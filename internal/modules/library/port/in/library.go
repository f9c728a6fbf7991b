package in

import (
	"context"

	"readjourney/internal/modules/library/dto"
)

type Usecase interface {
	ListBooks(ctx context.Context, input dto.ListBooksInput) ([]dto.BookOutput, error)
	GetBook(ctx context.Context, id string) (dto.BookDetailOutput, error)
	AddBook(ctx context.Context, input dto.AddBookInput) (dto.BookOutput, error)
	AddRecommended(ctx context.Context, catalogID string) (dto.BookOutput, error)
	RemoveBook(ctx context.Context, id string) error
	Recommended(ctx context.Context, input dto.RecommendedInput) (dto.CatalogPageOutput, error)
}
