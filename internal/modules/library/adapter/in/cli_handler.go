package in

import (
	"context"

	"readjourney/internal/modules/library/dto"
	libraryin "readjourney/internal/modules/library/port/in"
)

type CLIHandler struct {
	usecase libraryin.Usecase
}

func NewCLIHandler(usecase libraryin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) List(ctx context.Context, status string) ([]dto.BookOutput, error) {
	return h.usecase.ListBooks(ctx, dto.ListBooksInput{Status: status})
}

func (h CLIHandler) Show(ctx context.Context, id string) (dto.BookDetailOutput, error) {
	return h.usecase.GetBook(ctx, id)
}

func (h CLIHandler) Add(ctx context.Context, title, author string, totalPages int, imageURL, pdfPath string) (dto.BookOutput, error) {
	return h.usecase.AddBook(ctx, dto.AddBookInput{
		Title:      title,
		Author:     author,
		TotalPages: totalPages,
		ImageURL:   imageURL,
		PDFPath:    pdfPath,
	})
}

func (h CLIHandler) Adopt(ctx context.Context, catalogID string) (dto.BookOutput, error) {
	return h.usecase.AddRecommended(ctx, catalogID)
}

func (h CLIHandler) Remove(ctx context.Context, id string) error {
	return h.usecase.RemoveBook(ctx, id)
}

func (h CLIHandler) Recommended(ctx context.Context, page, limit int, title, author string) (dto.CatalogPageOutput, error) {
	return h.usecase.Recommended(ctx, dto.RecommendedInput{Page: page, Limit: limit, Title: title, Author: author})
}
