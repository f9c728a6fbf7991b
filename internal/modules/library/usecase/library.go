package usecase

import (
	"context"

	"readjourney/internal/modules/library/domain"
	"readjourney/internal/modules/library/dto"
	libraryin "readjourney/internal/modules/library/port/in"
	"readjourney/internal/modules/library/service"
	"readjourney/internal/platform/validate"
)

type Interactor struct {
	svc      *service.BookService
	validate *validate.Validator
}

func NewInteractor(svc *service.BookService, v *validate.Validator) libraryin.Usecase {
	if v == nil {
		v = validate.New()
	}
	return &Interactor{svc: svc, validate: v}
}

func (i *Interactor) ListBooks(ctx context.Context, input dto.ListBooksInput) ([]dto.BookOutput, error) {
	if err := i.validate.Struct("list books", input); err != nil {
		return nil, err
	}
	books, err := i.svc.ListBooks(ctx, domain.BookStatus(input.Status))
	if err != nil {
		return nil, err
	}
	out := make([]dto.BookOutput, 0, len(books))
	for _, book := range books {
		out = append(out, toBookOutput(book))
	}
	return out, nil
}

func (i *Interactor) GetBook(ctx context.Context, id string) (dto.BookDetailOutput, error) {
	book, err := i.svc.GetBook(ctx, id)
	if err != nil {
		return dto.BookDetailOutput{}, err
	}
	return dto.BookDetailOutput{BookOutput: toBookOutput(book), Progress: book.Progress}, nil
}

func (i *Interactor) AddBook(ctx context.Context, input dto.AddBookInput) (dto.BookOutput, error) {
	if err := i.validate.Struct("add book", input); err != nil {
		return dto.BookOutput{}, err
	}
	book, err := i.svc.AddBook(ctx, domain.NewBook{
		Title:      input.Title,
		Author:     input.Author,
		TotalPages: input.TotalPages,
		ImageURL:   input.ImageURL,
	}, input.PDFPath)
	if err != nil {
		return dto.BookOutput{}, err
	}
	return toBookOutput(book), nil
}

func (i *Interactor) AddRecommended(ctx context.Context, catalogID string) (dto.BookOutput, error) {
	book, err := i.svc.AddRecommended(ctx, catalogID)
	if err != nil {
		return dto.BookOutput{}, err
	}
	return toBookOutput(book), nil
}

func (i *Interactor) RemoveBook(ctx context.Context, id string) error {
	return i.svc.RemoveBook(ctx, id)
}

func (i *Interactor) Recommended(ctx context.Context, input dto.RecommendedInput) (dto.CatalogPageOutput, error) {
	if err := i.validate.Struct("recommended", input); err != nil {
		return dto.CatalogPageOutput{}, err
	}
	page, err := i.svc.Recommended(ctx, domain.CatalogQuery{
		Page:   input.Page,
		Limit:  input.Limit,
		Title:  input.Title,
		Author: input.Author,
	})
	if err != nil {
		return dto.CatalogPageOutput{}, err
	}
	out := dto.CatalogPageOutput{TotalPages: page.TotalPages, Page: page.Page, PerPage: page.PerPage}
	out.Books = make([]dto.CatalogBookOutput, 0, len(page.Books))
	for _, b := range page.Books {
		out.Books = append(out.Books, dto.CatalogBookOutput{
			ID:         b.ID,
			Title:      b.Title,
			Author:     b.Author,
			TotalPages: b.TotalPages,
			ImageURL:   b.ImageURL,
		})
	}
	return out, nil
}

func toBookOutput(book domain.Book) dto.BookOutput {
	return dto.BookOutput{
		ID:         book.ID,
		Title:      book.Title,
		Author:     book.Author,
		TotalPages: book.TotalPages,
		Status:     string(book.Status),
		ImageURL:   book.ImageURL,
	}
}
