package dto

import "readjourney/internal/modules/library/domain"

type ListBooksInput struct {
	Status string `form:"status" validate:"omitempty,oneof=unread in-progress done"`
}

type AddBookInput struct {
	Title      string `form:"title" validate:"required"`
	Author     string `form:"author" validate:"required"`
	TotalPages int    `form:"total pages" validate:"gte=0"`
	ImageURL   string `form:"image" validate:"omitempty,url"`
	// PDFPath supplies the page count when TotalPages is not given.
	PDFPath string `form:"pdf"`
}

type RecommendedInput struct {
	Page   int    `form:"page" validate:"omitempty,gte=1"`
	Limit  int    `form:"limit" validate:"omitempty,gte=1,lte=100"`
	Title  string `form:"title"`
	Author string `form:"author"`
}

type BookOutput struct {
	ID         string
	Title      string
	Author     string
	TotalPages int
	Status     string
	ImageURL   string
}

// BookDetailOutput keeps the raw progress entries for the reading module.
type BookDetailOutput struct {
	BookOutput
	Progress []domain.RawProgressEntry
}

type CatalogBookOutput struct {
	ID         string
	Title      string
	Author     string
	TotalPages int
	ImageURL   string
}

type CatalogPageOutput struct {
	Books      []CatalogBookOutput
	TotalPages int
	Page       int
	PerPage    int
}
