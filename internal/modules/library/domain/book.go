package domain

import (
	"fmt"
	"net/url"
	"strings"
)

type BookStatus string

const (
	BookStatusUnread     BookStatus = "unread"
	BookStatusInProgress BookStatus = "in-progress"
	BookStatusDone       BookStatus = "done"
)

const placeholderImageURL = "https://placehold.co/200x300?text="

func (s BookStatus) Validate() error {
	switch s {
	case "", BookStatusUnread, BookStatusInProgress, BookStatusDone:
		return nil
	default:
		return fmt.Errorf("unsupported book status %q", string(s))
	}
}

// Book is owned by the record store. Progress carries the entries exactly as the
// store returned them; the reading module derives sessions from them.
type Book struct {
	ID         string
	Title      string
	Author     string
	TotalPages int
	Status     BookStatus
	ImageURL   string
	Progress   []RawProgressEntry
}

type NewBook struct {
	Title      string
	Author     string
	TotalPages int
	ImageURL   string
}

func (b NewBook) Validate() error {
	if strings.TrimSpace(b.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(b.Author) == "" {
		return fmt.Errorf("author is required")
	}
	if b.TotalPages <= 0 {
		return fmt.Errorf("total pages must be positive")
	}
	return nil
}

// CatalogBook is an entry of the recommended catalog.
type CatalogBook struct {
	ID         string
	Title      string
	Author     string
	TotalPages int
	ImageURL   string
}

type CatalogQuery struct {
	Page   int
	Limit  int
	Title  string
	Author string
}

// Normalize applies the catalog defaults: first page, ten per page.
func (q CatalogQuery) Normalize() CatalogQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	q.Title = strings.TrimSpace(q.Title)
	q.Author = strings.TrimSpace(q.Author)
	return q
}

type CatalogPage struct {
	Books      []CatalogBook
	TotalPages int
	Page       int
	PerPage    int
}

// PlaceholderImage is the cover shown when neither the store nor the local cache
// knows an image for the title.
func PlaceholderImage(title string) string {
	if strings.TrimSpace(title) == "" {
		title = "Book"
	}
	return placeholderImageURL + strings.ReplaceAll(url.QueryEscape(title), "+", "%20")
}

// FilterByStatus keeps books with the given status; an empty status keeps all.
func FilterByStatus(books []Book, status BookStatus) []Book {
	if status == "" {
		return books
	}
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if b.Status == status {
			out = append(out, b)
		}
	}
	return out
}
