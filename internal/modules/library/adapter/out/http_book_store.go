package out

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonschema"

	"readjourney/internal/modules/library/domain"
	libraryout "readjourney/internal/modules/library/port/out"
	apperrors "readjourney/internal/platform/errors"
	"readjourney/internal/platform/httpapi"
)

//go:embed schema/library.schema.json
var librarySchema []byte

// HTTPBookStore is the remote record store.
type HTTPBookStore struct {
	client *httpapi.Client
	schema *jsonschema.Schema
}

var _ libraryout.BookStore = (*HTTPBookStore)(nil)

func NewHTTPBookStore(client *httpapi.Client) (*HTTPBookStore, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(librarySchema)
	if err != nil {
		return nil, fmt.Errorf("compile library schema: %w", err)
	}
	return &HTTPBookStore{client: client, schema: schema}, nil
}

type bookPayload struct {
	ID         string                    `json:"_id"`
	AltID      string                    `json:"id"`
	Title      string                    `json:"title"`
	Author     string                    `json:"author"`
	TotalPages float64                   `json:"totalPages"`
	Status     string                    `json:"status"`
	ImageURL   string                    `json:"imageUrl"`
	ImageURL2  string                    `json:"image_url"`
	BookImage  string                    `json:"book_image"`
	Cover      string                    `json:"cover"`
	Image      string                    `json:"image"`
	Progress   []domain.RawProgressEntry `json:"progress"`
}

func (p bookPayload) toBook() domain.Book {
	return domain.Book{
		ID:         firstNonEmpty(p.ID, p.AltID),
		Title:      p.Title,
		Author:     p.Author,
		TotalPages: int(p.TotalPages),
		Status:     domain.BookStatus(p.Status),
		ImageURL:   firstNonEmpty(p.ImageURL, p.ImageURL2, p.BookImage, p.Cover, p.Image),
		Progress:   p.Progress,
	}
}

func (p bookPayload) toCatalogBook() domain.CatalogBook {
	b := p.toBook()
	return domain.CatalogBook{ID: b.ID, Title: b.Title, Author: b.Author, TotalPages: b.TotalPages, ImageURL: b.ImageURL}
}

func (s *HTTPBookStore) List(ctx context.Context, status domain.BookStatus) ([]domain.Book, error) {
	req := httpapi.Request{Method: http.MethodGet, Path: "/books/own"}
	if status != "" {
		req.Query = url.Values{"status": {string(status)}}
	}
	raw, err := s.client.DoRaw(ctx, req)
	if err != nil {
		return nil, err
	}
	if result := s.schema.ValidateJSON(raw); !result.IsValid() {
		return nil, apperrors.Network("GET /books/own", fmt.Errorf("unexpected library payload: %v", result.Errors))
	}
	var payload []bookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apperrors.Network("GET /books/own", fmt.Errorf("decode library: %w", err))
	}
	books := make([]domain.Book, 0, len(payload))
	for _, p := range payload {
		books = append(books, p.toBook())
	}
	return books, nil
}

func (s *HTTPBookStore) Get(ctx context.Context, id string) (domain.Book, error) {
	var payload bookPayload
	req := httpapi.Request{Method: http.MethodGet, Path: "/books/" + url.PathEscape(id), QuietNotFound: true}
	if err := s.client.Do(ctx, req, &payload); err != nil {
		return domain.Book{}, err
	}
	return payload.toBook(), nil
}

func (s *HTTPBookStore) Add(ctx context.Context, book domain.NewBook) (domain.Book, error) {
	body := map[string]any{"title": book.Title, "author": book.Author, "totalPages": book.TotalPages}
	var payload bookPayload
	if err := s.client.Do(ctx, httpapi.Request{Method: http.MethodPost, Path: "/books/add", Body: body}, &payload); err != nil {
		return domain.Book{}, err
	}
	return payload.toBook(), nil
}

func (s *HTTPBookStore) AddFromCatalog(ctx context.Context, catalogID string) (domain.Book, error) {
	var payload bookPayload
	req := httpapi.Request{Method: http.MethodPost, Path: "/books/add/" + url.PathEscape(catalogID)}
	if err := s.client.Do(ctx, req, &payload); err != nil {
		return domain.Book{}, err
	}
	return payload.toBook(), nil
}

func (s *HTTPBookStore) Remove(ctx context.Context, id string) error {
	return s.client.Do(ctx, httpapi.Request{Method: http.MethodDelete, Path: "/books/remove/" + url.PathEscape(id)}, nil)
}

func (s *HTTPBookStore) Recommended(ctx context.Context, query domain.CatalogQuery) (domain.CatalogPage, error) {
	params := url.Values{
		"page":  {strconv.Itoa(query.Page)},
		"limit": {strconv.Itoa(query.Limit)},
	}
	if query.Title != "" {
		params.Set("title", query.Title)
	}
	if query.Author != "" {
		params.Set("author", query.Author)
	}
	var payload struct {
		Results    []bookPayload `json:"results"`
		TotalPages int           `json:"totalPages"`
		Page       int           `json:"page"`
		PerPage    int           `json:"perPage"`
	}
	if err := s.client.Do(ctx, httpapi.Request{Method: http.MethodGet, Path: "/books/recommend", Query: params}, &payload); err != nil {
		return domain.CatalogPage{}, err
	}
	page := domain.CatalogPage{TotalPages: payload.TotalPages, Page: payload.Page, PerPage: payload.PerPage}
	page.Books = make([]domain.CatalogBook, 0, len(payload.Results))
	for _, p := range payload.Results {
		page.Books = append(page.Books, p.toCatalogBook())
	}
	return page, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
