package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"readjourney/internal/modules/library/domain"
	libraryout "readjourney/internal/modules/library/port/out"
	"readjourney/internal/platform/clock"
	apperrors "readjourney/internal/platform/errors"
	"readjourney/internal/platform/id"
	"readjourney/internal/platform/sqlitedb"
)

// SQLiteBookStore is the local record store. Every call is scoped to the user
// behind the current bearer token, like the remote API.
type SQLiteBookStore struct {
	db    *sqlitedb.DB
	auth  *sqlitedb.Authenticator
	clock clock.Clock
	idGen id.Generator
}

var _ libraryout.BookStore = (*SQLiteBookStore)(nil)

func NewSQLiteBookStore(db *sqlitedb.DB, auth *sqlitedb.Authenticator, clock clock.Clock, idGen id.Generator) *SQLiteBookStore {
	return &SQLiteBookStore{db: db, auth: auth, clock: clock, idGen: idGen}
}

func (s *SQLiteBookStore) List(ctx context.Context, status domain.BookStatus) ([]domain.Book, error) {
	userID, err := s.auth.UserID(ctx, "list books")
	if err != nil {
		return nil, err
	}
	query := `SELECT id, title, author, total_pages, COALESCE(image_url, ''), status FROM books WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, id`
	rows, err := s.db.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	books := []domain.Book{}
	for rows.Next() {
		var b domain.Book
		var st string
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.TotalPages, &b.ImageURL, &st); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan book: %w", err)
		}
		b.Status = domain.BookStatus(st)
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	_ = rows.Close()
	for i := range books {
		progress, err := LoadProgress(ctx, s.db, books[i].ID)
		if err != nil {
			return nil, err
		}
		books[i].Progress = progress
	}
	return books, nil
}

func (s *SQLiteBookStore) Get(ctx context.Context, bookID string) (domain.Book, error) {
	userID, err := s.auth.UserID(ctx, "get book")
	if err != nil {
		return domain.Book{}, err
	}
	var b domain.Book
	var st string
	err = s.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT id, title, author, total_pages, COALESCE(image_url, ''), status FROM books WHERE id = ? AND user_id = ?`,
		bookID, userID,
	).Scan(&b.ID, &b.Title, &b.Author, &b.TotalPages, &b.ImageURL, &st)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Book{}, apperrors.NotFound("get book", "book not found")
	}
	if err != nil {
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	b.Status = domain.BookStatus(st)
	b.Progress, err = LoadProgress(ctx, s.db, b.ID)
	if err != nil {
		return domain.Book{}, err
	}
	return b, nil
}

func (s *SQLiteBookStore) Add(ctx context.Context, book domain.NewBook) (domain.Book, error) {
	userID, err := s.auth.UserID(ctx, "add book")
	if err != nil {
		return domain.Book{}, err
	}
	return s.insert(ctx, userID, book, "add book")
}

func (s *SQLiteBookStore) AddFromCatalog(ctx context.Context, catalogID string) (domain.Book, error) {
	userID, err := s.auth.UserID(ctx, "add recommended")
	if err != nil {
		return domain.Book{}, err
	}
	var book domain.NewBook
	err = s.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT title, author, total_pages, COALESCE(image_url, '') FROM catalog WHERE id = ?`, catalogID,
	).Scan(&book.Title, &book.Author, &book.TotalPages, &book.ImageURL)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Book{}, apperrors.NotFound("add recommended", "recommended book not found")
	}
	if err != nil {
		return domain.Book{}, fmt.Errorf("load catalog book: %w", err)
	}
	return s.insert(ctx, userID, book, "add recommended")
}

func (s *SQLiteBookStore) insert(ctx context.Context, userID string, book domain.NewBook, op string) (domain.Book, error) {
	var dup int
	err := s.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT 1 FROM books WHERE user_id = ? AND title = ? AND author = ?`, userID, book.Title, book.Author,
	).Scan(&dup)
	if err == nil {
		return domain.Book{}, apperrors.Conflict(op, "this book is already in your library")
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Book{}, fmt.Errorf("check duplicate book: %w", err)
	}
	created := domain.Book{
		ID:         s.idGen.New(),
		Title:      book.Title,
		Author:     book.Author,
		TotalPages: book.TotalPages,
		Status:     domain.BookStatusUnread,
		ImageURL:   book.ImageURL,
	}
	_, err = s.db.Conn(ctx).ExecContext(ctx,
		`INSERT INTO books (id, user_id, title, author, total_pages, image_url, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, userID, created.Title, created.Author, created.TotalPages, created.ImageURL, string(created.Status),
		s.clock.Now().Format(sqlitedb.TimeLayout),
	)
	if err != nil {
		return domain.Book{}, fmt.Errorf("insert book: %w", err)
	}
	return created, nil
}

func (s *SQLiteBookStore) Remove(ctx context.Context, bookID string) error {
	userID, err := s.auth.UserID(ctx, "remove book")
	if err != nil {
		return err
	}
	res, err := s.db.Conn(ctx).ExecContext(ctx, `DELETE FROM books WHERE id = ? AND user_id = ?`, bookID, userID)
	if err != nil {
		return fmt.Errorf("remove book: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("remove book", "book not found")
	}
	return nil
}

// Recommended filters the seeded catalog with a fuzzy, case-insensitive match
// on title and author, then pages through the result.
func (s *SQLiteBookStore) Recommended(ctx context.Context, query domain.CatalogQuery) (domain.CatalogPage, error) {
	rows, err := s.db.Conn(ctx).QueryContext(ctx,
		`SELECT id, title, author, total_pages, COALESCE(image_url, '') FROM catalog ORDER BY id`)
	if err != nil {
		return domain.CatalogPage{}, fmt.Errorf("list catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()
	matched := []domain.CatalogBook{}
	for rows.Next() {
		var b domain.CatalogBook
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.TotalPages, &b.ImageURL); err != nil {
			return domain.CatalogPage{}, fmt.Errorf("scan catalog: %w", err)
		}
		if matchesCatalog(query.Title, b.Title) && matchesCatalog(query.Author, b.Author) {
			matched = append(matched, b)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.CatalogPage{}, fmt.Errorf("iterate catalog: %w", err)
	}

	totalPages := (len(matched) + query.Limit - 1) / query.Limit
	if totalPages == 0 {
		totalPages = 1
	}
	start := (query.Page - 1) * query.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := min(start+query.Limit, len(matched))
	return domain.CatalogPage{
		Books:      matched[start:end],
		TotalPages: totalPages,
		Page:       query.Page,
		PerPage:    query.Limit,
	}, nil
}

func matchesCatalog(query, value string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	return fuzzy.MatchFold(query, value)
}

// LoadProgress returns the stored progress rows of a book in insertion order,
// encoded with the canonical field names.
func LoadProgress(ctx context.Context, db *sqlitedb.DB, bookID string) ([]domain.RawProgressEntry, error) {
	rows, err := db.Conn(ctx).QueryContext(ctx,
		`SELECT id, start_page, finish_page, start_time, finish_time, reading_time, speed, status
		 FROM progress WHERE book_id = ? ORDER BY seq`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer func() { _ = rows.Close() }()
	out := []domain.RawProgressEntry{}
	for rows.Next() {
		var (
			entryID     string
			startPage   int
			finishPage  sql.NullInt64
			startTime   string
			finishTime  sql.NullString
			readingTime sql.NullFloat64
			speed       sql.NullFloat64
			status      string
		)
		if err := rows.Scan(&entryID, &startPage, &finishPage, &startTime, &finishTime, &readingTime, &speed, &status); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		entry := domain.RawProgressEntry{
			LegacyID:  &entryID,
			StartPage: &startPage,
			StartTime: &startTime,
			Status:    &status,
		}
		if finishPage.Valid {
			v := int(finishPage.Int64)
			entry.FinishPage = &v
		}
		if finishTime.Valid {
			entry.FinishTime = &finishTime.String
		}
		if readingTime.Valid {
			entry.ReadingTimeMinutes = &readingTime.Float64
		}
		if speed.Valid {
			entry.Speed = &speed.Float64
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}
