package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	librarydomain "readjourney/internal/modules/library/domain"
	"readjourney/internal/modules/reading/domain"
	readingout "readjourney/internal/modules/reading/port/out"
	"readjourney/internal/platform/clock"
	apperrors "readjourney/internal/platform/errors"
	"readjourney/internal/platform/id"
	"readjourney/internal/platform/sqlitedb"
)

// SQLiteSessionStore applies session mutations to the local record store with
// the same rules as the remote API: one open session per book, speed in pages
// per minute and the book status following its sessions.
type SQLiteSessionStore struct {
	db    *sqlitedb.DB
	auth  *sqlitedb.Authenticator
	clock clock.Clock
	idGen id.Generator
}

var _ readingout.SessionStore = (*SQLiteSessionStore)(nil)

func NewSQLiteSessionStore(db *sqlitedb.DB, auth *sqlitedb.Authenticator, clock clock.Clock, idGen id.Generator) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db, auth: auth, clock: clock, idGen: idGen}
}

type ownedBook struct {
	id         string
	totalPages int
}

func (s *SQLiteSessionStore) StartSession(ctx context.Context, bookID string, page int) error {
	const op = "start session"
	return s.db.Within(ctx, func(ctx context.Context) error {
		book, err := s.ownedBook(ctx, op, bookID)
		if err != nil {
			return err
		}
		if page > book.totalPages {
			return apperrors.Validation(op, "page exceeds the book length")
		}
		var open int
		err = s.db.Conn(ctx).QueryRowContext(ctx,
			`SELECT COUNT(*) FROM progress WHERE book_id = ? AND finish_page IS NULL`, bookID).Scan(&open)
		if err != nil {
			return fmt.Errorf("count open sessions: %w", err)
		}
		if open > 0 {
			return apperrors.Conflict(op, "a reading session is already in progress for this book")
		}
		var seq int
		if err := s.db.Conn(ctx).QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), -1) + 1 FROM progress WHERE book_id = ?`, bookID).Scan(&seq); err != nil {
			return fmt.Errorf("next session seq: %w", err)
		}
		_, err = s.db.Conn(ctx).ExecContext(ctx,
			`INSERT INTO progress (id, book_id, seq, start_page, start_time, status) VALUES (?, ?, ?, ?, ?, ?)`,
			s.idGen.New(), bookID, seq, page, s.clock.Now().Format(sqlitedb.TimeLayout), string(domain.StatusActive))
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return s.setStatus(ctx, bookID, librarydomain.BookStatusInProgress)
	})
}

func (s *SQLiteSessionStore) FinishSession(ctx context.Context, bookID string, page int) error {
	const op = "finish session"
	return s.db.Within(ctx, func(ctx context.Context) error {
		book, err := s.ownedBook(ctx, op, bookID)
		if err != nil {
			return err
		}
		var (
			sessionID string
			startPage int
			startRaw  string
		)
		err = s.db.Conn(ctx).QueryRowContext(ctx,
			`SELECT id, start_page, start_time FROM progress WHERE book_id = ? AND finish_page IS NULL ORDER BY seq DESC LIMIT 1`,
			bookID).Scan(&sessionID, &startPage, &startRaw)
		if errors.Is(err, sql.ErrNoRows) {
			return &apperrors.Error{Kind: apperrors.ErrValidation, Op: op, Message: "there is no reading session in progress for this book", Err: apperrors.ErrNoActiveSession}
		}
		if err != nil {
			return fmt.Errorf("load open session: %w", err)
		}
		if page < startPage {
			return apperrors.Validation(op, "finish page must not be lower than the start page")
		}
		if page > book.totalPages {
			return apperrors.Validation(op, "page exceeds the book length")
		}
		now := s.clock.Now()
		minutes := 0.0
		if started, err := time.Parse(sqlitedb.TimeLayout, startRaw); err == nil && now.After(started) {
			minutes = now.Sub(started).Minutes()
		}
		var speed any
		if minutes > 0 {
			speed = float64(page-startPage) / minutes
		}
		_, err = s.db.Conn(ctx).ExecContext(ctx,
			`UPDATE progress SET finish_page = ?, finish_time = ?, reading_time = ?, speed = ?, status = ? WHERE id = ?`,
			page, now.Format(sqlitedb.TimeLayout), minutes, speed, string(domain.StatusInactive), sessionID)
		if err != nil {
			return fmt.Errorf("finish session: %w", err)
		}
		status := librarydomain.BookStatusInProgress
		if page >= book.totalPages {
			status = librarydomain.BookStatusDone
		}
		return s.setStatus(ctx, bookID, status)
	})
}

// DeleteSession accepts the stored id or a derived "<bookId>-<index>" id.
func (s *SQLiteSessionStore) DeleteSession(ctx context.Context, bookID, sessionID string) error {
	const op = "delete session"
	return s.db.Within(ctx, func(ctx context.Context) error {
		if _, err := s.ownedBook(ctx, op, bookID); err != nil {
			return err
		}
		res, err := s.db.Conn(ctx).ExecContext(ctx, `DELETE FROM progress WHERE id = ? AND book_id = ?`, sessionID, bookID)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			derivedBook, index, ok := domain.SplitSessionID(sessionID)
			if !ok || derivedBook != bookID {
				return apperrors.NotFound(op, "reading session not found")
			}
			res, err = s.db.Conn(ctx).ExecContext(ctx,
				`DELETE FROM progress WHERE id = (SELECT id FROM progress WHERE book_id = ? ORDER BY seq LIMIT 1 OFFSET ?)`,
				bookID, index)
			if err != nil {
				return fmt.Errorf("delete session by index: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return apperrors.NotFound(op, "reading session not found")
			}
		}
		return s.refreshStatus(ctx, bookID)
	})
}

func (s *SQLiteSessionStore) ownedBook(ctx context.Context, op, bookID string) (ownedBook, error) {
	userID, err := s.auth.UserID(ctx, op)
	if err != nil {
		return ownedBook{}, err
	}
	book := ownedBook{id: bookID}
	err = s.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT total_pages FROM books WHERE id = ? AND user_id = ?`, bookID, userID).Scan(&book.totalPages)
	if errors.Is(err, sql.ErrNoRows) {
		return ownedBook{}, apperrors.NotFound(op, "book not found")
	}
	if err != nil {
		return ownedBook{}, fmt.Errorf("load book: %w", err)
	}
	return book, nil
}

func (s *SQLiteSessionStore) setStatus(ctx context.Context, bookID string, status librarydomain.BookStatus) error {
	if _, err := s.db.Conn(ctx).ExecContext(ctx, `UPDATE books SET status = ? WHERE id = ?`, string(status), bookID); err != nil {
		return fmt.Errorf("update book status: %w", err)
	}
	return nil
}

// refreshStatus recomputes the book status from its remaining sessions.
func (s *SQLiteSessionStore) refreshStatus(ctx context.Context, bookID string) error {
	var (
		count     int
		maxFinish sql.NullInt64
		total     int
	)
	err := s.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(p.id), MAX(p.finish_page), b.total_pages FROM books b LEFT JOIN progress p ON p.book_id = b.id WHERE b.id = ? GROUP BY b.id`,
		bookID).Scan(&count, &maxFinish, &total)
	if err != nil {
		return fmt.Errorf("summarize sessions: %w", err)
	}
	status := librarydomain.BookStatusInProgress
	switch {
	case count == 0:
		status = librarydomain.BookStatusUnread
	case maxFinish.Valid && int(maxFinish.Int64) >= total:
		status = librarydomain.BookStatusDone
	}
	return s.setStatus(ctx, bookID, status)
}
