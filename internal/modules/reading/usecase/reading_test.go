package usecase_test

import (
	"context"
	"errors"
	"strconv"
	"testing"

	librarydomain "readjourney/internal/modules/library/domain"
	"readjourney/internal/modules/reading/dto"
	readingout "readjourney/internal/modules/reading/port/out"
	"readjourney/internal/modules/reading/service"
	"readjourney/internal/modules/reading/usecase"
	apperrors "readjourney/internal/platform/errors"
)

func ptr[T any](v T) *T { return &v }

// fakeBackend stores raw progress the way the record store would and counts calls.
type fakeBackend struct {
	books     map[string]*librarydomain.Book
	gets      int
	mutations []string
	failNext  error
	nextID    int
}

func newBackend(books ...librarydomain.Book) *fakeBackend {
	b := &fakeBackend{books: map[string]*librarydomain.Book{}}
	for i := range books {
		book := books[i]
		b.books[book.ID] = &book
	}
	return b
}

func (f *fakeBackend) GetBook(_ context.Context, bookID string) (librarydomain.Book, error) {
	f.gets++
	book, ok := f.books[bookID]
	if !ok {
		return librarydomain.Book{}, apperrors.NotFound("get book", "book not found")
	}
	copied := *book
	copied.Progress = append([]librarydomain.RawProgressEntry(nil), book.Progress...)
	return copied, nil
}

func (f *fakeBackend) StartSession(_ context.Context, bookID string, page int) error {
	f.mutations = append(f.mutations, "start:"+bookID)
	if err := f.takeFailure(); err != nil {
		return err
	}
	book, ok := f.books[bookID]
	if !ok {
		return apperrors.NotFound("start", "book not found")
	}
	f.nextID++
	book.Progress = append(book.Progress, librarydomain.RawProgressEntry{
		LegacyID:  ptr("p" + strconv.Itoa(f.nextID)),
		StartPage: ptr(page),
		StartTime: ptr("2026-10-16T10:00:00Z"),
		Status:    ptr("active"),
	})
	return nil
}

func (f *fakeBackend) FinishSession(_ context.Context, bookID string, page int) error {
	f.mutations = append(f.mutations, "finish:"+bookID)
	if err := f.takeFailure(); err != nil {
		return err
	}
	book := f.books[bookID]
	last := &book.Progress[len(book.Progress)-1]
	last.FinishPage = ptr(page)
	last.FinishTime = ptr("2026-10-16T11:00:00Z")
	last.Status = ptr("inactive")
	return nil
}

func (f *fakeBackend) DeleteSession(_ context.Context, bookID, sessionID string) error {
	f.mutations = append(f.mutations, "delete:"+bookID+":"+sessionID)
	if err := f.takeFailure(); err != nil {
		return err
	}
	book := f.books[bookID]
	for i, p := range book.Progress {
		if p.LegacyID != nil && *p.LegacyID == sessionID {
			book.Progress = append(book.Progress[:i], book.Progress[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("delete", "session not found")
}

func (f *fakeBackend) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

type fakeDiary struct{ entries []readingout.DiaryEntry }

func (f *fakeDiary) WriteDiary(_ context.Context, entry readingout.DiaryEntry) (string, error) {
	f.entries = append(f.entries, entry)
	return "/diary/" + entry.Book.ID + ".md", nil
}

func newInteractor(backend *fakeBackend, diary *fakeDiary) *usecase.Interactor {
	return usecase.NewInteractor(service.NewProgressService(backend), backend, diary, nil, nil, nil).(*usecase.Interactor)
}

func TestStartFinishRefetchesAfterEveryMutation(t *testing.T) {
	t.Parallel()
	backend := newBackend(librarydomain.Book{ID: "b1", Title: "Dune", TotalPages: 200})
	uc := newInteractor(backend, nil)
	ctx := context.Background()

	started, err := uc.StartSession(ctx, dto.StartSessionInput{BookID: "b1", Page: 1})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !started.IsCurrentlyReading || len(started.Sessions) != 1 || started.Sessions[0].ID != "b1-0" {
		t.Fatalf("unexpected progress after start %+v", started)
	}
	if backend.gets != 2 {
		t.Fatalf("expected load before and after start, got %d gets", backend.gets)
	}

	if _, err := uc.StartSession(ctx, dto.StartSessionInput{BookID: "b1", Page: 5}); !errors.Is(err, apperrors.ErrActiveSessionExists) || !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected active session conflict, got %v", err)
	}

	finished, err := uc.FinishSession(ctx, dto.FinishSessionInput{BookID: "b1", Page: 50})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if finished.BookCompleted || finished.IsCurrentlyReading || finished.TotalPagesRead != 49 {
		t.Fatalf("unexpected progress after finish %+v", finished)
	}

	if _, err := uc.StartSession(ctx, dto.StartSessionInput{BookID: "b1", Page: 50}); err != nil {
		t.Fatalf("second start: %v", err)
	}
	done, err := uc.FinishSession(ctx, dto.FinishSessionInput{BookID: "b1", Page: 200})
	if err != nil {
		t.Fatalf("final finish: %v", err)
	}
	if !done.BookCompleted || done.CompletionPercent != 99.5 {
		t.Fatalf("expected completion signal, got %+v", done)
	}
}

func TestFinishValidation(t *testing.T) {
	t.Parallel()
	backend := newBackend(librarydomain.Book{ID: "b1", TotalPages: 100, Progress: []librarydomain.RawProgressEntry{{StartPage: ptr(30)}}})
	uc := newInteractor(backend, nil)
	ctx := context.Background()

	if _, err := uc.FinishSession(ctx, dto.FinishSessionInput{BookID: "b1", Page: 0}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error for page 0, got %v", err)
	}
	if _, err := uc.FinishSession(ctx, dto.FinishSessionInput{BookID: "b1", Page: 10}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error below start page, got %v", err)
	}
	if len(backend.mutations) != 0 {
		t.Fatalf("invalid input must not reach the store, got %v", backend.mutations)
	}

	idle := newBackend(librarydomain.Book{ID: "b2", TotalPages: 100})
	_, err := newInteractor(idle, nil).FinishSession(ctx, dto.FinishSessionInput{BookID: "b2", Page: 10})
	if !errors.Is(err, apperrors.ErrNoActiveSession) {
		t.Fatalf("expected no active session, got %v", err)
	}
}

func TestMutationFailureIsReturnedWithoutRetry(t *testing.T) {
	t.Parallel()
	backend := newBackend(librarydomain.Book{ID: "b1", TotalPages: 100})
	backend.failNext = apperrors.Network("POST /books/reading/start", errors.New("connection reset"))
	uc := newInteractor(backend, nil)

	_, err := uc.StartSession(context.Background(), dto.StartSessionInput{BookID: "b1", Page: 1})
	if !errors.Is(err, apperrors.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if len(backend.mutations) != 1 || backend.gets != 1 {
		t.Fatalf("expected a single attempt and no re-fetch, got mutations=%v gets=%d", backend.mutations, backend.gets)
	}
}

func TestDeleteSessionUsesRemoteIDAndDerivedBook(t *testing.T) {
	t.Parallel()
	backend := newBackend(librarydomain.Book{ID: "book-7", TotalPages: 100, Progress: []librarydomain.RawProgressEntry{
		{LegacyID: ptr("r-a"), StartPage: ptr(1), FinishPage: ptr(10), FinishTime: ptr("t")},
		{LegacyID: ptr("r-b"), StartPage: ptr(10), FinishPage: ptr(20), FinishTime: ptr("t")},
	}})
	uc := newInteractor(backend, nil)

	out, err := uc.DeleteSession(context.Background(), dto.DeleteSessionInput{SessionID: "book-7-1"})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if backend.mutations[0] != "delete:book-7:r-b" {
		t.Fatalf("expected remote id to be sent, got %v", backend.mutations)
	}
	if len(out.Sessions) != 1 || out.Sessions[0].RemoteID != "r-a" || out.TotalPagesRead != 9 {
		t.Fatalf("unexpected progress after delete %+v", out)
	}
	if _, err := uc.DeleteSession(context.Background(), dto.DeleteSessionInput{SessionID: "nodash"}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error for underivable id, got %v", err)
	}
}

func TestProgressOfUnknownBookIsEmpty(t *testing.T) {
	t.Parallel()
	uc := newInteractor(newBackend(), nil)
	out, err := uc.Progress(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected empty success, got %v", err)
	}
	if out.Found || len(out.Sessions) != 0 || out.CompletionPercent != 0 {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestExportDiary(t *testing.T) {
	t.Parallel()
	backend := newBackend(librarydomain.Book{ID: "b1", Title: "Dune", TotalPages: 100, Progress: []librarydomain.RawProgressEntry{{StartPage: ptr(1), FinishPage: ptr(10)}}})
	diary := &fakeDiary{}
	uc := newInteractor(backend, diary)
	out, err := uc.ExportDiary(context.Background(), "b1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out.Path != "/diary/b1.md" || len(diary.entries) != 1 || len(diary.entries[0].Sessions) != 1 {
		t.Fatalf("unexpected export %+v / %+v", out, diary.entries)
	}
	if _, err := uc.ExportDiary(context.Background(), "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
