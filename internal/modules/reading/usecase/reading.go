package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"readjourney/internal/modules/reading/domain"
	"readjourney/internal/modules/reading/dto"
	readingin "readjourney/internal/modules/reading/port/in"
	readingout "readjourney/internal/modules/reading/port/out"
	"readjourney/internal/modules/reading/service"
	apperrors "readjourney/internal/platform/errors"
	"readjourney/internal/platform/metrics"
	"readjourney/internal/platform/validate"
)

// Interactor is the session lifecycle controller. Every mutation runs
// sequentially: remote mutation, then re-fetch, then re-derive. Local state is
// never patched from the request.
type Interactor struct {
	progress *service.ProgressService
	store    readingout.SessionStore
	diary    readingout.DiaryWriter
	validate *validate.Validator
	metrics  metrics.Recorder
	logger   *slog.Logger
}

func NewInteractor(progress *service.ProgressService, store readingout.SessionStore, diary readingout.DiaryWriter, v *validate.Validator, rec metrics.Recorder, logger *slog.Logger) readingin.Usecase {
	if v == nil {
		v = validate.New()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Interactor{progress: progress, store: store, diary: diary, validate: v, metrics: rec, logger: logger}
}

func (i *Interactor) Progress(ctx context.Context, bookID string) (dto.ProgressOutput, error) {
	if bookID == "" {
		return dto.ProgressOutput{}, apperrors.Validation("progress", "book id is required")
	}
	snap, err := i.progress.Load(ctx, bookID)
	if err != nil {
		i.metrics.Error("reading", apperrors.KindName(err))
		return dto.ProgressOutput{}, err
	}
	return toProgressOutput(snap), nil
}

func (i *Interactor) StartSession(ctx context.Context, input dto.StartSessionInput) (dto.ProgressOutput, error) {
	const op = "start session"
	if err := i.validate.Struct(op, input); err != nil {
		return dto.ProgressOutput{}, i.fail(op, err)
	}
	current, err := i.progress.Load(ctx, input.BookID)
	if err != nil {
		return dto.ProgressOutput{}, i.fail(op, err)
	}
	if current.Stats.IsCurrentlyReading {
		return dto.ProgressOutput{}, i.fail(op, &apperrors.Error{
			Kind:    apperrors.ErrConflict,
			Op:      op,
			Message: "a reading session is already in progress for this book",
			Err:     apperrors.ErrActiveSessionExists,
		})
	}
	if err := i.store.StartSession(ctx, input.BookID, input.Page); err != nil {
		return dto.ProgressOutput{}, i.fail(op, err)
	}
	snap, err := i.progress.Load(ctx, input.BookID)
	if err != nil {
		return dto.ProgressOutput{}, i.fail(op, err)
	}
	i.metrics.LifecycleOperation("start", "ok")
	i.logger.Info("reading session started", "book_id", input.BookID, "page", input.Page)
	return toProgressOutput(snap), nil
}

func (i *Interactor) FinishSession(ctx context.Context, input dto.FinishSessionInput) (dto.FinishOutput, error) {
	const op = "finish session"
	if err := i.validate.Struct(op, input); err != nil {
		return dto.FinishOutput{}, i.fail(op, err)
	}
	current, err := i.progress.Load(ctx, input.BookID)
	if err != nil {
		return dto.FinishOutput{}, i.fail(op, err)
	}
	active, ok := domain.ActiveSession(current.Sessions)
	if !ok {
		return dto.FinishOutput{}, i.fail(op, &apperrors.Error{
			Kind:    apperrors.ErrValidation,
			Op:      op,
			Message: "there is no reading session in progress for this book",
			Err:     apperrors.ErrNoActiveSession,
		})
	}
	if input.Page < active.StartPage {
		return dto.FinishOutput{}, i.fail(op, apperrors.Validation(op,
			fmt.Sprintf("page must not be lower than the start page %d", active.StartPage)))
	}
	if err := i.store.FinishSession(ctx, input.BookID, input.Page); err != nil {
		return dto.FinishOutput{}, i.fail(op, err)
	}
	snap, err := i.progress.Load(ctx, input.BookID)
	if err != nil {
		return dto.FinishOutput{}, i.fail(op, err)
	}
	completed := domain.Completed(snap.Book, input.Page)
	i.metrics.LifecycleOperation("finish", "ok")
	i.logger.Info("reading session finished", "book_id", input.BookID, "page", input.Page, "completed", completed)
	return dto.FinishOutput{ProgressOutput: toProgressOutput(snap), BookCompleted: completed}, nil
}

func (i *Interactor) DeleteSession(ctx context.Context, input dto.DeleteSessionInput) (dto.ProgressOutput, error) {
	const op = "delete session"
	if err := i.validate.Struct(op, input); err != nil {
		return dto.ProgressOutput{}, i.fail(op, err)
	}
	bookID := input.BookID
	if bookID == "" {
		derived, _, ok := domain.SplitSessionID(input.SessionID)
		if !ok {
			return dto.ProgressOutput{}, i.fail(op, apperrors.Validation(op, "book id is required for this session id"))
		}
		bookID = derived
	}
	current, err := i.progress.Load(ctx, bookID)
	if err != nil {
		return dto.ProgressOutput{}, i.fail(op, err)
	}
	target := input.SessionID
	for _, s := range current.Sessions {
		if (s.ID == input.SessionID || s.RemoteID == input.SessionID) && s.RemoteID != "" {
			target = s.RemoteID
			break
		}
	}
	if err := i.store.DeleteSession(ctx, bookID, target); err != nil {
		return dto.ProgressOutput{}, i.fail(op, err)
	}
	snap, err := i.progress.Load(ctx, bookID)
	if err != nil {
		return dto.ProgressOutput{}, i.fail(op, err)
	}
	i.metrics.LifecycleOperation("delete", "ok")
	i.logger.Info("reading session deleted", "book_id", bookID, "session_id", target)
	return toProgressOutput(snap), nil
}

func (i *Interactor) ExportDiary(ctx context.Context, bookID string) (dto.DiaryOutput, error) {
	const op = "export diary"
	if bookID == "" {
		return dto.DiaryOutput{}, apperrors.Validation(op, "book id is required")
	}
	if i.diary == nil {
		return dto.DiaryOutput{}, fmt.Errorf("%s: diary is not configured", op)
	}
	snap, err := i.progress.Load(ctx, bookID)
	if err != nil {
		return dto.DiaryOutput{}, err
	}
	if !snap.Found {
		return dto.DiaryOutput{}, apperrors.NotFound(op, "book not found")
	}
	path, err := i.diary.WriteDiary(ctx, readingout.DiaryEntry{Book: snap.Book, Sessions: snap.Sessions, Stats: snap.Stats})
	if err != nil {
		return dto.DiaryOutput{}, err
	}
	return dto.DiaryOutput{BookID: bookID, Path: path}, nil
}

func (i *Interactor) fail(op string, err error) error {
	kind := apperrors.KindName(err)
	i.metrics.LifecycleOperation(opLabel(op), "error")
	i.metrics.Error("reading", kind)
	return err
}

func opLabel(op string) string {
	switch op {
	case "start session":
		return "start"
	case "finish session":
		return "finish"
	default:
		return "delete"
	}
}

func toProgressOutput(snap service.Snapshot) dto.ProgressOutput {
	out := dto.ProgressOutput{
		BookID:             snap.Book.ID,
		Title:              snap.Book.Title,
		Author:             snap.Book.Author,
		TotalPages:         snap.Book.TotalPages,
		Found:              snap.Found,
		TotalPagesRead:     snap.Stats.TotalPagesRead,
		CompletionPercent:  snap.Stats.CompletionPercent,
		TotalReadingTime:   snap.Stats.TotalReadingTime,
		AverageSpeed:       snap.Stats.AverageSpeed,
		IsCurrentlyReading: snap.Stats.IsCurrentlyReading,
		Sessions:           make([]dto.SessionOutput, 0, len(snap.Sessions)),
	}
	for _, s := range snap.Sessions {
		out.Sessions = append(out.Sessions, dto.SessionOutput{
			ID:                 s.ID,
			RemoteID:           s.RemoteID,
			StartPage:          s.StartPage,
			FinishPage:         s.FinishPage,
			PagesRead:          s.PagesRead(),
			Percent:            s.DisplayPercent(snap.Book.TotalPages),
			StartTime:          s.StartTime,
			FinishTime:         s.FinishTime,
			ReadingTimeMinutes: s.ReadingTimeMinutes,
			Speed:              s.ReadingSpeed,
			Status:             string(s.Status),
		})
	}
	return out
}
