package in

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"readjourney/internal/modules/reading/dto"
	readingin "readjourney/internal/modules/reading/port/in"
)

// ErrTrackerClosed is returned for operations whose result arrived after Close.
var ErrTrackerClosed = errors.New("tracker closed")

// Tracker is the per-book reading view. Operations run one at a time; results
// that complete after Close are dropped so a closed view is never updated.
type Tracker struct {
	usecase readingin.Usecase
	bookID  string

	mu     sync.Mutex
	alive  atomic.Bool
	latest dto.ProgressOutput
	loaded bool
}

func NewTracker(usecase readingin.Usecase, bookID string) *Tracker {
	t := &Tracker{usecase: usecase, bookID: bookID}
	t.alive.Store(true)
	return t
}

// Close marks the view gone. It does not wait for an in-flight operation.
func (t *Tracker) Close() {
	t.alive.Store(false)
}

func (t *Tracker) Alive() bool {
	return t.alive.Load()
}

// Snapshot returns the last accepted progress.
func (t *Tracker) Snapshot() (dto.ProgressOutput, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest, t.loaded
}

func (t *Tracker) Refresh(ctx context.Context) (dto.ProgressOutput, error) {
	return t.run(ctx, func(ctx context.Context) (dto.ProgressOutput, error) {
		return t.usecase.Progress(ctx, t.bookID)
	})
}

func (t *Tracker) Start(ctx context.Context, page int) (dto.ProgressOutput, error) {
	return t.run(ctx, func(ctx context.Context) (dto.ProgressOutput, error) {
		return t.usecase.StartSession(ctx, dto.StartSessionInput{BookID: t.bookID, Page: page})
	})
}

// Finish reports whether the book was completed by this session.
func (t *Tracker) Finish(ctx context.Context, page int) (dto.ProgressOutput, bool, error) {
	completed := false
	out, err := t.run(ctx, func(ctx context.Context) (dto.ProgressOutput, error) {
		res, err := t.usecase.FinishSession(ctx, dto.FinishSessionInput{BookID: t.bookID, Page: page})
		completed = res.BookCompleted
		return res.ProgressOutput, err
	})
	return out, completed && err == nil, err
}

func (t *Tracker) Delete(ctx context.Context, sessionID string) (dto.ProgressOutput, error) {
	return t.run(ctx, func(ctx context.Context) (dto.ProgressOutput, error) {
		return t.usecase.DeleteSession(ctx, dto.DeleteSessionInput{SessionID: sessionID, BookID: t.bookID})
	})
}

func (t *Tracker) run(ctx context.Context, op func(context.Context) (dto.ProgressOutput, error)) (dto.ProgressOutput, error) {
	if !t.alive.Load() {
		return dto.ProgressOutput{}, ErrTrackerClosed
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out, err := op(ctx)
	if !t.alive.Load() {
		return dto.ProgressOutput{}, ErrTrackerClosed
	}
	if err != nil {
		return dto.ProgressOutput{}, err
	}
	t.latest = out
	t.loaded = true
	return out, nil
}
