package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readjourney/internal/bootstrap"
	"readjourney/internal/platform/config"
	apperrors "readjourney/internal/platform/errors"
)

func localConfig(t *testing.T, dir string) config.Config {
	t.Helper()
	cfg := config.New(dir)
	cfg.Backend.Mode = config.BackendModeLocal
	cfg.Backend.TokenSecret = "0123456789abcdef0123456789abcdef"
	cfg.Logging.Level = "error"
	cfg.Metrics.Textfile = filepath.Join(dir, "metrics.prom")
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestLocalModeReadingJourney(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := localConfig(t, dir)

	app, err := bootstrap.New(ctx, cfg)
	require.NoError(t, err)

	_, err = app.LibraryCLI.List(ctx, "")
	require.ErrorIs(t, err, apperrors.ErrAuth, "the record store requires a signed-in user")

	identity, err := app.IdentityCLI.Register(ctx, "Ada", "ada@example.com", "secret12")
	require.NoError(t, err)
	assert.True(t, identity.Authenticated)

	book, err := app.LibraryCLI.Add(ctx, "Dune", "Frank Herbert", 200, "", "")
	require.NoError(t, err)

	tracker := app.Tracker(book.ID)
	_, err = tracker.Start(ctx, 1)
	require.NoError(t, err)
	progress, completed, err := tracker.Finish(ctx, 100)
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Equal(t, 99, progress.TotalPagesRead)
	assert.InDelta(t, 49.5, progress.CompletionPercent, 1e-9)
	tracker.Close()

	diary, err := app.ReadingCLI.ExportDiary(ctx, book.ID)
	require.NoError(t, err)
	assert.FileExists(t, diary.Path)
	require.NoError(t, app.Close())
	assert.FileExists(t, cfg.Metrics.Textfile)

	// A new process restores the cached identity.
	again, err := bootstrap.New(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = again.Close() }()
	status := again.IdentityCLI.Status(ctx)
	assert.True(t, status.Authenticated)
	user, err := again.IdentityCLI.WhoAmI(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	books, err := again.LibraryCLI.List(ctx, "in-progress")
	require.NoError(t, err)
	require.Len(t, books, 1)

	require.NoError(t, again.IdentityCLI.Logout(ctx))
	_, err = again.LibraryCLI.List(ctx, "")
	require.ErrorIs(t, err, apperrors.ErrAuth)
}

func TestNewFailsOnUnwritableDataDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	cfg := localConfig(t, blocker)

	_, err := bootstrap.New(context.Background(), cfg)
	require.Error(t, err)
}
