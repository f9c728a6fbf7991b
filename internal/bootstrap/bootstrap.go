package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	identityinadapter "readjourney/internal/modules/identity/adapter/in"
	identityoutadapter "readjourney/internal/modules/identity/adapter/out"
	identityout "readjourney/internal/modules/identity/port/out"
	identityservice "readjourney/internal/modules/identity/service"
	identityusecase "readjourney/internal/modules/identity/usecase"
	libraryinadapter "readjourney/internal/modules/library/adapter/in"
	libraryoutadapter "readjourney/internal/modules/library/adapter/out"
	libraryout "readjourney/internal/modules/library/port/out"
	libraryservice "readjourney/internal/modules/library/service"
	libraryusecase "readjourney/internal/modules/library/usecase"
	readinginadapter "readjourney/internal/modules/reading/adapter/in"
	readingoutadapter "readjourney/internal/modules/reading/adapter/out"
	readingin "readjourney/internal/modules/reading/port/in"
	readingout "readjourney/internal/modules/reading/port/out"
	readingservice "readjourney/internal/modules/reading/service"
	readingusecase "readjourney/internal/modules/reading/usecase"
	"readjourney/internal/platform/boltcache"
	"readjourney/internal/platform/clock"
	"readjourney/internal/platform/config"
	"readjourney/internal/platform/httpapi"
	"readjourney/internal/platform/id"
	"readjourney/internal/platform/logging"
	"readjourney/internal/platform/metrics"
	"readjourney/internal/platform/sqlitedb"
	"readjourney/internal/platform/token"
	"readjourney/internal/platform/validate"
)

type App struct {
	IdentityCLI identityinadapter.CLIHandler
	LibraryCLI  libraryinadapter.CLIHandler
	ReadingCLI  readinginadapter.CLIHandler
	Logger      *slog.Logger
	Metrics     *metrics.Manager

	reading  readingin.Usecase
	textfile string
	closers  []io.Closer
}

// recordStore is one backend mode's set of outbound adapters.
type recordStore struct {
	books    libraryout.BookStore
	sessions readingout.SessionStore
	auth     identityout.Backend
}

// New wires every module and restores the cached identity, so the first call
// already carries the bearer token.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	app := &App{Logger: logger, Metrics: metrics.NewManager(), textfile: cfg.Metrics.Textfile, closers: []io.Closer{logCloser}}
	if err := app.wire(ctx, cfg); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(ctx context.Context, cfg config.Config) error {
	clk := clock.SystemClock{}
	ids := id.UUID{}
	v := validate.New()

	cache, err := boltcache.Open(cfg.CachePath(), libraryoutadapter.ImageBucket, identityoutadapter.IdentityBucket, identityoutadapter.ProviderSessionBucket)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	a.closers = append(a.closers, cache)

	reconciler := identityservice.NewReconciler(
		identityoutadapter.NewBoltIdentityCache(cache),
		clk,
		a.Metrics,
		a.Logger.With("component", "identity"),
	)

	var store recordStore
	switch cfg.Backend.Mode {
	case config.BackendModeLocal:
		db, err := sqlitedb.Open(ctx, cfg.DBPath())
		if err != nil {
			return fmt.Errorf("open record store: %w", err)
		}
		a.closers = append(a.closers, db)
		issuer := token.NewIssuer(token.Config{Secret: cfg.Backend.TokenSecret, TTL: cfg.Backend.TokenTTL}, clk.Now)
		auth := sqlitedb.NewAuthenticator(db, issuer, reconciler)
		store = recordStore{
			books:    libraryoutadapter.NewSQLiteBookStore(db, auth, clk, ids),
			sessions: readingoutadapter.NewSQLiteSessionStore(db, auth, clk, ids),
			auth:     identityoutadapter.NewSQLiteBackend(db, issuer, auth, reconciler, clk, ids),
		}
	default:
		client := httpapi.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, reconciler, a.Logger.With("component", "backend"))
		books, err := libraryoutadapter.NewHTTPBookStore(client)
		if err != nil {
			return err
		}
		store = recordStore{
			books:    books,
			sessions: readingoutadapter.NewHTTPSessionStore(client),
			auth:     identityoutadapter.NewHTTPBackend(client),
		}
	}

	var identityOpts []identityusecase.Option
	if cfg.Provider.KratosURL != "" {
		provider := identityoutadapter.NewKratosProvider(cfg.Provider.KratosURL, cfg.Provider.Timeout, cache, a.Logger.With("component", "provider"))
		watcher := identityoutadapter.NewPollingWatcher(provider, cfg.Provider.PollInterval, a.Logger.With("component", "provider"))
		identityOpts = append(identityOpts, identityusecase.WithProvider(provider, watcher))
	}
	identityUC := identityusecase.NewInteractor(reconciler, store.auth, v, a.Metrics, a.Logger, identityOpts...)

	librarySvc := libraryservice.NewBookService(
		store.books,
		libraryoutadapter.NewBoltImageCache(cache),
		libraryoutadapter.NewPDFPageCounter(),
		a.Logger.With("component", "library"),
	)
	libraryUC := libraryusecase.NewInteractor(librarySvc, v)

	readingUC := readingusecase.NewInteractor(
		readingservice.NewProgressService(readingoutadapter.NewLibraryBookReader(libraryUC)),
		store.sessions,
		readingoutadapter.NewVaultDiaryStore(cfg.DiaryDir(), clk),
		v,
		a.Metrics,
		a.Logger.With("component", "reading"),
	)

	a.IdentityCLI = identityinadapter.NewCLIHandler(identityUC)
	a.LibraryCLI = libraryinadapter.NewCLIHandler(libraryUC)
	a.ReadingCLI = readinginadapter.NewCLIHandler(readingUC)
	a.reading = readingUC

	if _, err := identityUC.Restore(ctx); err != nil {
		a.Logger.Warn("cached identity unreadable, continuing signed out", "error", err)
	}
	return nil
}

// Tracker opens a reading view for one book. Close it when done.
func (a *App) Tracker(bookID string) *readinginadapter.Tracker {
	return readinginadapter.NewTracker(a.reading, bookID)
}

// Close writes the metrics textfile and releases stores in reverse order.
func (a *App) Close() error {
	var errs []error
	if err := a.Metrics.WriteTextfile(a.textfile); err != nil {
		errs = append(errs, err)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
