package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readjourney/internal/modules/identity/domain"
	"readjourney/internal/modules/identity/dto"
	identityin "readjourney/internal/modules/identity/port/in"
	identityout "readjourney/internal/modules/identity/port/out"
	"readjourney/internal/modules/identity/service"
	"readjourney/internal/modules/identity/usecase"
	"readjourney/internal/platform/clock"
	apperrors "readjourney/internal/platform/errors"
	"readjourney/internal/platform/logging"
)

type memoryCache struct {
	mu       sync.Mutex
	snapshot *domain.Snapshot
	writes   int
}

func (m *memoryCache) Load(context.Context) (domain.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return domain.Snapshot{}, false, nil
	}
	return *m.snapshot, true, nil
}

func (m *memoryCache) Save(_ context.Context, s domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.snapshot = &s
	return nil
}

func (m *memoryCache) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.snapshot = nil
	return nil
}

type fakeProvider struct {
	signIns    int
	signOuts   int
	signInErr  error
	outErr     error
	current    *identityout.ProviderSession
	currentErr error
}

func (f *fakeProvider) SignUp(_ context.Context, creds identityout.Credentials) (identityout.ProviderSession, error) {
	return identityout.ProviderSession{User: domain.RemoteUser{ID: "kratos-1", DisplayName: creds.Name, Email: creds.Email}, IDToken: "ory_st_1"}, nil
}

func (f *fakeProvider) SignIn(_ context.Context, email, _ string) (identityout.ProviderSession, error) {
	f.signIns++
	if f.signInErr != nil {
		return identityout.ProviderSession{}, f.signInErr
	}
	return identityout.ProviderSession{User: domain.RemoteUser{ID: "kratos-1", Email: email}, IDToken: "ory_st_1"}, nil
}

func (f *fakeProvider) SignOut(context.Context) error {
	f.signOuts++
	return f.outErr
}

func (f *fakeProvider) CurrentUser(context.Context) (*identityout.ProviderSession, error) {
	return f.current, f.currentErr
}

type fakeBackend struct {
	loginErr  error
	logoutErr error
	logouts   int
}

func (f *fakeBackend) Register(_ context.Context, creds identityout.Credentials) (identityout.BackendSession, error) {
	return identityout.BackendSession{User: domain.RemoteUser{ID: "mongo-1", DisplayName: creds.Name, Email: creds.Email}, Token: "backend-token"}, nil
}

func (f *fakeBackend) Login(_ context.Context, email, _ string) (identityout.BackendSession, error) {
	if f.loginErr != nil {
		return identityout.BackendSession{}, f.loginErr
	}
	return identityout.BackendSession{User: domain.RemoteUser{ID: "mongo-1", DisplayName: "Ada", Email: email}, Token: "backend-token"}, nil
}

func (f *fakeBackend) Logout(context.Context) error {
	f.logouts++
	return f.logoutErr
}

func (f *fakeBackend) Current(context.Context) (domain.RemoteUser, error) {
	return domain.RemoteUser{ID: "mongo-1", DisplayName: "Ada", Email: "ada@example.com"}, nil
}

type chanWatcher struct {
	events chan domain.ProviderEvent
}

func (w chanWatcher) Watch(context.Context) <-chan domain.ProviderEvent { return w.events }

type fixture struct {
	cache    *memoryCache
	provider *fakeProvider
	backend  *fakeBackend
	watcher  chanWatcher
	usecase  identityin.Usecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cache:    &memoryCache{},
		provider: &fakeProvider{},
		backend:  &fakeBackend{},
		watcher:  chanWatcher{events: make(chan domain.ProviderEvent, 4)},
	}
	reconciler := service.NewReconciler(f.cache, clock.Fixed(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)), nil, logging.Discard())
	f.usecase = usecase.NewInteractor(reconciler, f.backend, nil, nil, logging.Discard(), usecase.WithProvider(f.provider, f.watcher))
	return f
}

func TestLoginEstablishesFreshIdentity(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	out, err := f.usecase.Login(context.Background(), dto.LoginInput{Email: " ada@example.com ", Password: "secret12"})
	require.NoError(t, err)
	assert.True(t, out.Authenticated)
	assert.Equal(t, string(domain.StateAuthenticatedFresh), out.State)
	assert.Equal(t, string(domain.TokenSourceBackend), out.TokenSource)
	require.NotNil(t, out.User)
	assert.Equal(t, "kratos-1", out.User.ID)
	assert.Equal(t, "Ada", out.User.DisplayName)
	assert.Equal(t, 1, f.cache.writes)
}

func TestRegisterUsesBackendProfile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	out, err := f.usecase.Register(context.Background(), dto.RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "secret12"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", out.User.DisplayName)
	assert.Equal(t, "kratos-1", out.User.ID)
}

func TestLoginValidatesBeforeCallingRemotes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.usecase.Login(context.Background(), dto.LoginInput{Email: "not-an-email", Password: "short"})
	require.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Zero(t, f.provider.signIns)
	assert.Zero(t, f.cache.writes)
}

func TestBackendLoginFailureSignsOutOfProvider(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.backend.loginErr = apperrors.Auth("login", "invalid email or password", nil)

	out, err := f.usecase.Login(context.Background(), dto.LoginInput{Email: "ada@example.com", Password: "secret12"})
	require.ErrorIs(t, err, apperrors.ErrAuth)
	assert.False(t, out.Authenticated)
	assert.Equal(t, 1, f.provider.signOuts)
	assert.Zero(t, f.cache.writes)
}

func TestLogoutAlwaysClears(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.usecase.Login(ctx, dto.LoginInput{Email: "ada@example.com", Password: "secret12"})
	require.NoError(t, err)
	f.provider.outErr = apperrors.Network("provider sign-out", errors.New("refused"))
	f.backend.logoutErr = apperrors.Network("POST /users/signout", errors.New("refused"))

	require.NoError(t, f.usecase.Logout(ctx))
	assert.False(t, f.usecase.Current(ctx).Authenticated)
	assert.Nil(t, f.cache.snapshot)
	assert.Equal(t, 1, f.backend.logouts)

	// Nothing to revoke the second time.
	require.NoError(t, f.usecase.Logout(ctx))
	assert.Equal(t, 1, f.backend.logouts)
}

func TestWhoAmIRequiresToken(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := f.usecase.WhoAmI(context.Background())
	require.ErrorIs(t, err, apperrors.ErrAuth)
}

func TestListenAppliesProviderEvents(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, unsubscribe := f.usecase.Subscribe()
	defer unsubscribe()

	done := make(chan error, 1)
	go func() { done <- f.usecase.Listen(ctx) }()

	f.watcher.events <- domain.ProviderEvent{User: &domain.RemoteUser{ID: "kratos-1", Email: "ada@example.com"}, IDToken: "ory_st_1"}
	require.Eventually(t, func() bool {
		return f.usecase.Current(ctx).Authenticated
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, string(domain.TokenSourceProvider), f.usecase.Current(ctx).TokenSource)

	select {
	case update := <-updates:
		assert.NotEmpty(t, update.State)
	case <-time.After(time.Second):
		t.Fatal("expected an identity update")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestListenDropsEventsAfterCancel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.watcher.events <- domain.ProviderEvent{User: &domain.RemoteUser{ID: "kratos-1"}, IDToken: "ory_st_1"}

	require.NoError(t, f.usecase.Listen(ctx))
	assert.Zero(t, f.cache.writes)
	assert.False(t, f.usecase.Current(context.Background()).Authenticated)
}

func cachedAda() *domain.Snapshot {
	return &domain.Snapshot{
		User:        &domain.RemoteUser{ID: "kratos-1", DisplayName: "Ada", Email: "ada@example.com"},
		Token:       "backend-token",
		TokenSource: domain.TokenSourceBackend,
	}
}

func TestRestoreClearsWhenProviderHasNoUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.cache.snapshot = cachedAda()

	out, err := f.usecase.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Authenticated)
	assert.Nil(t, f.cache.snapshot)
	assert.Equal(t, 1, f.cache.writes)
}

func TestRestoreKeepsSameProviderUser(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.cache.snapshot = cachedAda()
	f.provider.current = &identityout.ProviderSession{
		User:    domain.RemoteUser{ID: "kratos-1", DisplayName: "Ada", Email: "ada@example.com"},
		IDToken: "ory_st_1",
	}

	out, err := f.usecase.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Authenticated)
	require.NotNil(t, f.cache.snapshot)
	assert.Equal(t, "backend-token", f.cache.snapshot.Token)
	assert.Zero(t, f.cache.writes)
}

func TestRestoreKeepsCacheWhenProviderUnreachable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.cache.snapshot = cachedAda()
	f.provider.currentErr = apperrors.Network("provider whoami", errors.New("connection refused"))

	out, err := f.usecase.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Authenticated)
	assert.NotNil(t, f.cache.snapshot)
	assert.Zero(t, f.cache.writes)
}
