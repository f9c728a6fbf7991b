package out_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identityout "readjourney/internal/modules/identity/adapter/out"
	"readjourney/internal/modules/identity/domain"
	portout "readjourney/internal/modules/identity/port/out"
	"readjourney/internal/platform/logging"
)

// scriptedProvider answers CurrentUser from a fixed script, repeating the last step.
type scriptedProvider struct {
	mu    sync.Mutex
	steps []func() (*portout.ProviderSession, error)
	calls int
}

func (s *scriptedProvider) SignUp(context.Context, portout.Credentials) (portout.ProviderSession, error) {
	return portout.ProviderSession{}, nil
}

func (s *scriptedProvider) SignIn(context.Context, string, string) (portout.ProviderSession, error) {
	return portout.ProviderSession{}, nil
}

func (s *scriptedProvider) SignOut(context.Context) error { return nil }

func (s *scriptedProvider) CurrentUser(context.Context) (*portout.ProviderSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step := s.steps[min(s.calls, len(s.steps)-1)]
	s.calls++
	return step()
}

func TestPollingWatcherEmitsOnlyChanges(t *testing.T) {
	t.Parallel()
	ada := func() (*portout.ProviderSession, error) {
		return &portout.ProviderSession{User: domain.RemoteUser{ID: "kratos-1", Email: "ada@example.com"}, IDToken: "ory_st_1"}, nil
	}
	provider := &scriptedProvider{steps: []func() (*portout.ProviderSession, error){
		ada,
		ada,
		func() (*portout.ProviderSession, error) { return nil, errors.New("connection refused") },
		ada,
		func() (*portout.ProviderSession, error) { return nil, nil },
	}}
	watcher := identityout.NewPollingWatcher(provider, 5*time.Millisecond, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := watcher.Watch(ctx)
	first := <-events
	require.NotNil(t, first.User)
	assert.Equal(t, "kratos-1", first.User.ID)

	second := <-events
	assert.Nil(t, second.User, "a failed poll is not reported as a sign-out")

	cancel()
	for range events {
	}
	provider.mu.Lock()
	defer provider.mu.Unlock()
	assert.GreaterOrEqual(t, provider.calls, 5)
}
