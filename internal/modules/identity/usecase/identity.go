package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"readjourney/internal/modules/identity/domain"
	"readjourney/internal/modules/identity/dto"
	identityin "readjourney/internal/modules/identity/port/in"
	identityout "readjourney/internal/modules/identity/port/out"
	"readjourney/internal/modules/identity/service"
	apperrors "readjourney/internal/platform/errors"
	"readjourney/internal/platform/metrics"
	"readjourney/internal/platform/validate"
)

// Interactor signs users in against the identity provider and the record store
// and routes every identity change through the reconciler. Provider and
// watcher are optional; without them the record store alone identifies users.
type Interactor struct {
	reconciler *service.Reconciler
	provider   identityout.Provider
	watcher    identityout.Watcher
	backend    identityout.Backend
	validate   *validate.Validator
	metrics    metrics.Recorder
	logger     *slog.Logger
}

type Option func(*Interactor)

func WithProvider(provider identityout.Provider, watcher identityout.Watcher) Option {
	return func(i *Interactor) {
		i.provider = provider
		i.watcher = watcher
	}
}

func NewInteractor(reconciler *service.Reconciler, backend identityout.Backend, v *validate.Validator, rec metrics.Recorder, logger *slog.Logger, opts ...Option) identityin.Usecase {
	if v == nil {
		v = validate.New()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	i := &Interactor{reconciler: reconciler, backend: backend, validate: v, metrics: rec, logger: logger}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Interactor) Register(ctx context.Context, input dto.RegisterInput) (dto.IdentityOutput, error) {
	const op = "register"
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if err := i.validate.Struct(op, input); err != nil {
		return i.Current(ctx), err
	}
	creds := identityout.Credentials{Name: input.Name, Email: input.Email, Password: input.Password}

	var providerUser *domain.RemoteUser
	if i.provider != nil {
		session, err := i.provider.SignUp(ctx, creds)
		if err != nil {
			return i.Current(ctx), i.fail(op, err)
		}
		providerUser = &session.User
	}
	backend, err := i.backend.Register(ctx, creds)
	if err != nil {
		i.rollbackProvider(ctx, op)
		return i.Current(ctx), i.fail(op, err)
	}
	return i.establish(ctx, op, providerUser, backend)
}

func (i *Interactor) Login(ctx context.Context, input dto.LoginInput) (dto.IdentityOutput, error) {
	const op = "login"
	input.Email = strings.TrimSpace(input.Email)
	if err := i.validate.Struct(op, input); err != nil {
		return i.Current(ctx), err
	}

	var providerUser *domain.RemoteUser
	if i.provider != nil {
		session, err := i.provider.SignIn(ctx, input.Email, input.Password)
		if err != nil {
			return i.Current(ctx), i.fail(op, err)
		}
		providerUser = &session.User
	}
	backend, err := i.backend.Login(ctx, input.Email, input.Password)
	if err != nil {
		i.rollbackProvider(ctx, op)
		return i.Current(ctx), i.fail(op, err)
	}
	return i.establish(ctx, op, providerUser, backend)
}

// Logout signs out of both sides independently and always clears the local
// identity. Remote failures are logged, not returned.
func (i *Interactor) Logout(ctx context.Context) error {
	if i.provider != nil {
		if err := i.provider.SignOut(ctx); err != nil {
			i.logger.Warn("provider sign-out failed", "error", err)
			i.metrics.Error("identity", apperrors.KindName(err))
		}
	}
	if i.reconciler.BearerToken() != "" {
		if err := i.backend.Logout(ctx); err != nil {
			i.logger.Warn("backend sign-out failed", "error", err)
			i.metrics.Error("identity", apperrors.KindName(err))
		}
	}
	if err := i.reconciler.Clear(ctx); err != nil {
		return i.fail("logout", err)
	}
	i.logger.Info("signed out")
	return nil
}

// Restore loads the cached identity and then asks the provider once who is
// signed in. An unreachable provider leaves the cached identity in place.
func (i *Interactor) Restore(ctx context.Context) (dto.IdentityOutput, error) {
	record, err := i.reconciler.Restore(ctx)
	if err != nil {
		return toOutput(record), i.fail("restore", err)
	}
	if i.provider == nil {
		return toOutput(record), nil
	}
	session, err := i.provider.CurrentUser(ctx)
	if err != nil {
		i.logger.Warn("identity provider unavailable, keeping cached identity", "error", err)
		return toOutput(record), nil
	}
	record, err = i.reconciler.Apply(ctx, providerEvent(session))
	if err != nil {
		return toOutput(i.reconciler.Current()), i.fail("restore", err)
	}
	return toOutput(record), nil
}

func (i *Interactor) Current(context.Context) dto.IdentityOutput {
	return toOutput(i.reconciler.Current())
}

func (i *Interactor) WhoAmI(ctx context.Context) (dto.UserOutput, error) {
	if i.reconciler.BearerToken() == "" {
		return dto.UserOutput{}, apperrors.Auth("whoami", "not signed in", nil)
	}
	user, err := i.backend.Current(ctx)
	if err != nil {
		return dto.UserOutput{}, i.fail("whoami", err)
	}
	return toUserOutput(user), nil
}

func (i *Interactor) Listen(ctx context.Context) error {
	if i.watcher == nil {
		return apperrors.Validation("listen", "no identity provider is configured")
	}
	events := i.watcher.Watch(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			if _, err := i.reconciler.Apply(ctx, event); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				i.logger.Error("apply provider event", "error", err)
			}
		}
	}
}

func (i *Interactor) Subscribe() (<-chan dto.IdentityOutput, func()) {
	records, cancel := i.reconciler.Subscribe()
	out := make(chan dto.IdentityOutput, 1)
	go func() {
		defer close(out)
		for record := range records {
			next := toOutput(record)
			select {
			case out <- next:
			default:
				select {
				case <-out:
				default:
				}
				out <- next
			}
		}
	}()
	return out, cancel
}

func (i *Interactor) establish(ctx context.Context, op string, providerUser *domain.RemoteUser, backend identityout.BackendSession) (dto.IdentityOutput, error) {
	user := backend.User
	if providerUser != nil {
		user.ID = providerUser.ID
		if user.DisplayName == "" {
			user.DisplayName = providerUser.DisplayName
		}
		if user.Email == "" {
			user.Email = providerUser.Email
		}
	}
	record, err := i.reconciler.Establish(ctx, user, backend.Token)
	if err != nil {
		return toOutput(record), i.fail(op, err)
	}
	i.logger.Info("signed in", "user_id", user.ID, "email", user.Email)
	return toOutput(record), nil
}

func (i *Interactor) rollbackProvider(ctx context.Context, op string) {
	if i.provider == nil {
		return
	}
	if err := i.provider.SignOut(ctx); err != nil {
		i.logger.Warn("provider sign-out after failed "+op, "error", err)
	}
}

func (i *Interactor) fail(op string, err error) error {
	i.metrics.Error("identity", apperrors.KindName(err))
	i.logger.Debug("identity operation failed", "op", op, "error", err)
	return err
}

func providerEvent(session *identityout.ProviderSession) domain.ProviderEvent {
	if session == nil {
		return domain.ProviderEvent{}
	}
	user := session.User
	return domain.ProviderEvent{User: &user, IDToken: session.IDToken}
}

func toOutput(record domain.Record) dto.IdentityOutput {
	out := dto.IdentityOutput{
		Authenticated: record.Authenticated(),
		State:         string(record.State),
		TokenSource:   string(record.TokenSource),
		Version:       record.Version,
	}
	if record.User != nil {
		user := toUserOutput(*record.User)
		out.User = &user
	}
	return out
}

func toUserOutput(user domain.RemoteUser) dto.UserOutput {
	return dto.UserOutput{ID: user.ID, DisplayName: user.DisplayName, Email: user.Email}
}
