package out

import (
	"context"

	"readjourney/internal/modules/identity/domain"
)

type Credentials struct {
	Name     string
	Email    string
	Password string
}

// ProviderSession is a signed-in provider user and the provider's own token.
type ProviderSession struct {
	User    domain.RemoteUser
	IDToken string
}

// Provider is the external identity provider.
type Provider interface {
	SignUp(ctx context.Context, creds Credentials) (ProviderSession, error)
	SignIn(ctx context.Context, email, password string) (ProviderSession, error)
	SignOut(ctx context.Context) error
	// CurrentUser returns nil without error when nobody is signed in.
	CurrentUser(ctx context.Context) (*ProviderSession, error)
}

// Watcher streams provider observations until ctx ends, then closes the channel.
type Watcher interface {
	Watch(ctx context.Context) <-chan domain.ProviderEvent
}

// BackendSession is the record store's view of a signed-in user.
type BackendSession struct {
	User  domain.RemoteUser
	Token string
}

// Backend is the record store's authentication API.
type Backend interface {
	Register(ctx context.Context, creds Credentials) (BackendSession, error)
	Login(ctx context.Context, email, password string) (BackendSession, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (domain.RemoteUser, error)
}

// Cache persists one user and one token. Save writes both atomically.
type Cache interface {
	Load(ctx context.Context) (domain.Snapshot, bool, error)
	Save(ctx context.Context, snapshot domain.Snapshot) error
	Clear(ctx context.Context) error
}
