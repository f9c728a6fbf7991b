package out

import (
	"context"
	"net/http"

	"readjourney/internal/modules/identity/domain"
	identityout "readjourney/internal/modules/identity/port/out"
	apperrors "readjourney/internal/platform/errors"
	"readjourney/internal/platform/httpapi"
)

// HTTPBackend authenticates against the remote record store.
type HTTPBackend struct {
	client *httpapi.Client
}

var _ identityout.Backend = (*HTTPBackend)(nil)

func NewHTTPBackend(client *httpapi.Client) *HTTPBackend {
	return &HTTPBackend{client: client}
}

type userPayload struct {
	ID    string `json:"_id"`
	AltID string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (p userPayload) toRemoteUser() domain.RemoteUser {
	id := p.ID
	if id == "" {
		id = p.AltID
	}
	return domain.RemoteUser{ID: id, DisplayName: p.Name, Email: p.Email}
}

// authPayload accepts both {token, user:{...}} and the flat {_id, name, email, token}.
type authPayload struct {
	userPayload
	Token string       `json:"token"`
	User  *userPayload `json:"user"`
}

func (p authPayload) toSession(op string) (identityout.BackendSession, error) {
	if p.Token == "" {
		return identityout.BackendSession{}, apperrors.Auth(op, "sign-in did not return a token", nil)
	}
	user := p.userPayload
	if p.User != nil {
		user = *p.User
	}
	return identityout.BackendSession{User: user.toRemoteUser(), Token: p.Token}, nil
}

func (b *HTTPBackend) Register(ctx context.Context, creds identityout.Credentials) (identityout.BackendSession, error) {
	var payload authPayload
	err := b.client.Do(ctx, httpapi.Request{
		Method:    http.MethodPost,
		Path:      "/users/signup",
		Body:      map[string]string{"name": creds.Name, "email": creds.Email, "password": creds.Password},
		Anonymous: true,
	}, &payload)
	if err != nil {
		return identityout.BackendSession{}, err
	}
	return payload.toSession("register")
}

func (b *HTTPBackend) Login(ctx context.Context, email, password string) (identityout.BackendSession, error) {
	var payload authPayload
	err := b.client.Do(ctx, httpapi.Request{
		Method:    http.MethodPost,
		Path:      "/users/signin",
		Body:      map[string]string{"email": email, "password": password},
		Anonymous: true,
	}, &payload)
	if err != nil {
		return identityout.BackendSession{}, err
	}
	return payload.toSession("login")
}

func (b *HTTPBackend) Logout(ctx context.Context) error {
	return b.client.Do(ctx, httpapi.Request{Method: http.MethodPost, Path: "/users/signout"}, nil)
}

func (b *HTTPBackend) Current(ctx context.Context) (domain.RemoteUser, error) {
	var payload authPayload
	if err := b.client.Do(ctx, httpapi.Request{Method: http.MethodGet, Path: "/users/current"}, &payload); err != nil {
		return domain.RemoteUser{}, err
	}
	if payload.User != nil {
		return payload.User.toRemoteUser(), nil
	}
	return payload.userPayload.toRemoteUser(), nil
}
