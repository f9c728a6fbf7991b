package out

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	kratos "github.com/ory/kratos-client-go"

	"readjourney/internal/modules/identity/domain"
	identityout "readjourney/internal/modules/identity/port/out"
	"readjourney/internal/platform/boltcache"
	apperrors "readjourney/internal/platform/errors"
)

const (
	// ProviderSessionBucket holds the provider's native session token.
	ProviderSessionBucket = "provider_session"
	providerSessionKey    = "session_token"
	passwordMethod        = "password"
)

// KratosProvider signs users in through Ory Kratos native (API) flows.
type KratosProvider struct {
	client   *kratos.APIClient
	sessions *boltcache.Cache
	logger   *slog.Logger
}

var _ identityout.Provider = (*KratosProvider)(nil)

func NewKratosProvider(baseURL string, timeout time.Duration, sessions *boltcache.Cache, logger *slog.Logger) *KratosProvider {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := kratos.NewConfiguration()
	cfg.Servers = []kratos.ServerConfiguration{{URL: strings.TrimRight(baseURL, "/")}}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &KratosProvider{client: kratos.NewAPIClient(cfg), sessions: sessions, logger: logger}
}

func (p *KratosProvider) SignUp(ctx context.Context, creds identityout.Credentials) (identityout.ProviderSession, error) {
	const op = "provider sign-up"
	flow, resp, err := p.client.FrontendAPI.CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return identityout.ProviderSession{}, p.classify(op, resp, err)
	}
	body := kratos.UpdateRegistrationFlowWithPasswordMethodAsUpdateRegistrationFlowBody(&kratos.UpdateRegistrationFlowWithPasswordMethod{
		Method:   passwordMethod,
		Password: creds.Password,
		Traits: map[string]interface{}{
			"email": creds.Email,
			"name":  creds.Name,
		},
	})
	result, resp, err := p.client.FrontendAPI.UpdateRegistrationFlow(ctx).Flow(flow.Id).UpdateRegistrationFlowBody(body).Execute()
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusBadRequest {
			return identityout.ProviderSession{}, apperrors.Auth(op, orDefault(rejectionMessage(err), "registration rejected"), err)
		}
		return identityout.ProviderSession{}, p.classify(op, resp, err)
	}
	sessionToken := result.GetSessionToken()
	if sessionToken == "" {
		// Registration without the session hook: sign in explicitly.
		return p.SignIn(ctx, creds.Email, creds.Password)
	}
	identity := result.GetIdentity()
	if err := p.remember(sessionToken); err != nil {
		return identityout.ProviderSession{}, err
	}
	p.logger.Info("provider identity registered", "identity_id", identity.Id)
	return identityout.ProviderSession{User: toRemoteUser(identity), IDToken: sessionToken}, nil
}

func (p *KratosProvider) SignIn(ctx context.Context, email, password string) (identityout.ProviderSession, error) {
	const op = "provider sign-in"
	flow, resp, err := p.client.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return identityout.ProviderSession{}, p.classify(op, resp, err)
	}
	body := kratos.UpdateLoginFlowWithPasswordMethodAsUpdateLoginFlowBody(&kratos.UpdateLoginFlowWithPasswordMethod{
		Method:     passwordMethod,
		Identifier: email,
		Password:   password,
	})
	result, resp, err := p.client.FrontendAPI.UpdateLoginFlow(ctx).Flow(flow.Id).UpdateLoginFlowBody(body).Execute()
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusBadRequest {
			return identityout.ProviderSession{}, apperrors.Auth(op, "invalid email or password", err)
		}
		return identityout.ProviderSession{}, p.classify(op, resp, err)
	}
	session := result.GetSession()
	sessionToken := result.GetSessionToken()
	if session.Identity == nil || sessionToken == "" {
		return identityout.ProviderSession{}, apperrors.Auth(op, "identity provider returned no session", nil)
	}
	if err := p.remember(sessionToken); err != nil {
		return identityout.ProviderSession{}, err
	}
	return identityout.ProviderSession{User: toRemoteUser(*session.Identity), IDToken: sessionToken}, nil
}

// SignOut revokes the native session. Signing out without a session is a no-op.
func (p *KratosProvider) SignOut(ctx context.Context) error {
	const op = "provider sign-out"
	sessionToken, err := p.sessionToken()
	if err != nil || sessionToken == "" {
		return err
	}
	resp, err := p.client.FrontendAPI.PerformNativeLogout(ctx).PerformNativeLogoutBody(*kratos.NewPerformNativeLogoutBody(sessionToken)).Execute()
	if forgetErr := p.sessions.Delete(ProviderSessionBucket, providerSessionKey); forgetErr != nil {
		return fmt.Errorf("%s: forget session: %w", op, forgetErr)
	}
	if err != nil && !(resp != nil && resp.StatusCode == http.StatusUnauthorized) {
		return p.classify(op, resp, err)
	}
	return nil
}

func (p *KratosProvider) CurrentUser(ctx context.Context) (*identityout.ProviderSession, error) {
	const op = "provider whoami"
	sessionToken, err := p.sessionToken()
	if err != nil || sessionToken == "" {
		return nil, err
	}
	session, resp, err := p.client.FrontendAPI.ToSession(ctx).XSessionToken(sessionToken).Execute()
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			p.logger.Info("provider session ended")
			if err := p.sessions.Delete(ProviderSessionBucket, providerSessionKey); err != nil {
				return nil, fmt.Errorf("%s: forget session: %w", op, err)
			}
			return nil, nil
		}
		return nil, p.classify(op, resp, err)
	}
	if (session.Active != nil && !*session.Active) || session.Identity == nil {
		return nil, nil
	}
	return &identityout.ProviderSession{User: toRemoteUser(*session.Identity), IDToken: sessionToken}, nil
}

func (p *KratosProvider) remember(sessionToken string) error {
	if err := p.sessions.Put(ProviderSessionBucket, providerSessionKey, sessionToken); err != nil {
		return fmt.Errorf("store provider session: %w", err)
	}
	return nil
}

func (p *KratosProvider) sessionToken() (string, error) {
	var sessionToken string
	err := p.sessions.Get(ProviderSessionBucket, providerSessionKey, &sessionToken)
	if errors.Is(err, boltcache.ErrMiss) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load provider session: %w", err)
	}
	return sessionToken, nil
}

func (p *KratosProvider) classify(op string, resp *http.Response, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Network(op, err)
	}
	if resp == nil {
		p.logger.Error("identity provider unreachable", "op", op, "error", err)
		return apperrors.Network(op, err)
	}
	message := rejectionMessage(err)
	p.logger.Error("identity provider rejected request", "op", op, "status", resp.StatusCode, "message", message)
	if resp.StatusCode == http.StatusUnauthorized {
		return apperrors.Auth(op, orDefault(message, "provider session expired"), err)
	}
	return apperrors.FromStatus(op, resp.StatusCode, message)
}

func rejectionMessage(err error) string {
	var apiErr *kratos.GenericOpenAPIError
	if errors.As(err, &apiErr) {
		return kratosMessage(apiErr.Body())
	}
	return ""
}

// kratosMessage pulls the first human-readable message out of a Kratos error
// body: either a generic error or a flow whose UI carries messages.
func kratosMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Reason  string `json:"reason"`
		} `json:"error"`
		UI struct {
			Messages []struct {
				Text string `json:"text"`
			} `json:"messages"`
			Nodes []struct {
				Messages []struct {
					Text string `json:"text"`
				} `json:"messages"`
			} `json:"nodes"`
		} `json:"ui"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.UI.Messages) > 0 {
		return payload.UI.Messages[0].Text
	}
	for _, node := range payload.UI.Nodes {
		if len(node.Messages) > 0 {
			return node.Messages[0].Text
		}
	}
	if payload.Error.Reason != "" {
		return payload.Error.Reason
	}
	return payload.Error.Message
}

func toRemoteUser(identity kratos.Identity) domain.RemoteUser {
	user := domain.RemoteUser{ID: identity.Id}
	if traits, ok := identity.Traits.(map[string]interface{}); ok {
		if email, ok := traits["email"].(string); ok {
			user.Email = email
		}
		if name, ok := traits["name"].(string); ok {
			user.DisplayName = name
		}
	}
	return user
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
