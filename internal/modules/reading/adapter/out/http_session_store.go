package out

import (
	"context"
	"net/http"
	"net/url"

	readingout "readjourney/internal/modules/reading/port/out"
	"readjourney/internal/platform/httpapi"
)

type HTTPSessionStore struct {
	client *httpapi.Client
}

var _ readingout.SessionStore = (*HTTPSessionStore)(nil)

func NewHTTPSessionStore(client *httpapi.Client) *HTTPSessionStore {
	return &HTTPSessionStore{client: client}
}

type pageRequest struct {
	ID   string `json:"id"`
	Page int    `json:"page"`
}

func (s *HTTPSessionStore) StartSession(ctx context.Context, bookID string, page int) error {
	return s.client.Do(ctx, httpapi.Request{Method: http.MethodPost, Path: "/books/reading/start", Body: pageRequest{ID: bookID, Page: page}}, nil)
}

func (s *HTTPSessionStore) FinishSession(ctx context.Context, bookID string, page int) error {
	return s.client.Do(ctx, httpapi.Request{Method: http.MethodPost, Path: "/books/reading/finish", Body: pageRequest{ID: bookID, Page: page}}, nil)
}

func (s *HTTPSessionStore) DeleteSession(ctx context.Context, _ string, sessionID string) error {
	return s.client.Do(ctx, httpapi.Request{Method: http.MethodDelete, Path: "/books/reading/session/" + url.PathEscape(sessionID)}, nil)
}
