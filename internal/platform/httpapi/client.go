// Package httpapi is the JSON transport shared by the remote record-store adapters.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"readjourney/internal/platform/credential"
	apperrors "readjourney/internal/platform/errors"
)

const maxErrorBody = 4 << 10

type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      credential.Store
	logger     *slog.Logger
}

func New(baseURL string, timeout time.Duration, creds credential.Store, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		creds:      creds,
		logger:     logger,
	}
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	// Anonymous skips the bearer token (sign-in and sign-up endpoints).
	Anonymous bool
	// QuietNotFound suppresses error logging for 404 responses that callers treat as empty.
	QuietNotFound bool
}

func (r Request) op() string {
	return r.Method + " " + r.Path
}

// Do sends req and decodes a JSON response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	raw, err := c.DoRaw(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.Network(req.op(), fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// DoRaw sends req and returns the raw 2xx body.
func (c *Client) DoRaw(ctx context.Context, req Request) ([]byte, error) {
	reqURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		reqURL += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", req.op(), err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", req.op(), err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if !req.Anonymous && c.creds != nil {
		if token := c.creds.BearerToken(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.Debug("backend request", "method", req.Method, "path", req.Path)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		c.logger.Error("backend request failed", "op", req.op(), "error", err)
		return nil, apperrors.Network(req.op(), err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Network(req.op(), fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return payload, nil
	}

	appErr := apperrors.FromStatus(req.op(), resp.StatusCode, errorMessage(payload))
	if !(req.QuietNotFound && resp.StatusCode == http.StatusNotFound) {
		c.logger.Error("backend request rejected", "op", req.op(), "status", resp.StatusCode, "message", apperrors.Message(appErr))
	}
	if resp.StatusCode == http.StatusUnauthorized && !req.Anonymous {
		return nil, credential.Guard(ctx, c.creds, appErr)
	}
	return nil, appErr
}

func errorMessage(payload []byte) string {
	if len(payload) > maxErrorBody {
		payload = payload[:maxErrorBody]
	}
	decoded := struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}{}
	if err := json.Unmarshal(payload, &decoded); err == nil {
		if decoded.Message != "" {
			return decoded.Message
		}
		return decoded.Error
	}
	return ""
}
