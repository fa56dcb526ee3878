// Package fitbit calls the Fitbit Web API on behalf of a session.
package fitbit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Gardusio/coach-client/internal/logging"
)

// maxBodySize caps how much of an upstream response is read.
const maxBodySize = 10 << 20

// TokenSource yields a session's access token, refreshing it if needed.
type TokenSource interface {
	AccessToken(ctx context.Context, sid string) (string, error)
}

// Request is one proxied call. Path is relative to the API base URL,
// for example "1/user/-/profile.json".
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        []byte
	ContentType string
}

// Response is a successful upstream answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client is the authenticated Fitbit API proxy.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a Client. A nil httpClient selects http.DefaultClient.
func NewClient(baseURL string, tokens TokenSource, httpClient *http.Client, logger logging.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Do forwards req with the session's bearer token. Errors from the token
// source (auth.ErrNotAuthorized among them) are returned unchanged; a non-2xx
// answer is returned as *UpstreamError.
func (c *Client) Do(ctx context.Context, sid string, req Request) (*Response, error) {
	path := strings.TrimLeft(req.Path, "/")
	if path == "" {
		return nil, ErrMissingPath
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	accessToken, err := c.tokens.AccessToken(ctx, sid)
	if err != nil {
		return nil, err
	}

	target := c.baseURL + "/" + path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		ct := req.ContentType
		if ct == "" {
			ct = "application/json"
		}
		httpReq.Header.Set("Content-Type", ct)
	}

	hc := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, c.httpClient),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
	)

	start := time.Now()
	resp, err := hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fitbit request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read fitbit response: %w", err)
	}

	c.logger.Debug(ctx, "fitbit request", "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: data}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Get fetches path and returns the response body.
func (c *Client) Get(ctx context.Context, sid, path string) ([]byte, error) {
	resp, err := c.Do(ctx, sid, Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
