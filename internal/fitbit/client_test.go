package fitbit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gardusio/coach-client/internal/logging"
)

var errNoToken = errors.New("not authorized")

type staticTokens map[string]string

func (s staticTokens) AccessToken(_ context.Context, sid string) (string, error) {
	tok, ok := s[sid]
	if !ok {
		return "", errNoToken
	}
	return tok, nil
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", staticTokens{"sid": "tok-1"}, srv.Client(), logging.Discard())
}

func TestClient_Get_AttachesBearer(t *testing.T) {
	var gotAuth, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Write([]byte(`{"user":{"encodedId":"ABC"}}`))
	})

	body, err := c.Get(context.Background(), "sid", "/1/user/-/profile.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":{"encodedId":"ABC"}}`, string(body))
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "/1/user/-/profile.json", gotPath)
}

func TestClient_Do_ForwardsMethodQueryAndBody(t *testing.T) {
	var gotMethod, gotQuery, gotBody, gotCT string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		gotCT = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	})

	resp, err := c.Do(context.Background(), "sid", Request{
		Method: http.MethodPost,
		Path:   "1/user/-/foods/log.json",
		Query:  url.Values{"date": {"2025-05-01"}},
		Body:   []byte(`{"foodId":1}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "date=2025-05-01", gotQuery)
	assert.Equal(t, `{"foodId":1}`, gotBody)
	assert.Equal(t, "application/json", gotCT)
}

func TestClient_Do_MissingPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.Do(context.Background(), "sid", Request{Path: "/"})
	assert.ErrorIs(t, err, ErrMissingPath)
}

func TestClient_Do_TokenErrorPassesThrough(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.Get(context.Background(), "unknown", "1/user/-/profile.json")
	assert.ErrorIs(t, err, errNoToken)
}

func TestClient_Do_UpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"errors":[{"errorType":"rate_limit"}]}`))
	})

	_, err := c.Get(context.Background(), "sid", "1/user/-/hrv/date/2025-05-01/2025-05-30.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamRequestFailed)

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusTooManyRequests, upErr.StatusCode)
	assert.Contains(t, string(upErr.Body), "rate_limit")
}
