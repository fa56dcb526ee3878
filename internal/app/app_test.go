package app

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gardusio/coach-client/internal/config"
	"github.com/Gardusio/coach-client/internal/logging"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.FrontendURL = "http://localhost:3000"
	cfg.Fitbit.ClientID = "client123"

	app, err := Build(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	return app
}

func request(method, path string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Headers:    map[string]string{},
	}
}

func TestHandleRequest_Health(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.HandleRequest(context.Background(), request(http.MethodGet, "/api/health"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, resp.Body)
	assert.Equal(t, "http://localhost:3000", resp.Headers["Access-Control-Allow-Origin"])
	assert.Empty(t, resp.Headers["Set-Cookie"])
}

func TestHandleRequest_Preflight(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.HandleRequest(context.Background(), request(http.MethodOptions, "/fitbit/session"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "true", resp.Headers["Access-Control-Allow-Credentials"])
}

func TestHandleRequest_NotFound(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.HandleRequest(context.Background(), request(http.MethodGet, "/notes"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleRequest_IssuesAndReusesSessionCookie(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	resp, err := app.HandleRequest(ctx, request(http.MethodGet, "/api/fitbit/session"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"active":false}`, resp.Body)

	setCookie := resp.Headers["Set-Cookie"]
	require.NotEmpty(t, setCookie)
	assert.True(t, strings.HasPrefix(setCookie, "fitbit_sid="))
	assert.Contains(t, setCookie, "HttpOnly")

	cookie, err := http.ParseSetCookie(setCookie)
	require.NoError(t, err)

	req := request(http.MethodGet, "/fitbit/session")
	req.Headers["Cookie"] = cookie.Name + "=" + cookie.Value
	resp, err = app.HandleRequest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Headers["Set-Cookie"])
}

func TestHandleRequest_ProxyRequiresAuthorization(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.HandleRequest(context.Background(), request(http.MethodGet, "/fitbit/proxy/1/user/-/profile.json"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"error":"Not authorized"}`, resp.Body)
}

func TestHandleRequest_LoginRedirects(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.HandleRequest(context.Background(), request(http.MethodGet, "/auth/fitbit/login"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Headers["Location"], "https://www.fitbit.com/oauth2/authorize?"))
	assert.NotEmpty(t, resp.Headers["Set-Cookie"])
}

func TestHandleRequest_OriginVerify(t *testing.T) {
	app := newTestApp(t)
	app.cfg.Environment = config.EnvironmentProduction
	app.originSecret = "cloudfront-secret"
	ctx := context.Background()

	resp, err := app.HandleRequest(ctx, request(http.MethodGet, "/health"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req := request(http.MethodGet, "/health")
	req.Headers["x-origin-verify"] = "cloudfront-secret"
	resp, err = app.HandleRequest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleRequest_MetricsBadRange(t *testing.T) {
	app := newTestApp(t)

	req := request(http.MethodGet, "/fitbit/metrics")
	req.QueryStringParameters = map[string]string{"start": "2025-05-01"}
	resp, err := app.HandleRequest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
