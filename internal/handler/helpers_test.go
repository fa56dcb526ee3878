package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/Gardusio/coach-client/internal/auth"
	"github.com/Gardusio/coach-client/internal/config"
	"github.com/Gardusio/coach-client/internal/crypto"
	"github.com/Gardusio/coach-client/internal/fitbit"
	"github.com/Gardusio/coach-client/internal/handler"
	"github.com/Gardusio/coach-client/internal/logging"
	"github.com/Gardusio/coach-client/internal/metrics"
	"github.com/Gardusio/coach-client/internal/session"
	"github.com/Gardusio/coach-client/internal/store"
)

const (
	testSessionID   = "7d0b6f2e-8c8a-4f57-9a57-0c9f1f3c2a11"
	testFrontendURL = "http://localhost:3000"
)

// testEnv wires the real services against an httptest Fitbit.
type testEnv struct {
	server  *httptest.Server
	tokens  *store.TokenStore
	auth    *handler.AuthHandler
	proxy   *handler.ProxyHandler
	metrics *handler.MetricsHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") == "bad-code" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"errors":[{"errorType":"invalid_grant"}]}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-token",
			"refresh_token": "refresh-token",
			"expires_in":    28800,
			"token_type":    "Bearer",
			"scope":         "activity sleep",
			"user_id":       "ABC123",
		})
	})
	mux.HandleFunc("/oauth2/revoke", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/1/user/-/profile.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errors":[{"errorType":"invalid_token"}]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user":{"encodedId":"ABC123","locale":"` + r.URL.Query().Get("locale") + `"}}`))
	})
	mux.HandleFunc("/1/user/-/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "/activities/steps/") {
			w.Write([]byte(`{"activities-steps":[{"dateTime":"2025-05-01","value":"1200"}]}`))
			return
		}
		w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Fitbit.ClientID = "client123"
	cfg.Fitbit.AuthURL = srv.URL + "/oauth2/authorize"
	cfg.Fitbit.TokenURL = srv.URL + "/oauth2/token"
	cfg.Fitbit.RevokeURL = srv.URL + "/oauth2/revoke"

	logger := logging.Discard()
	tokens := store.NewTokenStore(store.NewMemoryKV(), crypto.NewMockEncryptor(), time.Hour, 10*time.Minute)
	authService := auth.NewService(cfg.Fitbit, "", tokens, session.NewMemoryLocker(0), logger,
		auth.WithHTTPClient(srv.Client()))
	client := fitbit.NewClient(srv.URL, authService, srv.Client(), logger)
	aggregator := metrics.NewAggregator(client, cfg.Metrics, logger)

	return &testEnv{
		server:  srv,
		tokens:  tokens,
		auth:    handler.NewAuthHandler(authService, testFrontendURL, logger),
		proxy:   handler.NewProxyHandler(client, logger),
		metrics: handler.NewMetricsHandler(aggregator, logger),
	}
}

// authorize stores tokens for testSessionID through the exchange endpoint.
func (e *testEnv) authorize(t *testing.T) {
	t.Helper()
	req := makeRequest("POST", "/auth/fitbit/exchange", `{"code":"good-code","codeVerifier":"verifier","redirectUri":"http://localhost:3000/auth/fitbit/callback"}`)
	resp, err := e.auth.Exchange(sessionContext(), req)
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 from exchange, got %d: %s", resp.StatusCode, resp.Body)
	}
}

func sessionContext() context.Context {
	return handler.WithSession(context.Background(), testSessionID)
}

func makeRequest(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod:            method,
		Path:                  path,
		Headers:               map[string]string{"Content-Type": "application/json"},
		QueryStringParameters: map[string]string{},
		PathParameters:        map[string]string{},
		Body:                  body,
	}
}

func decodeBody(t *testing.T, resp events.APIGatewayProxyResponse, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(resp.Body), v); err != nil {
		t.Fatalf("Failed to decode body %q: %v", resp.Body, err)
	}
}
