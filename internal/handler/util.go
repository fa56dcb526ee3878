package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"golang.org/x/oauth2"

	"github.com/Gardusio/coach-client/internal/auth"
	"github.com/Gardusio/coach-client/internal/fitbit"
)

type sessionKey struct{}

// WithSession returns a context carrying the request's session id.
func WithSession(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sessionKey{}, sid)
}

// SessionID returns the session id stored by WithSession, or "".
func SessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sessionKey{}).(string)
	return sid
}

// GetHeader looks up a request header case-insensitively.
func GetHeader(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	for k, vs := range req.MultiValueHeaders {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

// JSONResponse marshals v with the given status.
func JSONResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		return ErrorResponse(http.StatusInternalServerError, "Failed to encode response")
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// ErrorResponse returns {"error": msg} with the given status.
func ErrorResponse(status int, msg string) events.APIGatewayProxyResponse {
	return JSONResponse(status, map[string]string{"error": msg})
}

// StatusFor maps a domain error to an HTTP status and a user-facing message.
func StatusFor(err error) (int, string) {
	var upErr *fitbit.UpstreamError
	var retrieveErr *oauth2.RetrieveError

	switch {
	case errors.Is(err, auth.ErrAuthStateMismatch):
		return http.StatusForbidden, "State mismatch"
	case errors.Is(err, auth.ErrMissingVerifier):
		return http.StatusBadRequest, "Missing code verifier"
	case errors.Is(err, auth.ErrMissingFields):
		return http.StatusBadRequest, "Missing fields"
	case errors.Is(err, auth.ErrNotAuthorized):
		return http.StatusUnauthorized, "Not authorized"
	case errors.Is(err, auth.ErrNoRefreshToken):
		return http.StatusUnauthorized, "No refresh token"
	case errors.Is(err, auth.ErrRefreshInProgress):
		return http.StatusConflict, "Refresh already in progress"
	case errors.Is(err, fitbit.ErrMissingPath):
		return http.StatusBadRequest, "Missing path"
	case errors.As(err, &upErr):
		return upErr.StatusCode, "Fitbit request failed"
	case errors.As(err, &retrieveErr):
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 400 {
			return retrieveErr.Response.StatusCode, "Token request failed"
		}
		return http.StatusBadGateway, "Token request failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Upstream timeout"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}
