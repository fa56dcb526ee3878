package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/Gardusio/coach-client/internal/auth"
	"github.com/Gardusio/coach-client/internal/logging"
)

// AuthHandler handles the Fitbit authorization and token endpoints.
type AuthHandler struct {
	authService *auth.Service
	frontendURL string
	logger      logging.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(s *auth.Service, frontendURL string, logger logging.Logger) *AuthHandler {
	return &AuthHandler{authService: s, frontendURL: frontendURL, logger: logger}
}

func (h *AuthHandler) fail(ctx context.Context, op string, err error) events.APIGatewayProxyResponse {
	status, msg := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(ctx, op+" failed", "session", SessionID(ctx), "error", err)
	} else {
		h.logger.Warn(ctx, op+" rejected", "session", SessionID(ctx), "status", status, "error", err)
	}
	return ErrorResponse(status, msg)
}

// Login starts the PKCE flow and redirects to Fitbit.
func (h *AuthHandler) Login(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	url, err := h.authService.BeginAuth(ctx, SessionID(ctx), req.QueryStringParameters["scope"])
	if err != nil {
		return h.fail(ctx, "begin auth", err), nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": url,
		},
	}, nil
}

// Callback handles the redirect back from Fitbit.
func (h *AuthHandler) Callback(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	q := req.QueryStringParameters

	// the user denied access on the consent screen
	if q["error"] != "" {
		h.logger.Info(ctx, "fitbit authorization denied", "session", SessionID(ctx), "reason", q["error"])
		return h.redirect("denied"), nil
	}

	res, err := h.authService.HandleCallback(ctx, SessionID(ctx), q["code"], q["state"])
	if err != nil {
		return h.fail(ctx, "callback", err), nil
	}
	if res == nil {
		return h.redirect("cancelled"), nil
	}
	return h.redirect("connected"), nil
}

func (h *AuthHandler) redirect(outcome string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": h.frontendURL + "/?fitbit=" + outcome,
		},
	}
}

// Exchange trades a code obtained by the frontend for tokens.
func (h *AuthHandler) Exchange(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body struct {
		Code         string `json:"code"`
		CodeVerifier string `json:"codeVerifier"`
		RedirectURI  string `json:"redirectUri"`
	}
	if req.Body != "" {
		if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
			return ErrorResponse(http.StatusBadRequest, "Invalid request body"), nil
		}
	}

	res, err := h.authService.ExchangeCode(ctx, SessionID(ctx), body.Code, body.CodeVerifier, body.RedirectURI)
	if err != nil {
		return h.fail(ctx, "exchange", err), nil
	}
	return JSONResponse(http.StatusOK, res), nil
}

// Refresh rotates the session's tokens.
func (h *AuthHandler) Refresh(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	res, err := h.authService.Refresh(ctx, SessionID(ctx))
	if err != nil {
		return h.fail(ctx, "refresh", err), nil
	}
	return JSONResponse(http.StatusOK, res), nil
}

// Revoke disconnects Fitbit from the session.
func (h *AuthHandler) Revoke(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if err := h.authService.Revoke(ctx, SessionID(ctx)); err != nil {
		return h.fail(ctx, "revoke", err), nil
	}
	return JSONResponse(http.StatusOK, map[string]bool{"ok": true}), nil
}

// Session reports the session's connection status.
func (h *AuthHandler) Session(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	info, err := h.authService.Session(ctx, SessionID(ctx))
	if err != nil {
		return h.fail(ctx, "session", err), nil
	}
	return JSONResponse(http.StatusOK, info), nil
}
