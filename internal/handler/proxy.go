package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"

	"github.com/aws/aws-lambda-go/events"

	"github.com/Gardusio/coach-client/internal/fitbit"
	"github.com/Gardusio/coach-client/internal/logging"
)

// ProxyHandler forwards requests to the Fitbit Web API.
type ProxyHandler struct {
	client *fitbit.Client
	logger logging.Logger
}

// NewProxyHandler creates a new ProxyHandler.
func NewProxyHandler(client *fitbit.Client, logger logging.Logger) *ProxyHandler {
	return &ProxyHandler{client: client, logger: logger}
}

// Proxy forwards method, query and body to PathParameters["path"]. Upstream
// failures are returned with Fitbit's own status and body.
func (h *ProxyHandler) Proxy(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body := []byte(req.Body)
	if req.IsBase64Encoded && req.Body != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return ErrorResponse(http.StatusBadRequest, "Invalid request body"), nil
		}
		body = decoded
	}

	resp, err := h.client.Do(ctx, SessionID(ctx), fitbit.Request{
		Method:      req.HTTPMethod,
		Path:        req.PathParameters["path"],
		Query:       queryValues(req),
		Body:        body,
		ContentType: GetHeader(req, "Content-Type"),
	})
	if err != nil {
		var upErr *fitbit.UpstreamError
		if errors.As(err, &upErr) {
			h.logger.Warn(ctx, "fitbit request failed", "path", req.PathParameters["path"], "status", upErr.StatusCode)
			return events.APIGatewayProxyResponse{
				StatusCode: upErr.StatusCode,
				Body:       string(upErr.Body),
				Headers: map[string]string{
					"Content-Type": "application/json",
				},
			}, nil
		}
		status, msg := StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error(ctx, "proxy failed", "path", req.PathParameters["path"], "error", err)
		}
		return ErrorResponse(status, msg), nil
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Body:       string(resp.Body),
		Headers: map[string]string{
			"Content-Type": contentType,
		},
	}, nil
}

func queryValues(req events.APIGatewayProxyRequest) url.Values {
	q := url.Values{}
	if len(req.MultiValueQueryStringParameters) > 0 {
		for k, vs := range req.MultiValueQueryStringParameters {
			q[k] = append([]string(nil), vs...)
		}
		return q
	}
	for k, v := range req.QueryStringParameters {
		q.Set(k, v)
	}
	return q
}
