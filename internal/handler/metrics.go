package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/Gardusio/coach-client/internal/logging"
	"github.com/Gardusio/coach-client/internal/metrics"
)

// maxMetricsRange bounds an explicit start/end request.
const maxMetricsRange = 366 * 24 * time.Hour

// MetricsHandler serves aggregated daily metrics.
type MetricsHandler struct {
	aggregator *metrics.Aggregator
	logger     logging.Logger
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(a *metrics.Aggregator, logger logging.Logger) *MetricsHandler {
	return &MetricsHandler{aggregator: a, logger: logger}
}

// GetMetrics returns DailyMetrics for ?start=YYYY-MM-DD&end=YYYY-MM-DD, or
// for the configured window ending today when both are omitted.
func (h *MetricsHandler) GetMetrics(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	startParam := req.QueryStringParameters["start"]
	endParam := req.QueryStringParameters["end"]
	sid := SessionID(ctx)

	if startParam == "" && endParam == "" {
		result, err := h.aggregator.FetchLastMonth(ctx, sid)
		if err != nil {
			return h.fail(ctx, err), nil
		}
		return JSONResponse(http.StatusOK, result), nil
	}

	if startParam == "" || endParam == "" {
		return ErrorResponse(http.StatusBadRequest, "Both start and end are required"), nil
	}
	start, err := time.Parse(time.DateOnly, startParam)
	if err != nil {
		return ErrorResponse(http.StatusBadRequest, "Invalid start date"), nil
	}
	end, err := time.Parse(time.DateOnly, endParam)
	if err != nil {
		return ErrorResponse(http.StatusBadRequest, "Invalid end date"), nil
	}
	if end.Before(start) {
		return ErrorResponse(http.StatusBadRequest, "end must not be before start"), nil
	}
	if end.Sub(start) > maxMetricsRange {
		return ErrorResponse(http.StatusBadRequest, "Range too large"), nil
	}

	result, err := h.aggregator.Fetch(ctx, sid, start, end)
	if err != nil {
		return h.fail(ctx, err), nil
	}
	return JSONResponse(http.StatusOK, result), nil
}

func (h *MetricsHandler) fail(ctx context.Context, err error) events.APIGatewayProxyResponse {
	status, msg := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(ctx, "metrics aggregation failed", "session", SessionID(ctx), "error", err)
	}
	return ErrorResponse(status, msg)
}
