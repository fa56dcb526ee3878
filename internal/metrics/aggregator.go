package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/Gardusio/coach-client/internal/auth"
	"github.com/Gardusio/coach-client/internal/config"
	"github.com/Gardusio/coach-client/internal/logging"
	"github.com/Gardusio/coach-client/internal/model"
)

// Fetcher performs an authenticated GET of a Fitbit API path.
type Fetcher interface {
	Get(ctx context.Context, sid, path string) ([]byte, error)
}

// Aggregator builds DailyMetrics for a session from the Fitbit API.
type Aggregator struct {
	fetcher      Fetcher
	batchDays    int
	windowMonths int
	concurrency  int
	logger       logging.Logger
	now          func() time.Time
}

// NewAggregator creates an Aggregator. Non-positive settings fall back to
// 30-day batches and a one month window.
func NewAggregator(fetcher Fetcher, cfg config.MetricsConfig, logger logging.Logger) *Aggregator {
	a := &Aggregator{
		fetcher:      fetcher,
		batchDays:    cfg.BatchDays,
		windowMonths: cfg.WindowMonths,
		concurrency:  cfg.MaxConcurrency,
		logger:       logger,
		now:          time.Now,
	}
	if a.batchDays <= 0 {
		a.batchDays = DefaultBatchDays
	}
	if a.windowMonths <= 0 {
		a.windowMonths = 1
	}
	return a
}

// FetchLastMonth aggregates the configured window ending today (UTC). The
// window is one month unless configured otherwise.
func (a *Aggregator) FetchLastMonth(ctx context.Context, sid string) ([]model.DailyMetrics, error) {
	end := a.now().UTC()
	start := end.AddDate(0, -a.windowMonths, 0)
	return a.Fetch(ctx, sid, start, end)
}

// Fetch aggregates [start, end]. Batches run one after another; inside a
// batch every family is requested concurrently and merged once all have
// settled. A family that fails is logged and left absent. If every family of
// the first batch fails with auth.ErrNotAuthorized, that error is returned.
func (a *Aggregator) Fetch(ctx context.Context, sid string, start, end time.Time) ([]model.DailyMetrics, error) {
	batches := SplitIntoBatches(start, end, a.batchDays)
	merger := NewMerger()

	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tasks := make([]Task[[]byte], len(Families))
		for j, f := range Families {
			path := f.Path(b)
			tasks[j] = func(ctx context.Context) ([]byte, error) {
				return a.fetcher.Get(ctx, sid, path)
			}
		}
		results := Settle(ctx, a.concurrency, tasks...)

		unauthorized := 0
		for j, r := range results {
			f := Families[j]
			if r.Err != nil {
				if errors.Is(r.Err, auth.ErrNotAuthorized) {
					unauthorized++
				}
				a.logger.Warn(ctx, "metric family unavailable",
					"family", f.String(), "start", b.StartYMD(), "end", b.EndYMD(), "error", r.Err)
				continue
			}
			if err := merger.Merge(f, r.Value); err != nil {
				a.logger.Warn(ctx, "metric family unreadable",
					"family", f.String(), "start", b.StartYMD(), "end", b.EndYMD(), "error", err)
			}
		}

		if i == 0 && unauthorized == len(Families) {
			return nil, auth.ErrNotAuthorized
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	days := merger.Finalize()
	a.logger.Debug(ctx, "metrics aggregated", "batches", len(batches), "days", len(days))
	return days, nil
}
