// Package metrics fetches the Fitbit metric families for a date range and
// merges them into one record per day.
package metrics

import "time"

// DefaultBatchDays is the widest range the Fitbit time-series endpoints accept
// in one request for every family used here.
const DefaultBatchDays = 30

// Batch is an inclusive range of UTC calendar days.
type Batch struct {
	Start time.Time
	End   time.Time
}

// StartYMD returns the first day as YYYY-MM-DD.
func (b Batch) StartYMD() string { return b.Start.Format(time.DateOnly) }

// EndYMD returns the last day as YYYY-MM-DD.
func (b Batch) EndYMD() string { return b.End.Format(time.DateOnly) }

// Days returns the number of days in the batch.
func (b Batch) Days() int {
	return int(b.End.Sub(b.Start).Hours()/24) + 1
}

// SplitIntoBatches covers [start, end] with contiguous, ascending batches of
// at most maxDays days each. Both bounds are truncated to their UTC day and
// the last batch is clipped to end. A non-positive maxDays selects
// DefaultBatchDays; start after end yields no batches.
func SplitIntoBatches(start, end time.Time, maxDays int) []Batch {
	if maxDays <= 0 {
		maxDays = DefaultBatchDays
	}
	start, end = utcDay(start), utcDay(end)

	var batches []Batch
	for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, 0, maxDays) {
		batchEnd := cursor.AddDate(0, 0, maxDays-1)
		if batchEnd.After(end) {
			batchEnd = end
		}
		batches = append(batches, Batch{Start: cursor, End: batchEnd})
	}
	return batches
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
