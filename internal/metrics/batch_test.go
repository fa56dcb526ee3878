package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSplitIntoBatches(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		maxDays int
		want    [][2]string
	}{
		{"single day", "2025-05-01", "2025-05-01", 30, [][2]string{{"2025-05-01", "2025-05-01"}}},
		{"exactly one batch", "2025-05-01", "2025-05-30", 30, [][2]string{{"2025-05-01", "2025-05-30"}}},
		{"clipped tail", "2025-05-01", "2025-05-31", 30, [][2]string{
			{"2025-05-01", "2025-05-30"},
			{"2025-05-31", "2025-05-31"},
		}},
		{"weekly", "2025-02-25", "2025-03-10", 7, [][2]string{
			{"2025-02-25", "2025-03-03"},
			{"2025-03-04", "2025-03-10"},
		}},
		{"default size", "2025-01-01", "2025-02-15", 0, [][2]string{
			{"2025-01-01", "2025-01-30"},
			{"2025-01-31", "2025-02-15"},
		}},
		{"start after end", "2025-05-02", "2025-05-01", 30, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got [][2]string
			for _, b := range SplitIntoBatches(date(tc.start), date(tc.end), tc.maxDays) {
				got = append(got, [2]string{b.StartYMD(), b.EndYMD()})
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSplitIntoBatches_TruncatesToUTCDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	start := time.Date(2025, 5, 2, 3, 0, 0, 0, loc) // 2025-05-01 18:00 UTC
	end := time.Date(2025, 5, 3, 23, 59, 0, 0, time.UTC)

	batches := SplitIntoBatches(start, end, 30)
	require.Len(t, batches, 1)
	assert.Equal(t, "2025-05-01", batches[0].StartYMD())
	assert.Equal(t, "2025-05-03", batches[0].EndYMD())
	assert.Equal(t, 3, batches[0].Days())
}

func TestSplitIntoBatches_CoverageProperty(t *testing.T) {
	base := date("2024-12-15")
	for span := 0; span < 120; span += 7 {
		for _, maxDays := range []int{1, 2, 7, 30, 31, 90} {
			start := base
			end := base.AddDate(0, 0, span)
			batches := SplitIntoBatches(start, end, maxDays)

			require.NotEmpty(t, batches)
			assert.True(t, batches[0].Start.Equal(start), "first batch starts at start")
			assert.True(t, batches[len(batches)-1].End.Equal(end), "last batch ends at end")

			covered := 0
			for i, b := range batches {
				assert.False(t, b.End.Before(b.Start))
				assert.LessOrEqual(t, b.Days(), maxDays)
				if i > 0 {
					assert.True(t, b.Start.Equal(batches[i-1].End.AddDate(0, 0, 1)),
						"batches must be contiguous (span %d, max %d)", span, maxDays)
				}
				covered += b.Days()
			}
			assert.Equal(t, span+1, covered)
		}
	}
}
