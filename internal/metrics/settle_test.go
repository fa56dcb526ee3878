package metrics

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettle_AllSettled(t *testing.T) {
	boom := errors.New("boom")

	results := Settle(context.Background(), 0,
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context) (int, error) { return 0, boom },
		func(context.Context) (int, error) { panic("bad task") },
		func(context.Context) (int, error) {
			time.Sleep(10 * time.Millisecond)
			return 4, nil
		},
	)

	require.Len(t, results, 4)
	assert.Equal(t, 1, results[0].Value)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.ErrorContains(t, results[2].Err, "panicked")
	assert.Equal(t, 4, results[3].Value, "a failing sibling does not cancel slower tasks")
}

func TestSettle_RunsConcurrently(t *testing.T) {
	var inFlight, peak atomic.Int32
	task := func(context.Context) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	}

	tasks := make([]Task[struct{}], 6)
	for i := range tasks {
		tasks[i] = task
	}

	Settle(context.Background(), 2, tasks...)
	assert.LessOrEqual(t, peak.Load(), int32(2))

	peak.Store(0)
	Settle(context.Background(), 0, tasks...)
	assert.Greater(t, peak.Load(), int32(1))
}

func TestSettle_Empty(t *testing.T) {
	assert.Empty(t, Settle[int](context.Background(), 0))
}
