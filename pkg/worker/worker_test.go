package worker_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globe-b2b/sf-jsm-sync/pkg/worker"
)

func TestProcessAll_PreservesInputOrder(t *testing.T) {
	t.Parallel()

	items := []string{"alpha", "bravo", "charlie", "delta"}
	out := worker.ProcessAll(context.Background(), items, func(_ context.Context, s string) string {
		return strings.ToUpper(s)
	}, worker.Options{Workers: 3})

	require.Len(t, out, len(items))
	for i, res := range out {
		assert.Equal(t, items[i], res.Input)
		assert.Equal(t, strings.ToUpper(items[i]), res.Output)
	}
}

func TestProcessAll_SingleWorkerIsSequential(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var seen []int
	items := []int{1, 2, 3, 4, 5}

	worker.ProcessAll(context.Background(), items, func(_ context.Context, n int) int {
		mu.Lock()
		seen = append(seen, n)
		mu.Unlock()
		return n
	}, worker.Options{Workers: 1})

	assert.Equal(t, items, seen)
}

func TestProcessAll_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	const workers = 2
	var inFlight, peak atomic.Int32

	items := make([]int, 20)
	worker.ProcessAll(context.Background(), items, func(_ context.Context, n int) int {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		inFlight.Add(-1)
		return n
	}, worker.Options{Workers: workers})

	assert.LessOrEqual(t, peak.Load(), int32(workers))
}

func TestProcessAll_CancelledContextStopsFeeding(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	out := worker.ProcessAll(ctx, []int{1, 2, 3}, func(_ context.Context, n int) int {
		calls.Add(1)
		return n
	}, worker.Options{Workers: 1})

	// Results are still sized to the input; unstarted items keep zero outputs.
	require.Len(t, out, 3)
	assert.Zero(t, calls.Load())
}
