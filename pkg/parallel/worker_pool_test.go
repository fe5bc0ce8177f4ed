package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-fabric/pkg/logging"
)

func TestWorkerPool_Sizing(t *testing.T) {
	for _, tt := range []struct {
		in, want int
	}{{-5, 1}, {0, 1}, {1, 1}, {16, 16}} {
		pool, err := NewWorkerPool(tt.in, logging.NopLogger{})
		require.NoError(t, err)
		assert.Equal(t, tt.want, pool.Workers())
		pool.Close()
	}

	_, err := NewWorkerPool(MaxWorkers+1, logging.NopLogger{})
	assert.ErrorIs(t, err, ErrTooManyWorkers)
}

func TestWorkerPool_RunsEveryTask(t *testing.T) {
	pool, err := NewWorkerPool(8, logging.NopLogger{})
	require.NoError(t, err)

	var counter atomic.Int64
	for i := 0; i < 500; i++ {
		require.True(t, pool.Submit(func() { counter.Add(1) }))
	}
	pool.Close()
	assert.Equal(t, int64(500), counter.Load())
}

func TestWorkerPool_SubmitAfterClose(t *testing.T) {
	pool, err := NewWorkerPool(2, logging.NopLogger{})
	require.NoError(t, err)
	pool.Close()
	pool.Close()

	assert.False(t, pool.Submit(func() {}))
}

func TestWorkerPool_PanicDoesNotKillWorker(t *testing.T) {
	pool, err := NewWorkerPool(1, logging.NopLogger{})
	require.NoError(t, err)

	var ran atomic.Bool
	pool.Submit(func() { panic("boom") })
	pool.Submit(func() { ran.Store(true) })
	pool.Close()

	assert.True(t, ran.Load())
}

func TestMap_PreservesOrder(t *testing.T) {
	items := make([]int, 200)
	for i := range items {
		items[i] = i
	}
	square := func(n int) int { return n * n }

	for _, workers := range []int{0, 1, 4, 64} {
		out := Map(items, workers, logging.NopLogger{}, square)
		require.Len(t, out, len(items))
		for i, v := range out {
			if v != i*i {
				t.Fatalf("workers=%d: out[%d] = %d, want %d", workers, i, v, i*i)
			}
		}
	}

	assert.Empty(t, Map(nil, 4, logging.NopLogger{}, square))
}

func TestMap_Panic(t *testing.T) {
	out := Map([]int{1, 2, 3}, 3, logging.NopLogger{}, func(n int) int {
		if n == 2 {
			panic("bad item")
		}
		return n
	})
	assert.Equal(t, []int{1, 0, 3}, out)
}

func BenchmarkMap(b *testing.B) {
	items := make([]int, 1024)
	for i := 0; i < b.N; i++ {
		Map(items, 8, logging.NopLogger{}, func(n int) int { return n + 1 })
	}
}
