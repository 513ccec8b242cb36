package fanout

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGatherDeliversInTaskOrder(t *testing.T) {
	delays := []time.Duration{60 * time.Millisecond, 30 * time.Millisecond, 0}
	var tasks []Task[int]
	for i, d := range delays {
		tasks = append(tasks, func(ctx context.Context) int {
			time.Sleep(d)
			return i * 10
		})
	}

	var seen []int
	results := Gather(context.Background(), 3, tasks, func(index int, result int) {
		seen = append(seen, index)
		assert.Equal(t, index*10, result)
	})
	assert.Equal(t, []int{0, 10, 20}, results)
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestGatherRespectsWorkerLimit(t *testing.T) {
	var running, peak int32
	var tasks []Task[bool]
	for i := 0; i < 8; i++ {
		tasks = append(tasks, func(ctx context.Context) bool {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return true
		})
	}
	results := Gather(context.Background(), 3, tasks, nil)
	assert.Len(t, results, 8)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestGatherPassesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := Gather(ctx, 2, []Task[error]{
		func(ctx context.Context) error { return ctx.Err() },
		func(ctx context.Context) error { return ctx.Err() },
	}, nil)
	assert.Equal(t, []error{context.Canceled, context.Canceled}, results)
}

func TestGatherNoTasks(t *testing.T) {
	assert.Empty(t, Gather[string](context.Background(), 3, nil, nil))
}
