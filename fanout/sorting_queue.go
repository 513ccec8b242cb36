package fanout

import (
	"sort"
	"sync"
)

// SortingQueue receives items tagged with a counter, possibly out of order, and delivers them
// on C in counter order starting at 1. Items that arrive early are held until the gap is filled.
type SortingQueue[T any] struct {
	C           chan T
	lastCounter int
	deferred    []deferredItem[T]
	lock        sync.Mutex
	closeOnce   sync.Once
}

type deferredItem[T any] struct {
	counter int
	item    T
}

// NewSortingQueue creates a queue. channelSize should be at least the number of items that
// can be pending at once, or Accept will block until the reader catches up.
func NewSortingQueue[T any](channelSize int) *SortingQueue[T] {
	return &SortingQueue[T]{C: make(chan T, channelSize)}
}

func (q *SortingQueue[T]) Accept(counter int, item T) {
	q.lock.Lock()
	defer q.lock.Unlock()
	if counter > q.lastCounter+1 {
		q.deferred = append(q.deferred, deferredItem[T]{counter: counter, item: item})
		sort.Slice(q.deferred, func(i, j int) bool { return q.deferred[i].counter < q.deferred[j].counter })
		return
	}
	q.lastCounter = counter
	q.C <- item
	for len(q.deferred) > 0 {
		next := q.deferred[0]
		if next.counter != q.lastCounter+1 {
			break
		}
		q.deferred = q.deferred[1:]
		q.lastCounter++
		q.C <- next.item
	}
}

// Deferred returns the items that are waiting for an earlier counter.
func (q *SortingQueue[T]) Deferred() []T {
	q.lock.Lock()
	ret := make([]T, 0, len(q.deferred))
	for _, d := range q.deferred {
		ret = append(ret, d.item)
	}
	q.lock.Unlock()
	return ret
}

func (q *SortingQueue[T]) Close() {
	q.closeOnce.Do(func() {
		close(q.C)
	})
}
