package schedule

import (
	"container/heap"
	"context"
	"fmt"
	"sync"

	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

// ReadyQueue is a thread-safe priority queue over ready crawl items.
// Items order by (priority rank, enqueue sequence), so within a priority tier
// dequeue order is FIFO. Dequeue blocks until an item arrives or the context
// finishes.
type ReadyQueue struct {
	mu     sync.Mutex
	items  itemHeap
	seq    uint64
	notify chan struct{}
}

// NewReadyQueue constructs an empty ReadyQueue.
func NewReadyQueue() *ReadyQueue {
	return &ReadyQueue{
		notify: make(chan struct{}, 1),
	}
}

// Enqueue pushes an item, stamping it with the next sequence number.
func (q *ReadyQueue) Enqueue(item seo.QueueItem) {
	q.mu.Lock()
	q.seq++
	item.Seq = q.seq
	heap.Push(&q.items, item)
	q.mu.Unlock()
	q.signal()
}

// Dequeue pops the highest-priority item, waiting if the queue is empty.
func (q *ReadyQueue) Dequeue(ctx context.Context) (seo.QueueItem, error) {
	for {
		q.mu.Lock()
		if q.items.Len() > 0 {
			item := heap.Pop(&q.items).(seo.QueueItem)
			remaining := q.items.Len()
			q.mu.Unlock()
			if remaining > 0 {
				// Wake any other waiter; the signal channel holds one token.
				q.signal()
			}
			return item, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return seo.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
		case <-q.notify:
		}
	}
}

// Len reports the number of waiting items.
func (q *ReadyQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

func (q *ReadyQueue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

type itemHeap []seo.QueueItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	ri, rj := h[i].Priority.Rank(), h[j].Priority.Rank()
	if ri != rj {
		return ri < rj
	}
	return h[i].Seq < h[j].Seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x any) {
	*h = append(*h, x.(seo.QueueItem))
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
