package mirror

import "sync"

// Queue is the set of relative file paths waiting to be copied. It is
// filled once and then drained concurrently; Pop never blocks.
type Queue struct {
	mu    sync.Mutex
	items []string
	total int
}

// NewQueue returns a queue holding items.
func NewQueue(items []string) *Queue {
	return &Queue{
		items: append([]string(nil), items...),
		total: len(items),
	}
}

// Pop removes and returns one path. ok is false when the queue is empty.
func (q *Queue) Pop() (path string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return "", false
	}

	path = q.items[0]
	q.items = q.items[1:]

	return path, true
}

// Len returns the number of paths not yet popped.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Total returns the number of paths the queue was created with.
func (q *Queue) Total() int {
	return q.total
}
