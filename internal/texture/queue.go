package texture

import (
	"errors"
	"sync"
)

var (
	ErrQueueEmpty = errors.New("handoff queue is empty")
	ErrQueueFull  = errors.New("handoff queue is full")
)

// Queue is a fixed capacity FIFO of ready textures. It never blocks: Remove
// on an empty queue returns ErrQueueEmpty and Insert on a full one returns
// ErrQueueFull, leaving the item with the caller.
type Queue struct {
	mu       sync.Mutex
	items    []*Resource
	capacity int
}

// NewQueue returns an empty queue. Capacities below one are raised to one.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		items:    make([]*Resource, 0, capacity),
		capacity: capacity,
	}
}

// Insert appends res. Callers check Items() < Capacity() first.
func (q *Queue) Insert(res *Resource) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.capacity {
		return ErrQueueFull
	}
	q.items = append(q.items, res)
	return nil
}

// Remove takes the oldest item.
func (q *Queue) Remove() (*Resource, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, ErrQueueEmpty
	}
	res := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = make([]*Resource, 0, q.capacity)
	}
	return res, nil
}

// RemoveAll drains the queue, oldest first.
func (q *Queue) RemoveAll() []*Resource {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = make([]*Resource, 0, q.capacity)
	return out
}

func (q *Queue) Items() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) Capacity() int {
	return q.capacity
}
