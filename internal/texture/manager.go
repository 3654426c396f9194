package texture

import (
	"sync"

	"github.com/charmbracelet/log"
)

// Requestor is anything waiting for the next image, usually a display frame.
// OnResourceReady takes ownership of res.
type Requestor interface {
	OnResourceReady(res *Resource)
}

// Manager owns the handoff queue, the list of waiting requestors and the
// resource pool. One mutex guards the queue and the waiting list together so
// a new texture is either handed to a waiter or queued, never both.
//
// Pending requestors are held only until served or cancelled; the manager
// never owns them.
type Manager struct {
	mu      sync.Mutex
	wake    *sync.Cond // loader waits here for queue room or config changes
	queue   *Queue
	pending []Requestor
	pool    *Pool

	delivered uint64 // handed straight to a waiter
	queued    uint64 // inserted into the queue
	dropped   uint64 // invalid or surplus resources
}

// Stats is a snapshot of the manager.
type Stats struct {
	Queued    int       `json:"queued"`
	Capacity  int       `json:"capacity"`
	Pending   int       `json:"pending"`
	Delivered uint64    `json:"delivered"`
	Inserted  uint64    `json:"inserted"`
	Dropped   uint64    `json:"dropped"`
	Pool      PoolStats `json:"pool"`
}

func NewManager(capacity int, pool *Pool) *Manager {
	if pool == nil {
		pool = NewPool(0, 0)
	}
	m := &Manager{
		queue: NewQueue(capacity),
		pool:  pool,
	}
	m.wake = sync.NewCond(&m.mu)
	return m
}

func (m *Manager) Pool() *Pool {
	return m.pool
}

// Request serves r from the queue, or remembers it until the next texture
// arrives. Requesting again while already waiting keeps the original place.
func (m *Manager) Request(r Requestor) {
	if r == nil {
		return
	}

	m.mu.Lock()
	res, err := m.queue.Remove()
	if err != nil {
		if !m.isPending(r) {
			m.pending = append(m.pending, r)
		}
		m.mu.Unlock()
		return
	}
	m.wake.Broadcast()
	m.mu.Unlock()

	log.Debug("served from queue", "resource", res)
	r.OnResourceReady(res)
}

// Cancel forgets r if it is still waiting and reports whether it was.
func (m *Manager) Cancel(r Requestor) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.pending {
		if p == r {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Offer hands a freshly bound texture to the oldest waiter, or queues it when
// nobody waits. Invalid resources are never handed out; their buffers return
// to the pool. Offer reports whether res found an owner.
func (m *Manager) Offer(res *Resource) bool {
	if !res.Valid() {
		log.Warn("dropping invalid image", "resource", res)
		m.mu.Lock()
		m.dropped++
		m.mu.Unlock()
		m.pool.Put(res)
		return false
	}

	m.mu.Lock()
	if len(m.pending) > 0 {
		r := m.pending[0]
		m.pending[0] = nil
		m.pending = m.pending[1:]
		m.delivered++
		m.mu.Unlock()

		log.Debug("delivered to waiting frame", "resource", res)
		r.OnResourceReady(res)
		return true
	}

	if err := m.queue.Insert(res); err != nil {
		m.dropped++
		m.mu.Unlock()
		log.Warn("queue refused image", "resource", res, "err", err)
		m.pool.Put(res)
		return false
	}
	m.queued++
	m.mu.Unlock()
	return true
}

// Release gives res back to the pool.
func (m *Manager) Release(res *Resource) {
	m.pool.Put(res)
}

// Drain empties the queue into the pool and returns how many resources it
// held. Waiting requestors stay registered.
func (m *Manager) Drain() int {
	m.mu.Lock()
	items := m.queue.RemoveAll()
	m.wake.Broadcast()
	m.mu.Unlock()

	for _, res := range items {
		m.pool.Put(res)
	}
	return len(items)
}

// Wake rouses the loader so it re-checks its wait conditions.
func (m *Manager) Wake() {
	m.mu.Lock()
	m.wake.Broadcast()
	m.mu.Unlock()
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Queued:    m.queue.Items(),
		Capacity:  m.queue.Capacity(),
		Pending:   len(m.pending),
		Delivered: m.delivered,
		Inserted:  m.queued,
		Dropped:   m.dropped,
		Pool:      m.pool.Stats(),
	}
}

// hasRoom reports whether another texture fits in the queue. m.mu held.
func (m *Manager) hasRoom() bool {
	return m.queue.Items() < m.queue.Capacity()
}

func (m *Manager) isPending(r Requestor) bool {
	for _, p := range m.pending {
		if p == r {
			return true
		}
	}
	return false
}
