package replicate

import "sync"

// queue is an unbounded FIFO of control messages. Pushing never blocks, so
// the inbound loop keeps draining the peer even when nobody reads our
// outbound stream.
type queue struct {
	mu     sync.Mutex
	items  []*message
	notify chan struct{}
}

func newQueue() *queue {
	return &queue{notify: make(chan struct{}, 1)}
}

func (q *queue) push(m *message) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// drain removes and returns everything queued.
func (q *queue) drain() []*message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}
