package action

import "sync"

// queue is a thread-safe FIFO of pending actions.
//
// It is unbounded so that producers never block on a slow Run loop. The
// signal channel lets the loop wait with a context.
type queue struct {
	mu      sync.Mutex
	actions []Action
	closed  bool
	signal  chan struct{} // buffered, size 1
}

func newQueue() *queue {
	return &queue{
		actions: make([]Action, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// enqueue appends a. Returns false once the queue is closed.
func (q *queue) enqueue(a Action) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.actions = append(q.actions, a)

	// A full buffer already means "something is available".
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// tryDequeue pops the front action without blocking.
func (q *queue) tryDequeue() (Action, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.actions) == 0 {
		return Action{}, false
	}
	a := q.actions[0]

	// Clear the slot so the payload can be collected.
	q.actions[0] = Action{}
	if len(q.actions) == 1 {
		q.actions = q.actions[:0]
	} else {
		q.actions = q.actions[1:]
	}
	return a, true
}

// wait signals that actions may be available. It is closed by close.
func (q *queue) wait() <-chan struct{} {
	return q.signal
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
