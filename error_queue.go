package subflow

import "sync"

// asyncError is an error waiting for the error handler.
type asyncError struct {
	sub *Subscription
	err error
}

// errorQueue feeds the error handler goroutine. Senders never block: when the
// queue is full or closed the error is discarded.
type errorQueue struct {
	ch     chan asyncError
	mu     sync.Mutex
	closed bool
}

func newErrorQueue(size int) *errorQueue {
	return &errorQueue{ch: make(chan asyncError, size)}
}

// trySend queues e without blocking and reports whether it was queued.
func (q *errorQueue) trySend(e asyncError) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}

	select {
	case q.ch <- e:
		return true
	default:
		return false
	}
}

// close stops accepting errors; queued ones are still delivered.
func (q *errorQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
