package pending

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Pop, TryPop and Push once the buffer is closed.
var ErrClosed = errors.New("pending buffer closed")

// AdmitFunc decides whether an item of the given size may join a buffer that
// currently holds msgs items totalling bytes.
type AdmitFunc func(msgs, bytes, size int) bool

// Stats is a consistent snapshot of a Buffer.
type Stats struct {
	Msgs      int
	Bytes     int
	MaxMsgs   int
	MaxBytes  int
	Delivered int64
	Dropped   int

	// Closed is set once Close ran; occupancy is zero from then on.
	Closed bool
}

// Buffer is an unbounded FIFO guarded by an admission function.
//
// Waiters are woken by a one-slot signal channel on push and by a close
// channel on Close. The zero value is not usable; create buffers with New.
type Buffer[T any] struct {
	sizeOf func(T) int

	mu        sync.Mutex
	items     []T
	head      int
	bytes     int
	maxMsgs   int
	maxBytes  int
	delivered int64
	dropped   int
	closed    bool
	empty     chan struct{} // closed when the buffer next becomes empty

	signal chan struct{}
	done   chan struct{}
}

// New creates a buffer that measures items with sizeOf.
func New[T any](sizeOf func(T) int) *Buffer[T] {
	return &Buffer[T]{
		sizeOf: sizeOf,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Push offers item to the buffer.
//
// admit is evaluated under the buffer lock against the current occupancy. When
// it rejects the item the dropped counter is incremented and Push returns
// false. A nil admit accepts everything.
//
// Returns:
//   - bool: true if the item was queued
//   - error: ErrClosed if the buffer is closed (the item is neither queued nor dropped)
func (b *Buffer[T]) Push(item T, admit AdmitFunc) (bool, error) {
	size := b.sizeOf(item)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false, ErrClosed
	}

	n := len(b.items) - b.head
	if admit != nil && !admit(n, b.bytes, size) {
		b.dropped++
		b.mu.Unlock()

		return false, nil
	}

	b.items = append(b.items, item)
	b.bytes += size
	n++
	if n > b.maxMsgs {
		b.maxMsgs = n
	}
	if b.bytes > b.maxBytes {
		b.maxBytes = b.bytes
	}
	b.mu.Unlock()

	b.notify()

	return true, nil
}

// Pop removes and returns the oldest item, blocking until one is available.
//
// The delivered counter is incremented atomically with the removal.
//
// Returns:
//   - T: the oldest buffered item
//   - error: ErrClosed once the buffer is closed, or ctx.Err() when ctx ends first
func (b *Buffer[T]) Pop(ctx context.Context) (T, error) {
	for {
		item, ok, err := b.TryPop()
		if err != nil || ok {
			return item, err
		}

		select {
		case <-b.signal:
		case <-b.done:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryPop removes and returns the oldest item without blocking.
//
// Returns:
//   - T: the oldest buffered item, zero value if none
//   - bool: true if an item was returned
//   - error: ErrClosed once the buffer is closed
func (b *Buffer[T]) TryPop() (T, bool, error) {
	var zero T

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return zero, false, ErrClosed
	}
	if b.head == len(b.items) {
		b.mu.Unlock()
		return zero, false, nil
	}

	item := b.items[b.head]
	b.items[b.head] = zero
	b.head++
	b.bytes -= b.sizeOf(item)
	b.delivered++

	remaining := len(b.items) - b.head
	switch {
	case remaining == 0:
		b.items = b.items[:0]
		b.head = 0
		if b.empty != nil {
			close(b.empty)
			b.empty = nil
		}
	case b.head > len(b.items)/2 && b.head >= 64:
		// Compact once the consumed prefix dominates the backing array.
		n := copy(b.items, b.items[b.head:])
		clear(b.items[n:])
		b.items = b.items[:n]
		b.head = 0
	}
	b.mu.Unlock()

	// Another waiter may be parked behind the consumed signal.
	if remaining > 0 {
		b.notify()
	}

	return item, true, nil
}

// WaitEmpty blocks until the buffer holds no items or is closed.
//
// Returns:
//   - error: nil when empty or closed, ctx.Err() when ctx ends first
func (b *Buffer[T]) WaitEmpty(ctx context.Context) error {
	b.mu.Lock()
	if b.closed || b.head == len(b.items) {
		b.mu.Unlock()
		return nil
	}
	if b.empty == nil {
		b.empty = make(chan struct{})
	}
	empty := b.empty
	b.mu.Unlock()

	select {
	case <-empty:
		return nil
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the buffer closed, wakes every waiter and discards the buffered
// items, which are returned to the caller. Close is idempotent; later calls
// return nil.
func (b *Buffer[T]) Close() []T {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	discarded := append([]T(nil), b.items[b.head:]...)
	b.items = nil
	b.head = 0
	b.bytes = 0
	b.empty = nil
	b.mu.Unlock()

	close(b.done)

	return discarded
}

// Len returns the number of buffered items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.items) - b.head
}

// Snapshot returns occupancy, high-water marks and counters taken under one lock.
func (b *Buffer[T]) Snapshot() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		Msgs:      len(b.items) - b.head,
		Bytes:     b.bytes,
		MaxMsgs:   b.maxMsgs,
		MaxBytes:  b.maxBytes,
		Delivered: b.delivered,
		Dropped:   b.dropped,
		Closed:    b.closed,
	}
}

// ResetMaxSeen resets the high-water marks to zero.
func (b *Buffer[T]) ResetMaxSeen() {
	b.mu.Lock()
	b.maxMsgs = 0
	b.maxBytes = 0
	b.mu.Unlock()
}

func (b *Buffer[T]) notify() {
	select {
	case b.signal <- struct{}{}:
	default:
	}
}
