// Package flow decides whether a matched message may join a subscription's
// pending buffer.
package flow

import "sync/atomic"

// Decision is the outcome of an admission check.
type Decision int

const (
	// Admit means the message fits within the pending limits.
	Admit Decision = iota

	// DropSlowConsumer means accepting the message would exceed a limit.
	DropSlowConsumer
)

// String returns the string representation of the decision.
func (d Decision) String() string {
	switch d {
	case Admit:
		return "admit"
	case DropSlowConsumer:
		return "drop_slow_consumer"
	default:
		return "unknown"
	}
}

// Controller holds the message and byte limits of one subscription.
//
// A limit of zero or below means unlimited. Limits may be changed at any time;
// lowering them never evicts messages that are already buffered.
//
// Capacity is a fixed message cap applied on top of the limits. It bounds the
// buffer even when the message limit is raised or unlimited, and is not
// reported by Limits.
type Controller struct {
	maxMsgs  atomic.Int64
	maxBytes atomic.Int64
	capacity int64
}

// New creates a controller with the given limits and no capacity cap.
func New(maxMsgs, maxBytes int) *Controller {
	return NewWithCapacity(maxMsgs, maxBytes, 0)
}

// NewWithCapacity creates a controller whose buffer never holds more than
// capacity messages. A capacity of zero or below means uncapped.
func NewWithCapacity(maxMsgs, maxBytes, capacity int) *Controller {
	c := &Controller{capacity: int64(capacity)}
	c.SetLimits(maxMsgs, maxBytes)

	return c
}

// Admit decides whether a message of size bytes may join a buffer currently
// holding pendingMsgs messages totalling pendingBytes.
func (c *Controller) Admit(pendingMsgs, pendingBytes, size int) Decision {
	if c.capacity > 0 && int64(pendingMsgs)+1 > c.capacity {
		return DropSlowConsumer
	}
	if limit := c.maxMsgs.Load(); limit > 0 && int64(pendingMsgs)+1 > limit {
		return DropSlowConsumer
	}
	if limit := c.maxBytes.Load(); limit > 0 && int64(pendingBytes)+int64(size) > limit {
		return DropSlowConsumer
	}

	return Admit
}

// Admits is Admit reduced to a bool, in the shape pending.AdmitFunc expects.
func (c *Controller) Admits(pendingMsgs, pendingBytes, size int) bool {
	return c.Admit(pendingMsgs, pendingBytes, size) == Admit
}

// SetLimits replaces both limits.
func (c *Controller) SetLimits(maxMsgs, maxBytes int) {
	c.maxMsgs.Store(int64(maxMsgs))
	c.maxBytes.Store(int64(maxBytes))
}

// Capacity returns the message cap, zero or below when uncapped.
func (c *Controller) Capacity() int {
	return int(c.capacity)
}

// Limits returns the configured message and byte limits.
func (c *Controller) Limits() (maxMsgs, maxBytes int) {
	return int(c.maxMsgs.Load()), int(c.maxBytes.Load())
}
