package subflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/arloliu/subflow/internal/flow"
	"github.com/arloliu/subflow/internal/pending"
)

// Close reasons reported to metrics and logs.
const (
	reasonUnsubscribe      = "unsubscribe"
	reasonAutoUnsubscribe  = "auto_unsubscribe"
	reasonDrain            = "drain"
	reasonConnectionClosed = "connection_closed"
	reasonClosed           = "closed"
)

// Subscription is a registered interest in a subject with its own pending
// buffer, limits and counters.
//
// A Subscription is created Active by a Registry (or a Conn) and moves to
// Closed exactly once. Every method is safe for concurrent use.
//
// Counting rule: Delivered + Dropped + pending messages always equals the
// number of messages matched against the subscription.
type Subscription struct {
	sid     int64
	subject string
	mode    Mode
	handler MessageHandler
	reg     *Registry

	buf *pending.Buffer[*Msg]
	fc  *flow.Controller

	state atomic.Int32

	// mu serializes routing against auto-unsubscribe, drain and close.
	mu       sync.Mutex
	max      int64 // auto-unsubscribe limit, 0 when unset
	matched  int64
	slow     bool // inside a slow-consumer episode
	draining bool
	started  bool
	cause    error

	ctx     context.Context // handed to the async handler, cancelled on close
	cancel  context.CancelFunc
	popCtx  context.Context // cancelled on drain or close
	stopPop context.CancelFunc
	closed  chan struct{}
}

// handlerCtxKey marks the context handed to a subscription's handler.
type handlerCtxKey struct{}

// calledFromHandler reports whether ctx is (or derives from) the context the
// dispatcher hands to this subscription's handler.
func (s *Subscription) calledFromHandler(ctx context.Context) bool {
	owner, _ := ctx.Value(handlerCtxKey{}).(*Subscription)

	return owner == s
}

func newSubscription(reg *Registry, sid int64, subject string, mode Mode, handler MessageHandler) *Subscription {
	s := &Subscription{
		sid:     sid,
		subject: subject,
		mode:    mode,
		handler: handler,
		reg:     reg,
		buf:     pending.New(msgSize),
		fc:      reg.cfg.newFlowController(),
		closed:  make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.WithValue(context.Background(), handlerCtxKey{}, s))
	s.popCtx, s.stopPop = context.WithCancel(s.ctx)

	return s
}

// SID returns the subscription identifier, unique within its Registry.
func (s *Subscription) SID() int64 { return s.sid }

// Subject returns the subject the subscription was created with.
func (s *Subscription) Subject() string { return s.subject }

// Mode returns the delivery mode.
func (s *Subscription) Mode() Mode { return s.mode }

// IsSync reports whether the subscription is drained with NextMsg.
func (s *Subscription) IsSync() bool { return s.mode == ModeSync }

// State returns the current lifecycle state.
func (s *Subscription) State() State { return State(s.state.Load()) }

// IsValid reports whether the subscription is still Active.
func (s *Subscription) IsValid() bool { return s.State() == StateActive }

// Done returns a channel that is closed when the subscription closes.
func (s *Subscription) Done() <-chan struct{} { return s.closed }

// route offers msg to the subscription. It is called only by the inbound
// reader, so admissions of one subscription are strictly ordered.
//
// Returns true if the message was buffered.
func (s *Subscription) route(msg *Msg) bool {
	s.mu.Lock()
	if !s.IsValid() || s.draining || (s.max > 0 && s.matched >= s.max) {
		s.mu.Unlock()
		return false
	}

	m := *msg
	m.Sub = s

	s.matched++
	queued, err := s.buf.Push(&m, s.fc.Admits)
	if err != nil {
		// Closed between the state check and the push.
		s.matched--
		s.mu.Unlock()

		return false
	}

	episode := false
	if queued {
		s.slow = false
	} else if !s.slow {
		s.slow = true
		episode = true
	}
	s.mu.Unlock()

	if !queued {
		s.reg.recordDrop(s, episode)
		s.checkAutoUnsubscribe()
	}

	return queued
}

// checkAutoUnsubscribe closes the subscription once every message up to the
// auto-unsubscribe limit was either delivered or dropped.
func (s *Subscription) checkAutoUnsubscribe() {
	s.mu.Lock()
	limit := s.max
	s.mu.Unlock()

	if limit == 0 {
		return
	}

	stats := s.buf.Snapshot()
	if stats.Delivered+int64(stats.Dropped) >= limit {
		s.close(reasonAutoUnsubscribe, ErrMaxMessages)
	}
}

// close moves the subscription to Closed. Buffered messages are discarded,
// blocked NextMsg callers are woken and the handler context is cancelled.
//
// Returns false if the subscription was already closed.
func (s *Subscription) close(reason string, cause error) bool {
	s.mu.Lock()
	if !s.IsValid() {
		s.mu.Unlock()
		return false
	}
	s.cause = cause
	s.state.Store(int32(StateClosed))
	s.mu.Unlock()

	discarded := s.buf.Close()
	s.cancel()
	close(s.closed)

	s.reg.remove(s, reason, len(discarded))

	return true
}

// closedErr returns the error reported by NextMsg after close.
func (s *Subscription) closedErr() error {
	s.mu.Lock()
	cause := s.cause
	s.mu.Unlock()

	switch {
	case cause == nil:
		return ErrBadSubscription
	case errors.Is(cause, ErrMaxMessages):
		return ErrMaxMessages
	default:
		return fmt.Errorf("%w: %w", ErrBadSubscription, cause)
	}
}

// Unsubscribe closes the subscription and removes it from its Registry.
//
// Buffered messages are discarded; use Drain to deliver them first.
//
// Returns:
//   - error: ErrBadSubscription if the subscription is already closed
func (s *Subscription) Unsubscribe() error {
	if !s.close(reasonUnsubscribe, nil) {
		return ErrBadSubscription
	}

	return nil
}

// AutoUnsubscribe closes the subscription automatically after limit messages.
//
// Routing stops once limit messages were matched. The subscription closes after
// the last of them is delivered (or dropped); NextMsg then returns
// ErrMaxMessages. When limit messages were already delivered or dropped the
// subscription closes immediately.
//
// Parameters:
//   - limit: Number of messages, must be > 0
//
// Returns:
//   - error: ErrInvalidArg for limit <= 0, ErrBadSubscription if closed
func (s *Subscription) AutoUnsubscribe(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("%w: auto-unsubscribe limit must be > 0, got %d", ErrInvalidArg, limit)
	}

	s.mu.Lock()
	if !s.IsValid() {
		s.mu.Unlock()
		return ErrBadSubscription
	}
	s.max = int64(limit)
	s.mu.Unlock()

	s.checkAutoUnsubscribe()

	return nil
}

// Drain stops matching new messages, waits until the buffered ones have been
// delivered and then closes the subscription.
//
// Sync subscriptions need a consumer calling NextMsg while draining. When ctx
// ends first the subscription is closed anyway and the remaining messages
// are discarded.
//
// The dispatcher of a started async subscription completes the drain, so it
// cannot be waited for from inside the subscription's own handler. Called
// there with the handler's context (or one derived from it), Drain returns
// nil at once and the drain finishes after the handler returns. Called from
// the handler with an unrelated context, Drain blocks until that context ends
// and then discards the buffered messages.
//
// Returns:
//   - error: ErrBadSubscription if already closed, a wrapped ctx error on timeout
func (s *Subscription) Drain(ctx context.Context) error {
	s.mu.Lock()
	if !s.IsValid() {
		s.mu.Unlock()
		return ErrBadSubscription
	}
	s.draining = true
	started := s.started
	s.mu.Unlock()

	s.stopPop()

	if started {
		// The dispatcher closes the subscription once the buffer is empty.
		if s.calledFromHandler(ctx) {
			return nil
		}

		select {
		case <-s.closed:
			return nil
		case <-ctx.Done():
			s.close(reasonDrain, nil)
			return fmt.Errorf("drain subscription %d: %w", s.sid, ctx.Err())
		}
	}

	err := s.buf.WaitEmpty(ctx)
	s.close(reasonDrain, nil)
	if err != nil {
		return fmt.Errorf("drain subscription %d: %w", s.sid, err)
	}

	return nil
}

// SetPendingLimits sets the message and byte limits of the pending buffer.
//
// A negative value means unlimited. Lowering a limit below the current
// occupancy does not evict buffered messages; it only affects new ones.
//
// Returns:
//   - error: ErrInvalidArg if either limit is zero, ErrBadSubscription if closed
func (s *Subscription) SetPendingLimits(msgLimit, bytesLimit int) error {
	if !s.IsValid() {
		return ErrBadSubscription
	}
	if msgLimit == 0 || bytesLimit == 0 {
		return fmt.Errorf("%w: pending limits cannot be zero", ErrInvalidArg)
	}

	s.fc.SetLimits(msgLimit, bytesLimit)

	return nil
}

// PendingLimits returns the message and byte limits.
func (s *Subscription) PendingLimits() (msgLimit, bytesLimit int, err error) {
	if !s.IsValid() {
		return 0, 0, ErrBadSubscription
	}
	msgLimit, bytesLimit = s.fc.Limits()

	return msgLimit, bytesLimit, nil
}

// Pending returns the number of buffered messages and their total size.
func (s *Subscription) Pending() (msgs, bytes int, err error) {
	stats, err := s.Stats()

	return stats.PendingMsgs, stats.PendingBytes, err
}

// QueuedMsgs returns the number of buffered messages.
func (s *Subscription) QueuedMsgs() (int, error) {
	stats, err := s.Stats()

	return stats.PendingMsgs, err
}

// MaxPending returns the highest number of buffered messages and bytes seen
// since creation or the last ClearMaxPending.
func (s *Subscription) MaxPending() (msgs, bytes int, err error) {
	stats, err := s.Stats()

	return stats.MaxPendingMsgs, stats.MaxPendingBytes, err
}

// ClearMaxPending resets the high-water marks returned by MaxPending.
func (s *Subscription) ClearMaxPending() error {
	if !s.IsValid() {
		return ErrBadSubscription
	}
	s.buf.ResetMaxSeen()

	return nil
}

// Delivered returns the number of messages handed to the consumer.
func (s *Subscription) Delivered() (int64, error) {
	stats, err := s.Stats()

	return stats.Delivered, err
}

// Dropped returns the number of messages rejected by the pending limits.
func (s *Subscription) Dropped() (int, error) {
	stats, err := s.Stats()

	return stats.Dropped, err
}

// Stats returns a consistent snapshot of the buffer, counters and limits.
//
// Returns:
//   - Stats: Snapshot, zero value when closed
//   - error: ErrBadSubscription if the subscription is closed
func (s *Subscription) Stats() (Stats, error) {
	if !s.IsValid() {
		return Stats{}, ErrBadSubscription
	}

	// A close racing with the check above empties the buffer; the closed flag
	// in the snapshot is read under the same lock as the counters.
	snap := s.buf.Snapshot()
	if snap.Closed {
		return Stats{}, ErrBadSubscription
	}
	msgLimit, bytesLimit := s.fc.Limits()

	return Stats{
		PendingMsgs:     snap.Msgs,
		PendingBytes:    snap.Bytes,
		MaxPendingMsgs:  snap.MaxMsgs,
		MaxPendingBytes: snap.MaxBytes,
		Delivered:       snap.Delivered,
		Dropped:         snap.Dropped,
		MsgLimit:        msgLimit,
		BytesLimit:      bytesLimit,
	}, nil
}
