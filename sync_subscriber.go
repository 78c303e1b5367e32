package subflow

import (
	"context"
	"errors"
	"time"

	"github.com/arloliu/subflow/internal/pending"
)

// NextMsg returns the oldest buffered message of a sync subscription.
//
// timeout selects the waiting behavior:
//   - timeout > 0: wait up to timeout
//   - timeout == 0: wait until a message arrives or the subscription closes
//   - timeout < 0: return immediately
//
// Slow-consumer conditions are not reported here; they surface on Flush and
// through the error handler.
//
// Returns:
//   - *Msg: The oldest buffered message
//   - error: ErrTimeout when nothing arrived in time, ErrMaxMessages after the
//     auto-unsubscribe limit was delivered, ErrBadSubscription (possibly
//     wrapping ErrConnectionClosed) once closed, ErrSyncSubRequired on an
//     async subscription
func (s *Subscription) NextMsg(timeout time.Duration) (*Msg, error) {
	if s.mode != ModeSync {
		return nil, ErrSyncSubRequired
	}

	if timeout < 0 {
		msg, ok, err := s.buf.TryPop()
		if err != nil {
			return nil, s.closedErr()
		}
		if !ok {
			return nil, ErrTimeout
		}

		return s.delivered(msg), nil
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	msg, err := s.next(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, ErrTimeout
	}

	return msg, err
}

// NextMsgWithContext is NextMsg bounded by ctx instead of a timeout.
//
// Returns:
//   - error: ctx.Err() when ctx ends first, otherwise as NextMsg
func (s *Subscription) NextMsgWithContext(ctx context.Context) (*Msg, error) {
	if s.mode != ModeSync {
		return nil, ErrSyncSubRequired
	}

	return s.next(ctx)
}

func (s *Subscription) next(ctx context.Context) (*Msg, error) {
	msg, err := s.buf.Pop(ctx)
	if err != nil {
		if errors.Is(err, pending.ErrClosed) {
			return nil, s.closedErr()
		}

		return nil, err
	}

	return s.delivered(msg), nil
}

func (s *Subscription) delivered(msg *Msg) *Msg {
	s.reg.metrics.RecordDelivered(ModeSync)
	s.checkAutoUnsubscribe()

	return msg
}
