package subflow

import (
	"errors"
	"fmt"

	"github.com/arloliu/subflow/internal/pending"
)

// Start begins asynchronous delivery.
//
// Exactly one dispatcher goroutine is started per subscription. It drains the
// pending buffer in FIFO order and calls the handler for one message at a
// time. Until Start is called messages accumulate up to the pending limits.
//
// Returns:
//   - error: ErrAsyncSubRequired on a sync subscription, ErrAlreadyStarted on
//     a second call, ErrBadSubscription if closed
func (s *Subscription) Start() error {
	if s.mode != ModeAsync {
		return ErrAsyncSubRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.IsValid() {
		return ErrBadSubscription
	}
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	s.reg.dispatchers.Add(1)
	go s.dispatch()

	return nil
}

// dispatch is the dispatcher loop of a started async subscription.
func (s *Subscription) dispatch() {
	defer s.reg.dispatchers.Done()

	s.reg.logger.Debug("dispatcher started", "sid", s.sid, "subject", s.subject)
	defer s.reg.logger.Debug("dispatcher stopped", "sid", s.sid, "subject", s.subject)

	for {
		msg, err := s.buf.Pop(s.popCtx)
		if err != nil {
			if errors.Is(err, pending.ErrClosed) {
				return
			}
			// popCtx ends on drain; Pop keeps returning buffered messages first.
			if s.buf.Len() > 0 {
				continue
			}
			s.close(reasonDrain, nil)

			return
		}

		s.reg.metrics.RecordDelivered(ModeAsync)
		s.invoke(msg)
		s.checkAutoUnsubscribe()
	}
}

// invoke calls the handler, converting errors and panics into async errors.
func (s *Subscription) invoke(msg *Msg) {
	defer func() {
		if r := recover(); r != nil {
			s.reg.handlerFailed(s, fmt.Errorf("%w: panic: %v", ErrHandlerFailed, r))
		}
	}()

	if err := s.handler.Handle(s.ctx, msg); err != nil {
		s.reg.handlerFailed(s, fmt.Errorf("%w: %w", ErrHandlerFailed, err))
	}
}
