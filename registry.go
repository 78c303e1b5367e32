package subflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/arloliu/subflow/internal/logging"
	"github.com/arloliu/subflow/internal/metrics"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
)

// Registry owns the subscriptions of one connection and routes inbound
// messages to them.
//
// Route is called by a single inbound reader; every other method is safe for
// concurrent use. A Registry can be used without a Conn, in which case the
// caller feeds it through Route.
type Registry struct {
	id      string
	cfg     Config
	logger  Logger
	metrics MetricsCollector
	onError ErrorHandler
	conn    *Conn

	nextSID atomic.Int64
	subs    *xsync.Map[int64, *Subscription]

	// bySubject slices are replaced, never mutated, so Route can iterate a
	// slice after releasing the lock.
	mu        sync.RWMutex
	bySubject map[string][]*Subscription
	closed    bool

	errMu    sync.Mutex
	lastErr  error
	flushErr error

	errQueue    *errorQueue
	errLoopDone chan struct{}
	dispatchers sync.WaitGroup

	// Interest hooks installed by Conn, called under mu when the first
	// subscription on a subject is added and after the last one is removed.
	onAcquire func(subject string) error
	onRelease func(subject string)
}

// NewRegistry creates a Registry.
//
// Parameters:
//   - cfg: Configuration; zero values are replaced by defaults
//   - opts: Optional logger, metrics and error handler
//
// Returns:
//   - *Registry: Registry with its error handler goroutine running
//   - error: ErrInvalidConfig wrapped with details
func NewRegistry(cfg Config, opts ...Option) (*Registry, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	return newRegistry(cfg, o)
}

func newRegistry(cfg Config, o *options) (*Registry, error) {
	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNop()
	}

	r := &Registry{
		id:          uuid.NewString(),
		cfg:         cfg,
		logger:      o.logger,
		metrics:     o.metrics,
		onError:     o.errorHandler,
		subs:        xsync.NewMap[int64, *Subscription](),
		bySubject:   make(map[string][]*Subscription),
		errQueue:    newErrorQueue(cfg.ErrorQueueLength),
		errLoopDone: make(chan struct{}),
	}

	go r.errorLoop()

	return r, nil
}

// ID returns the registry instance identifier.
func (r *Registry) ID() string { return r.id }

// SubscribeSync creates a sync subscription drained with NextMsg.
//
// Returns:
//   - *Subscription: Active subscription
//   - error: ErrBadSubject for invalid subjects, ErrConnectionClosed after Close
func (r *Registry) SubscribeSync(subject string) (*Subscription, error) {
	return r.subscribe(subject, ModeSync, nil)
}

// Subscribe creates an async subscription and starts its dispatcher.
//
// Returns:
//   - *Subscription: Active, started subscription
//   - error: ErrHandlerRequired for a nil handler, otherwise as SubscribeSync
func (r *Registry) Subscribe(subject string, handler MessageHandler) (*Subscription, error) {
	sub, err := r.SubscribeAsync(subject, handler)
	if err != nil {
		return nil, err
	}
	if err := sub.Start(); err != nil {
		return nil, err
	}

	return sub, nil
}

// SubscribeAsync creates an async subscription without starting it.
//
// Messages are buffered up to the pending limits until Start is called.
func (r *Registry) SubscribeAsync(subject string, handler MessageHandler) (*Subscription, error) {
	if handler == nil {
		return nil, ErrHandlerRequired
	}

	return r.subscribe(subject, ModeAsync, handler)
}

func (r *Registry) subscribe(subject string, mode Mode, handler MessageHandler) (*Subscription, error) {
	if err := validateSubject(subject); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrConnectionClosed
	}

	current := r.bySubject[subject]
	if len(current) == 0 && r.onAcquire != nil {
		if err := r.onAcquire(subject); err != nil {
			r.mu.Unlock()
			return nil, err
		}
	}

	sub := newSubscription(r, r.nextSID.Add(1), subject, mode, handler)
	next := make([]*Subscription, len(current), len(current)+1)
	copy(next, current)
	r.bySubject[subject] = append(next, sub)
	r.subs.Store(sub.sid, sub)
	r.mu.Unlock()

	r.metrics.SetActiveSubscriptions(r.subs.Size())
	r.logger.Debug("subscription created", "sid", sub.sid, "subject", subject, "mode", mode.String())

	return sub, nil
}

// Route offers msg to every active subscription on subject.
//
// Each subscription receives its own copy of the message with Sub set. A drop
// on one subscription never affects another.
//
// Returns:
//   - int: Number of subscriptions that buffered the message
func (r *Registry) Route(subject string, msg *Msg) int {
	r.mu.RLock()
	subs := r.bySubject[subject]
	r.mu.RUnlock()

	queued := 0
	for _, sub := range subs {
		if sub.route(msg) {
			queued++
		}
	}

	return queued
}

// Unsubscribe closes sub. It is equivalent to sub.Unsubscribe().
func (r *Registry) Unsubscribe(sub *Subscription) error {
	if sub == nil {
		return ErrBadSubscription
	}

	return sub.Unsubscribe()
}

// Lookup returns the active subscription with the given identifier.
func (r *Registry) Lookup(sid int64) (*Subscription, bool) {
	return r.subs.Load(sid)
}

// NumSubscriptions returns the number of active subscriptions.
func (r *Registry) NumSubscriptions() int {
	return r.subs.Size()
}

// CloseAll closes every active subscription with reason as the cause
// reported by NextMsg (wrapped in ErrBadSubscription). New subscriptions
// are still accepted.
//
// CloseAll does not wait for running handlers; use Wait for that.
func (r *Registry) CloseAll(reason error) {
	label := reasonClosed
	if errors.Is(reason, ErrConnectionClosed) {
		label = reasonConnectionClosed
	}

	r.subs.Range(func(_ int64, sub *Subscription) bool {
		sub.close(label, reason)
		return true
	})
}

// Close closes every subscription with ErrConnectionClosed, rejects new
// subscriptions and stops the error handler goroutine once queued errors
// were delivered. Close is idempotent.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.CloseAll(ErrConnectionClosed)
	r.errQueue.close()
}

// Wait blocks until every dispatcher goroutine and, after Close, the error
// handler goroutine have exited.
//
// Returns:
//   - error: ctx.Err() if ctx ends first
func (r *Registry) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.dispatchers.Wait()
		r.mu.RLock()
		closed := r.closed
		r.mu.RUnlock()
		if closed {
			<-r.errLoopDone
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastError returns the most recent asynchronous error: a slow-consumer
// episode or a handler failure.
func (r *Registry) LastError() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()

	return r.lastErr
}

// takeFlushError returns and clears the first slow-consumer error recorded
// since the previous call.
func (r *Registry) takeFlushError() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()

	err := r.flushErr
	r.flushErr = nil

	return err
}

// remove unlinks a closed subscription.
func (r *Registry) remove(sub *Subscription, reason string, discarded int) {
	r.subs.Delete(sub.sid)

	r.mu.Lock()
	if subs, ok := r.bySubject[sub.subject]; ok {
		kept := make([]*Subscription, 0, len(subs))
		for _, s := range subs {
			if s != sub {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(r.bySubject, sub.subject)
			if r.onRelease != nil {
				r.onRelease(sub.subject)
			}
		} else {
			r.bySubject[sub.subject] = kept
		}
	}
	r.mu.Unlock()

	r.metrics.RecordSubscriptionClosed(reason)
	r.metrics.SetActiveSubscriptions(r.subs.Size())
	r.logger.Debug("subscription closed",
		"sid", sub.sid,
		"subject", sub.subject,
		"reason", reason,
		"discarded", discarded,
	)
}

// recordDrop accounts for a message dropped by sub's pending limits. A new
// slow-consumer episode is additionally logged and reported asynchronously.
func (r *Registry) recordDrop(sub *Subscription, episode bool) {
	r.metrics.RecordDropped(sub.mode)

	if !episode {
		r.errMu.Lock()
		if r.flushErr == nil {
			r.flushErr = r.slowConsumerError(sub)
		}
		r.errMu.Unlock()

		return
	}

	err := r.slowConsumerError(sub)

	r.errMu.Lock()
	r.lastErr = err
	if r.flushErr == nil {
		r.flushErr = err
	}
	r.errMu.Unlock()

	r.metrics.RecordSlowConsumer()
	r.logger.Warn("slow consumer detected",
		"sid", sub.sid,
		"subject", sub.subject,
		"dropped", err.Dropped,
	)
	r.report(sub, err)
}

func (r *Registry) slowConsumerError(sub *Subscription) *SlowConsumerError {
	return &SlowConsumerError{
		SID:     sub.sid,
		Subject: sub.subject,
		Dropped: sub.buf.Snapshot().Dropped,
	}
}

// handlerFailed records an error or panic raised by an async handler.
func (r *Registry) handlerFailed(sub *Subscription, err error) {
	r.errMu.Lock()
	r.lastErr = err
	r.errMu.Unlock()

	r.metrics.RecordHandlerFailure()
	r.logger.Error("message handler failed", "sid", sub.sid, "subject", sub.subject, "error", err)
	r.report(sub, err)
}

// reportAsync records an error raised outside any subscription, such as an
// asynchronous NATS client error.
func (r *Registry) reportAsync(sub *Subscription, err error) {
	r.errMu.Lock()
	r.lastErr = err
	r.errMu.Unlock()

	r.logger.Warn("async error", "error", err)
	r.report(sub, err)
}

// report queues err for the error handler.
func (r *Registry) report(sub *Subscription, err error) {
	if r.onError == nil {
		return
	}
	if !r.errQueue.trySend(asyncError{sub: sub, err: err}) {
		r.logger.Warn("async error discarded, error queue full or closed", "error", err)
	}
}

// errorLoop delivers queued errors to the error handler, isolated from the
// inbound reader and the dispatchers.
func (r *Registry) errorLoop() {
	defer close(r.errLoopDone)

	for e := range r.errQueue.ch {
		r.metrics.RecordAsyncError()
		r.callErrorHandler(e)
	}
}

func (r *Registry) callErrorHandler(e asyncError) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("error handler panicked", "panic", p)
		}
	}()

	r.onError(r.conn, e.sub, e.err)
}

// validateSubject rejects empty subjects, whitespace and empty tokens.
func validateSubject(subject string) error {
	if subject == "" {
		return fmt.Errorf("%w: empty subject", ErrBadSubject)
	}
	if strings.ContainsAny(subject, " \t\r\n") {
		return fmt.Errorf("%w: %q contains whitespace", ErrBadSubject, subject)
	}
	for _, token := range strings.Split(subject, ".") {
		if token == "" {
			return fmt.Errorf("%w: %q has an empty token", ErrBadSubject, subject)
		}
	}

	return nil
}
