package subflow

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arloliu/subflow/internal/natsutil"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/puzpuzpuz/xsync/v4"
)

// Conn connects a Registry to a NATS connection.
//
// The NATS client delivers every message for the registry's subjects into one
// shared channel. A single inbound reader goroutine drains that channel and
// routes each message through the Registry, so admission decisions for a
// subscription are strictly ordered. Wire framing, reconnection and
// authentication are left to nats.go.
type Conn struct {
	nc      *nats.Conn
	owned   bool
	cfg     Config
	reg     *Registry
	logger  Logger
	metrics MetricsCollector

	closedHandler ConnHandler
	prevErrorCB   nats.ErrHandler

	inbound  chan *nats.Msg
	barriers *xsync.Map[*nats.Msg, chan struct{}]

	// interests maps a subject to its NATS subscription. The Registry decides
	// when an interest is acquired or released.
	mu        sync.Mutex
	interests map[string]*nats.Subscription

	closed     atomic.Bool
	closeOnce  sync.Once
	quit       chan struct{}
	readerDone chan struct{}
}

// Connect dials the NATS server at url and returns a Conn that owns the
// connection.
//
// Parameters:
//   - url: NATS server URL (e.g. nats.DefaultURL)
//   - cfg: Configuration; zero values are replaced by defaults
//   - opts: Optional logger, metrics, handlers and nats.go options
//
// Returns:
//   - *Conn: Connected Conn with its inbound reader running
//   - error: Connection or configuration error
//
// Example:
//
//	conn, err := subflow.Connect(nats.DefaultURL, subflow.DefaultConfig(),
//	    subflow.WithLogger(logger),
//	)
func Connect(url string, cfg Config, opts ...Option) (*Conn, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if cfg.Name == "" {
		cfg.Name = defaultName()
	}

	natsOpts := make([]nats.Option, 0, len(o.natsOptions)+1)
	natsOpts = append(natsOpts, nats.Name(cfg.Name))
	natsOpts = append(natsOpts, o.natsOptions...)

	nc, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	c, err := newConn(nc, true, cfg, o)
	if err != nil {
		nc.Close()
		return nil, err
	}

	return c, nil
}

// NewConn wraps an established NATS connection. The caller keeps ownership:
// Close leaves nc open.
//
// Returns:
//   - *Conn: Conn with its inbound reader running
//   - error: ErrNATSConnectionRequired for nil, ErrConnectionClosed for a
//     closed connection, or a configuration error
func NewConn(nc *nats.Conn, cfg Config, opts ...Option) (*Conn, error) {
	if nc == nil {
		return nil, ErrNATSConnectionRequired
	}
	if nc.IsClosed() {
		return nil, ErrConnectionClosed
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if cfg.Name == "" {
		cfg.Name = defaultName()
	}

	return newConn(nc, false, cfg, o)
}

func newConn(nc *nats.Conn, owned bool, cfg Config, o *options) (*Conn, error) {
	reg, err := newRegistry(cfg, o)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		nc:            nc,
		owned:         owned,
		cfg:           reg.cfg,
		reg:           reg,
		logger:        reg.logger,
		metrics:       reg.metrics,
		closedHandler: o.closedHandler,
		inbound:       make(chan *nats.Msg, reg.cfg.InboundChannelLength),
		barriers:      xsync.NewMap[*nats.Msg, chan struct{}](),
		interests:     make(map[string]*nats.Subscription),
		quit:          make(chan struct{}),
		readerDone:    make(chan struct{}),
	}

	reg.conn = c
	reg.onAcquire = c.acquire
	reg.onRelease = c.release

	c.prevErrorCB = nc.Opts.AsyncErrorCB
	nc.SetErrorHandler(c.natsError)

	go c.readLoop()

	c.logger.Info("connection ready", "name", c.cfg.Name, "registry", reg.ID(), "owned", owned)

	return c, nil
}

func defaultName() string {
	return "subflow-" + uuid.NewString()
}

// Name returns the connection name.
func (c *Conn) Name() string { return c.cfg.Name }

// NATS returns the underlying NATS connection.
func (c *Conn) NATS() *nats.Conn { return c.nc }

// Registry returns the registry holding the connection's subscriptions.
func (c *Conn) Registry() *Registry { return c.reg }

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool { return c.closed.Load() }

// SubscribeSync creates a sync subscription on subject.
func (c *Conn) SubscribeSync(subject string) (*Subscription, error) {
	return c.reg.SubscribeSync(subject)
}

// Subscribe creates an async subscription on subject and starts delivery.
func (c *Conn) Subscribe(subject string, handler MessageHandler) (*Subscription, error) {
	return c.reg.Subscribe(subject, handler)
}

// SubscribeAsync creates an async subscription on subject; call Start to
// begin delivery.
func (c *Conn) SubscribeAsync(subject string, handler MessageHandler) (*Subscription, error) {
	return c.reg.SubscribeAsync(subject, handler)
}

// NumSubscriptions returns the number of active subscriptions.
func (c *Conn) NumSubscriptions() int { return c.reg.NumSubscriptions() }

// LastError returns the most recent asynchronous error.
func (c *Conn) LastError() error { return c.reg.LastError() }

// Publish sends data to subject.
func (c *Conn) Publish(subject string, data []byte) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	return natsutil.MapError(c.nc.Publish(subject, data))
}

// PublishRequest sends data to subject with reply as the reply subject.
func (c *Conn) PublishRequest(subject, reply string, data []byte) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	return natsutil.MapError(c.nc.PublishRequest(subject, reply, data))
}

// NewInbox returns a unique inbox subject for replies.
func (c *Conn) NewInbox() string {
	return c.nc.NewInbox()
}

// Flush is FlushTimeout with the configured FlushTimeout.
func (c *Conn) Flush() error {
	return c.FlushTimeout(c.cfg.FlushTimeout)
}

// FlushTimeout performs a round trip to the server and waits until every
// message the server sent before its reply has been routed.
//
// When that window saw pending-limit drops the call fails with a
// *SlowConsumerError (errors.Is ErrSlowConsumer). Each drop is reported by at
// most one FlushTimeout call.
//
// Returns:
//   - error: ErrTimeout, ErrConnectionClosed, a slow-consumer error or nil
func (c *Conn) FlushTimeout(timeout time.Duration) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	if timeout <= 0 {
		return fmt.Errorf("%w: flush timeout must be > 0", ErrInvalidArg)
	}

	start := time.Now()
	if err := c.nc.FlushTimeout(timeout); err != nil {
		return natsutil.MapError(err)
	}

	if err := c.barrier(timeout - time.Since(start)); err != nil {
		return err
	}
	c.metrics.ObserveFlushLatency(time.Since(start).Seconds())

	return c.reg.takeFlushError()
}

// barrier pushes a marker through the inbound channel and waits for the
// reader to reach it. The NATS client queues every message that preceded the
// server's PONG before FlushTimeout returns, so they are routed by then.
func (c *Conn) barrier(timeout time.Duration) error {
	marker := &nats.Msg{}
	done := make(chan struct{})
	c.barriers.Store(marker, done)
	defer c.barriers.Delete(marker)

	timer := time.NewTimer(max(timeout, time.Millisecond))
	defer timer.Stop()

	select {
	case c.inbound <- marker:
	case <-timer.C:
		return ErrTimeout
	case <-c.quit:
		return ErrConnectionClosed
	}

	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrTimeout
	case <-c.quit:
		return ErrConnectionClosed
	}
}

// readLoop is the inbound reader.
func (c *Conn) readLoop() {
	defer close(c.readerDone)

	c.logger.Debug("inbound reader started", "name", c.cfg.Name)
	defer c.logger.Debug("inbound reader stopped", "name", c.cfg.Name)

	for {
		select {
		case <-c.quit:
			return
		case m := <-c.inbound:
			if m.Sub == nil {
				if done, ok := c.barriers.LoadAndDelete(m); ok {
					close(done)
				}
				continue
			}

			c.reg.Route(m.Sub.Subject, &Msg{
				Subject: m.Subject,
				Reply:   m.Reply,
				Header:  m.Header,
				Data:    m.Data,
				conn:    c,
			})
		}
	}
}

// natsError forwards asynchronous nats.go errors, such as a server-side slow
// consumer or a permissions violation, to the error handler.
func (c *Conn) natsError(nc *nats.Conn, s *nats.Subscription, err error) {
	c.reg.reportAsync(nil, fmt.Errorf("nats: %w", err))
	if c.prevErrorCB != nil {
		c.prevErrorCB(nc, s, err)
	}
}

// acquire registers NATS interest in subject. Called by the Registry under
// its lock for the first subscription on subject.
func (c *Conn) acquire(subject string) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	ns, err := c.nc.ChanSubscribe(subject, c.inbound)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %q: %w", subject, natsutil.MapError(err))
	}

	c.mu.Lock()
	c.interests[subject] = ns
	c.mu.Unlock()

	return nil
}

// release drops NATS interest in subject once its last subscription closed.
func (c *Conn) release(subject string) {
	c.mu.Lock()
	ns := c.interests[subject]
	delete(c.interests, subject)
	c.mu.Unlock()

	if ns == nil {
		return
	}
	if err := ns.Unsubscribe(); err != nil && !natsutil.IsConnectivityError(err) {
		c.logger.Warn("failed to release subject interest", "subject", subject, "error", err)
	}
}

// Close closes every subscription with ErrConnectionClosed, stops the inbound
// reader and, when the Conn owns it, closes the NATS connection.
//
// Blocked NextMsg callers and Flush callers return immediately. Running async
// handlers are not waited for; their context is cancelled. Close is idempotent.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		c.reg.Close()
		close(c.quit)
		<-c.readerDone

		c.mu.Lock()
		remaining := c.interests
		c.interests = make(map[string]*nats.Subscription)
		c.mu.Unlock()
		for _, ns := range remaining {
			_ = ns.Unsubscribe()
		}

		if c.owned {
			c.nc.Close()
		} else {
			c.nc.SetErrorHandler(c.prevErrorCB)
		}

		c.logger.Info("connection closed", "name", c.cfg.Name)

		if c.closedHandler != nil {
			c.closedHandler(c)
		}
	})
}
