package subflow

import "github.com/nats-io/nats.go"

// Option configures a Registry or Conn with optional dependencies.
type Option func(*options)

// ErrorHandler receives errors that happen away from any caller: slow-consumer
// episodes, message handler failures and asynchronous NATS client errors.
//
// conn is nil for a Registry used without a Conn; sub is nil for
// connection-level errors. Handlers run on a dedicated goroutine, never on the
// inbound reader or a dispatcher.
type ErrorHandler func(conn *Conn, sub *Subscription, err error)

// ConnHandler receives connection lifecycle events.
type ConnHandler func(conn *Conn)

// options holds optional Registry and Conn configuration.
type options struct {
	metrics       MetricsCollector
	logger        Logger
	errorHandler  ErrorHandler
	closedHandler ConnHandler
	natsOptions   []nats.Option
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewRegistry, Connect and NewConn
//
// Example:
//
//	metrics := subflow.NewPrometheusMetrics(prometheus.DefaultRegisterer, "")
//	conn, err := subflow.Connect(nats.DefaultURL, cfg, subflow.WithMetrics(metrics))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewRegistry, Connect and NewConn
//
// Example:
//
//	logger := subflow.NewSlogLogger(slog.Default())
//	conn, err := subflow.Connect(nats.DefaultURL, cfg, subflow.WithLogger(logger))
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithErrorHandler sets the asynchronous error handler.
//
// Parameters:
//   - handler: Called once per slow-consumer episode, per handler failure and
//     per asynchronous NATS client error
//
// Returns:
//   - Option: Functional option for NewRegistry, Connect and NewConn
//
// Example:
//
//	conn, err := subflow.Connect(url, cfg, subflow.WithErrorHandler(
//	    func(_ *subflow.Conn, sub *subflow.Subscription, err error) {
//	        if errors.Is(err, subflow.ErrSlowConsumer) {
//	            log.Printf("subscription %d is falling behind", sub.SID())
//	        }
//	    }))
func WithErrorHandler(handler ErrorHandler) Option {
	return func(o *options) {
		o.errorHandler = handler
	}
}

// WithClosedHandler sets a callback invoked once when a Conn is closed.
//
// Parameters:
//   - handler: Connection closed callback
//
// Returns:
//   - Option: Functional option for Connect and NewConn
func WithClosedHandler(handler ConnHandler) Option {
	return func(o *options) {
		o.closedHandler = handler
	}
}

// WithNATSOptions passes options to nats.Connect. Only Connect uses them;
// NewConn wraps a connection that is already established.
//
// Parameters:
//   - opts: nats.go connection options
//
// Returns:
//   - Option: Functional option for Connect
//
// Example:
//
//	conn, err := subflow.Connect(url, cfg, subflow.WithNATSOptions(nats.UserInfo("u", "p")))
func WithNATSOptions(opts ...nats.Option) Option {
	return func(o *options) {
		o.natsOptions = append(o.natsOptions, opts...)
	}
}
