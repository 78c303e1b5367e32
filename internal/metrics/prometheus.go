package metrics

import (
	"sync"

	"github.com/arloliu/subflow/types"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use, so constructing a
// PrometheusCollector that is never exercised leaves the registerer untouched.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	delivered       *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	slowConsumers   prometheus.Counter
	handlerFailures prometheus.Counter
	closed          *prometheus.CounterVec
	active          prometheus.Gauge
	flushLatency    prometheus.Histogram
	asyncErrors     prometheus.Counter
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "subflow" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "subflow"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.delivered = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "delivered_total",
			Help:      "Total messages handed to consumers by delivery mode.",
		}, []string{"mode"})

		p.dropped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "dropped_total",
			Help:      "Total messages dropped by pending limits by delivery mode.",
		}, []string{"mode"})

		p.slowConsumers = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "slow_consumer_episodes_total",
			Help:      "Total slow-consumer episodes detected.",
		})

		p.handlerFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "handler_failures_total",
			Help:      "Total errors and panics raised by async message handlers.",
		})

		p.closed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "closed_total",
			Help:      "Total subscriptions closed by reason.",
		}, []string{"reason"})

		p.active = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "subscription",
			Name:      "active",
			Help:      "Current number of active subscriptions.",
		})

		p.flushLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "connection",
			Name:      "flush_latency_seconds",
			Help:      "Latency of flush round-trips including the inbound barrier.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms .. ~4s
		})

		p.asyncErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "connection",
			Name:      "async_errors_total",
			Help:      "Total errors delivered to the asynchronous error handler.",
		})

		p.reg.MustRegister(p.delivered)
		p.reg.MustRegister(p.dropped)
		p.reg.MustRegister(p.slowConsumers)
		p.reg.MustRegister(p.handlerFailures)
		p.reg.MustRegister(p.closed)
		p.reg.MustRegister(p.active)
		p.reg.MustRegister(p.flushLatency)
		p.reg.MustRegister(p.asyncErrors)
	})
}

// RecordDelivered increments the delivered counter for mode.
func (p *PrometheusCollector) RecordDelivered(mode types.Mode) {
	p.ensureRegistered()
	p.delivered.WithLabelValues(mode.String()).Inc()
}

// RecordDropped increments the dropped counter for mode.
func (p *PrometheusCollector) RecordDropped(mode types.Mode) {
	p.ensureRegistered()
	p.dropped.WithLabelValues(mode.String()).Inc()
}

// RecordSlowConsumer increments the slow-consumer episode counter.
func (p *PrometheusCollector) RecordSlowConsumer() {
	p.ensureRegistered()
	p.slowConsumers.Inc()
}

// RecordHandlerFailure increments the handler failure counter.
func (p *PrometheusCollector) RecordHandlerFailure() {
	p.ensureRegistered()
	p.handlerFailures.Inc()
}

// RecordSubscriptionClosed increments the close counter for reason.
func (p *PrometheusCollector) RecordSubscriptionClosed(reason string) {
	p.ensureRegistered()
	p.closed.WithLabelValues(reason).Inc()
}

// SetActiveSubscriptions sets the active subscription gauge.
func (p *PrometheusCollector) SetActiveSubscriptions(count int) {
	p.ensureRegistered()
	p.active.Set(float64(count))
}

// ObserveFlushLatency observes a flush duration in seconds.
func (p *PrometheusCollector) ObserveFlushLatency(seconds float64) {
	p.ensureRegistered()
	p.flushLatency.Observe(seconds)
}

// RecordAsyncError increments the async error counter.
func (p *PrometheusCollector) RecordAsyncError() {
	p.ensureRegistered()
	p.asyncErrors.Inc()
}
