// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/arloliu/subflow/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Example:
//
//	reg, _ := subflow.NewRegistry(cfg, subflow.WithMetrics(metrics.NewNop()))
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// SubscriptionMetrics implementation

// RecordDelivered discards the delivered metric.
func (n *NopMetrics) RecordDelivered(_ /* mode */ types.Mode) {}

// RecordDropped discards the dropped metric.
func (n *NopMetrics) RecordDropped(_ /* mode */ types.Mode) {}

// RecordSlowConsumer discards the slow-consumer metric.
func (n *NopMetrics) RecordSlowConsumer() {}

// RecordHandlerFailure discards the handler failure metric.
func (n *NopMetrics) RecordHandlerFailure() {}

// RecordSubscriptionClosed discards the subscription close metric.
func (n *NopMetrics) RecordSubscriptionClosed(_ /* reason */ string) {}

// SetActiveSubscriptions discards the active subscription gauge.
func (n *NopMetrics) SetActiveSubscriptions(_ /* count */ int) {}

// ConnectionMetrics implementation

// ObserveFlushLatency discards the flush latency metric.
func (n *NopMetrics) ObserveFlushLatency(_ /* seconds */ float64) {}

// RecordAsyncError discards the async error metric.
func (n *NopMetrics) RecordAsyncError() {}
