package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// Methods are called from the inbound reader, dispatcher goroutines and
// caller goroutines concurrently and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	SubscriptionMetrics
	ConnectionMetrics
}

// SubscriptionMetrics defines metrics for per-subscription delivery.
type SubscriptionMetrics interface {
	// RecordDelivered records a message handed to a consumer.
	//
	// Parameters:
	//   - mode: Delivery mode of the subscription
	RecordDelivered(mode Mode)

	// RecordDropped records a message rejected by pending limits.
	//
	// Parameters:
	//   - mode: Delivery mode of the subscription
	RecordDropped(mode Mode)

	// RecordSlowConsumer records the start of a slow-consumer episode.
	RecordSlowConsumer()

	// RecordHandlerFailure records an error or panic raised by an async handler.
	RecordHandlerFailure()

	// RecordSubscriptionClosed records a subscription leaving the active state.
	//
	// Parameters:
	//   - reason: "unsubscribe", "auto_unsubscribe", "drain" or "connection_closed"
	RecordSubscriptionClosed(reason string)

	// SetActiveSubscriptions sets the current number of active subscriptions (gauge metric).
	SetActiveSubscriptions(count int)
}

// ConnectionMetrics defines metrics for the connection adapter.
type ConnectionMetrics interface {
	// ObserveFlushLatency records the duration of a flush round-trip in seconds.
	ObserveFlushLatency(seconds float64)

	// RecordAsyncError records an error delivered to the asynchronous error handler.
	RecordAsyncError()
}
