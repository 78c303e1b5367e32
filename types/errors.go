package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the subflow library.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// All components should use these sentinel errors for known error conditions
// and wrap external errors with context using fmt.Errorf("%s: %w", msg, err).

// Subscription errors - returned by Subscription operations.
var (
	// ErrBadSubscription is returned for any operation on a closed subscription.
	ErrBadSubscription = errors.New("invalid subscription")

	// ErrTimeout is returned when NextMsg waited the full timeout without a message.
	ErrTimeout = errors.New("timeout")

	// ErrSlowConsumer is returned when messages were dropped because a
	// subscription exceeded its pending limits.
	ErrSlowConsumer = errors.New("slow consumer, messages dropped")

	// ErrMaxMessages is returned by NextMsg once the auto-unsubscribe limit
	// has been delivered.
	ErrMaxMessages = errors.New("maximum messages delivered")

	// ErrSyncSubRequired is returned when NextMsg is called on an async subscription.
	ErrSyncSubRequired = errors.New("illegal call on an async subscription")

	// ErrAsyncSubRequired is returned when Start is called on a sync subscription.
	ErrAsyncSubRequired = errors.New("illegal call on a sync subscription")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("subscription already started")

	// ErrHandlerRequired is returned when an async subscription has no handler.
	ErrHandlerRequired = errors.New("message handler is required")

	// ErrHandlerFailed wraps errors and panics raised by message handlers.
	ErrHandlerFailed = errors.New("message handler failed")

	// ErrInvalidArg is returned for invalid limits or arguments.
	ErrInvalidArg = errors.New("invalid argument")

	// ErrBadSubject is returned for empty or malformed subjects.
	ErrBadSubject = errors.New("invalid subject")

	// ErrNoReply is returned by Msg.Respond when the message carries no reply subject.
	ErrNoReply = errors.New("message does not have a reply subject")
)

// Connection errors - returned by Conn and Registry.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNATSConnectionRequired is returned when the NATS connection is nil.
	ErrNATSConnectionRequired = errors.New("NATS connection is required")

	// ErrConnectionClosed is returned for operations on a closed connection and
	// used as the close reason of every subscription it owned.
	ErrConnectionClosed = errors.New("connection closed")
)

// SlowConsumerError describes a slow-consumer episode of a single subscription.
//
// It matches ErrSlowConsumer with errors.Is.
type SlowConsumerError struct {
	SID     int64
	Subject string

	// Dropped is the subscription's dropped counter when the episode was detected.
	Dropped int
}

// Error implements error.
func (e *SlowConsumerError) Error() string {
	return fmt.Sprintf("%s on subscription %d (subject %q, dropped %d)",
		ErrSlowConsumer.Error(), e.SID, e.Subject, e.Dropped)
}

// Is reports whether target is ErrSlowConsumer.
func (e *SlowConsumerError) Is(target error) bool {
	return target == ErrSlowConsumer
}
