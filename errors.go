package subflow

import "github.com/arloliu/subflow/types"

// Sentinel errors returned by subscriptions.
//
// They are defined in the types package so internal packages can return them
// without importing subflow; compare with errors.Is.
var (
	// ErrBadSubscription is returned for any operation on a closed subscription.
	ErrBadSubscription = types.ErrBadSubscription

	// ErrTimeout is returned when NextMsg or Flush ran out of time.
	ErrTimeout = types.ErrTimeout

	// ErrSlowConsumer is matched by every slow-consumer error, including *SlowConsumerError.
	ErrSlowConsumer = types.ErrSlowConsumer

	// ErrMaxMessages is returned by NextMsg after the auto-unsubscribe limit was delivered.
	ErrMaxMessages = types.ErrMaxMessages

	// ErrSyncSubRequired is returned when NextMsg is called on an async subscription.
	ErrSyncSubRequired = types.ErrSyncSubRequired

	// ErrAsyncSubRequired is returned when Start is called on a sync subscription.
	ErrAsyncSubRequired = types.ErrAsyncSubRequired

	// ErrAlreadyStarted is returned when Start is called on a running subscription.
	ErrAlreadyStarted = types.ErrAlreadyStarted

	// ErrHandlerRequired is returned when an async subscription is created without a handler.
	ErrHandlerRequired = types.ErrHandlerRequired

	// ErrHandlerFailed wraps errors and panics raised by message handlers.
	ErrHandlerFailed = types.ErrHandlerFailed

	// ErrInvalidArg is returned for invalid limits or arguments.
	ErrInvalidArg = types.ErrInvalidArg

	// ErrBadSubject is returned for empty or malformed subjects.
	ErrBadSubject = types.ErrBadSubject

	// ErrNoReply is returned by Msg.Respond when the message has no reply subject.
	ErrNoReply = types.ErrNoReply
)

// Sentinel errors returned by Conn and Registry.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrNATSConnectionRequired is returned when NATS connection is nil.
	ErrNATSConnectionRequired = types.ErrNATSConnectionRequired

	// ErrConnectionClosed is returned for operations on a closed connection.
	ErrConnectionClosed = types.ErrConnectionClosed
)
