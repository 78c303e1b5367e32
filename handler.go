package subflow

import "context"

// MessageHandler processes messages of an async subscription.
//
// Behavior summary:
//   - The dispatcher calls Handle once per message, in arrival order, and never
//     calls it concurrently for the same subscription.
//   - The message counts as delivered when Handle is called, not when it returns.
//   - A non-nil error, or a panic, is reported to the connection's error
//     handler wrapped in ErrHandlerFailed. Delivery continues with the next message.
//
// Backpressure:
//   - While Handle blocks, new messages accumulate in the pending buffer up to
//     the subscription's limits and are dropped beyond them. The inbound reader
//     and other subscriptions are never stalled.
//
// Parameters:
//   - ctx: Cancelled when the subscription closes
//   - msg: The message to process
//
// Returns:
//   - error: nil on success; non-nil is reported asynchronously
//
// Example:
//
//	var h subflow.MessageHandler = subflow.MessageHandlerFunc(func(ctx context.Context, msg *subflow.Msg) error {
//	    return store.Save(ctx, msg.Data)
//	})
type MessageHandler interface {
	// Handle processes a single message.
	Handle(ctx context.Context, msg *Msg) error
}

// MessageHandlerFunc is a function adapter for MessageHandler.
type MessageHandlerFunc func(ctx context.Context, msg *Msg) error

// Handle implements MessageHandler interface.
func (f MessageHandlerFunc) Handle(ctx context.Context, msg *Msg) error { return f(ctx, msg) }
