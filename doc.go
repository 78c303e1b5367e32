// Package subflow provides the subscription core of a NATS client: sync and
// async consumers with per-subscription flow control, slow-consumer
// detection, auto-unsubscribe and pending statistics.
//
// Every subscription owns a pending buffer fed by a single inbound reader.
// Admission against the subscription's message and byte limits happens on the
// reader; a message that would exceed a limit is dropped and counted, and the
// subscription enters a slow-consumer episode. Sync subscriptions are drained
// by callers of NextMsg. Async subscriptions are drained by one dedicated
// dispatcher goroutine each, so a slow handler only backs up its own buffer.
//
// # Quick Start
//
//	conn, err := subflow.Connect(nats.DefaultURL, subflow.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	sub, err := conn.SubscribeSync("orders.created")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_ = sub.AutoUnsubscribe(10)
//
//	for {
//	    msg, err := sub.NextMsg(time.Second)
//	    if errors.Is(err, subflow.ErrMaxMessages) {
//	        break
//	    }
//	    ...
//	}
//
// # Async Delivery
//
//	sub, err := conn.Subscribe("orders.>", subflow.MessageHandlerFunc(
//	    func(ctx context.Context, msg *subflow.Msg) error {
//	        return process(ctx, msg.Data)
//	    }))
//
// Handler errors and panics are reported to the handler installed with
// WithErrorHandler, wrapped in ErrHandlerFailed.
//
// # Slow Consumers
//
// Drops surface in three places: the Dropped counter of the subscription,
// the next Flush on the connection (a *SlowConsumerError), and the error
// handler, which is called once per slow-consumer episode.
//
// # Lifecycle
//
// A subscription is Active until Unsubscribe, Drain, auto-unsubscribe
// completion or Conn.Close. Closing discards buffered messages, wakes blocked
// NextMsg callers and cancels the context passed to the async handler. Every
// accessor fails with ErrBadSubscription afterwards.
package subflow
