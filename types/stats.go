package types

// Stats is a point-in-time snapshot of a subscription's buffer and counters.
//
// The snapshot is taken atomically, so Delivered + Dropped + PendingMsgs always
// equals the number of messages matched against the subscription.
type Stats struct {
	// PendingMsgs is the number of buffered messages not yet handed to the consumer.
	PendingMsgs int

	// PendingBytes is the sum of payload sizes of the buffered messages.
	PendingBytes int

	// MaxPendingMsgs is the highest PendingMsgs value observed since creation
	// or the last ClearMaxPending call.
	MaxPendingMsgs int

	// MaxPendingBytes is the highest PendingBytes value observed since creation
	// or the last ClearMaxPending call.
	MaxPendingBytes int

	// Delivered counts messages handed to the consumer.
	Delivered int64

	// Dropped counts messages rejected by the pending limits.
	Dropped int

	// MsgLimit and BytesLimit are the active pending limits (negative = unlimited).
	MsgLimit   int
	BytesLimit int
}

// Matched returns the number of messages matched against the subscription.
func (s Stats) Matched() int64 {
	return s.Delivered + int64(s.Dropped) + int64(s.PendingMsgs)
}
