package subflow

import "github.com/nats-io/nats.go"

// Msg is a message delivered to a subscription.
type Msg struct {
	// Subject is the subject the message was published on.
	Subject string

	// Reply is the reply subject, empty when no response is expected.
	Reply string

	// Header holds the message headers, nil when the message has none.
	Header nats.Header

	// Data is the message payload. Its length is the message size used by
	// the pending byte limits.
	Data []byte

	// Sub is the subscription the message was delivered to.
	Sub *Subscription

	conn *Conn
}

// NewMsg creates a message for subject. It is mainly useful with
// Registry.Route when no Conn is involved.
func NewMsg(subject string, data []byte) *Msg {
	return &Msg{Subject: subject, Data: data}
}

// Size returns the payload size accounted against pending byte limits.
func (m *Msg) Size() int {
	return len(m.Data)
}

// Respond publishes data to the message's reply subject.
//
// Returns:
//   - error: ErrNoReply without a reply subject, ErrConnectionClosed when the
//     message did not arrive through a Conn or the Conn is closed
func (m *Msg) Respond(data []byte) error {
	if m.Reply == "" {
		return ErrNoReply
	}
	if m.conn == nil {
		return ErrConnectionClosed
	}

	return m.conn.Publish(m.Reply, data)
}

// msgSize is the pending buffer size function.
func msgSize(m *Msg) int {
	return len(m.Data)
}
