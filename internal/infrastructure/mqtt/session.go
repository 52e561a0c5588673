package mqtt

import "context"

// Message is one received MQTT publication.
//
// The broker redelivers a QoS 1 or 2 message until it is acknowledged,
// so consumers call Ack once the message has been fully handled.
type Message struct {
	Topic   string
	Payload []byte

	ack func()
}

// NewMessage returns a Message whose Ack calls ack. ack may be nil.
func NewMessage(topic string, payload []byte, ack func()) Message {
	return Message{Topic: topic, Payload: payload, ack: ack}
}

// Ack acknowledges the message to the broker. It is safe to call on a
// zero Message and after the session has gone away.
func (m Message) Ack() {
	if m.ack != nil {
		m.ack()
	}
}

// Session is one live broker connection.
type Session interface {
	// Subscribe subscribes to all filters at qos and waits for the broker's ack.
	Subscribe(filters []string, qos byte) error

	// Unsubscribe removes subscriptions and waits for the broker's ack.
	Unsubscribe(filters ...string) error

	// Messages delivers publications in arrival order. The session never
	// acknowledges on its own; unacknowledged messages hold the broker's
	// in-flight window.
	Messages() <-chan Message

	// Done is closed when the connection is lost.
	Done() <-chan struct{}

	// Err returns why Done was closed.
	Err() error

	// Close disconnects. Done is closed afterwards.
	Close()
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Session, error)

// Dial calls f(ctx).
func (f DialerFunc) Dial(ctx context.Context) (Session, error) {
	return f(ctx)
}
