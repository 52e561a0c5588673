package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/config"
	"github.com/nerrad567/ttn-relay/internal/infrastructure/logging"
)

// messageBuffer is the capacity of the channel between the session's
// forwarder and the consumer. Messages beyond it wait in the pending queue.
const messageBuffer = 16

// subackFailure is the granted QoS value a broker returns for a refused filter.
const subackFailure = 0x80

// PahoDialer opens sessions with eclipse/paho.mqtt.golang.
// Each Dial creates a fresh client.
type PahoDialer struct {
	cfg       config.MQTTConfig
	keepAlive time.Duration
	logger    *logging.Logger
}

// NewPahoDialer returns a Dialer for the configured broker.
func NewPahoDialer(cfg config.MQTTConfig, keepAlive time.Duration, logger *logging.Logger) *PahoDialer {
	return &PahoDialer{cfg: cfg, keepAlive: keepAlive, logger: logger}
}

// Dial connects to the broker and returns the live session.
func (d *PahoDialer) Dial(ctx context.Context) (Session, error) {
	s := newPahoSession(d.logger)

	opts := buildClientOptions(d.cfg, d.keepAlive)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		s.fail(fmt.Errorf("%w: %w", ErrConnectionLost, err))
	})
	// The broker resends unacknowledged messages of the persistent session
	// right after CONNACK, before any SUBSCRIBE has registered a route.
	opts.SetDefaultPublishHandler(s.handle)

	s.client = pahomqtt.NewClient(opts)
	if err := waitToken(ctx, s.client.Connect(), defaultConnectTimeout); err != nil {
		s.client.Disconnect(0)
		s.fail(err)
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, brokerURL(d.cfg), err)
	}
	return s, nil
}

// waitToken waits for a paho token, a timeout or ctx, whichever comes first.
func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pahoSession hands messages from paho's router to the consumer.
//
// The router runs handlers inline (ordered delivery) and also reads
// PINGRESP, so handle only appends to an unbounded pending queue and
// returns. forward moves pending messages to msgs at the consumer's pace.
// The queue is bounded in practice by the broker's in-flight window,
// since nothing is acknowledged before the consumer calls Ack.
type pahoSession struct {
	client pahomqtt.Client
	msgs   chan Message
	done   chan struct{}
	logger *logging.Logger

	once sync.Once
	mu   sync.Mutex
	err  error

	qmu     sync.Mutex
	pending []Message
	notify  chan struct{}
}

func newPahoSession(logger *logging.Logger) *pahoSession {
	s := &pahoSession{
		msgs:   make(chan Message, messageBuffer),
		done:   make(chan struct{}),
		notify: make(chan struct{}, 1),
		logger: logger,
	}
	go s.forward()
	return s
}

func (s *pahoSession) Subscribe(filters []string, qos byte) error {
	if qos > maxQoS {
		return fmt.Errorf("%w: invalid QoS %d", ErrSubscribeFailed, qos)
	}

	want := make(map[string]byte, len(filters))
	for _, f := range filters {
		want[f] = qos
	}

	token := s.client.SubscribeMultiple(want, s.handle)
	if !token.WaitTimeout(defaultAckTimeout) {
		return fmt.Errorf("%w: %w after %v", ErrSubscribeFailed, ErrTimeout, defaultAckTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	if st, ok := token.(*pahomqtt.SubscribeToken); ok {
		for filter, granted := range st.Result() {
			if granted == subackFailure {
				return fmt.Errorf("%w: broker refused %s", ErrSubscribeFailed, filter)
			}
		}
	}
	return nil
}

func (s *pahoSession) Unsubscribe(filters ...string) error {
	token := s.client.Unsubscribe(filters...)
	if !token.WaitTimeout(defaultAckTimeout) {
		return fmt.Errorf("%w: %w after %v", ErrUnsubscribeFailed, ErrTimeout, defaultAckTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}
	return nil
}

func (s *pahoSession) Messages() <-chan Message {
	return s.msgs
}

func (s *pahoSession) Done() <-chan struct{} {
	return s.done
}

func (s *pahoSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *pahoSession) Close() {
	s.client.Disconnect(defaultDisconnectQuiesce)
	s.fail(ErrClosed)
}

// fail records the first reason and closes done.
func (s *pahoSession) fail(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}

// handle queues msg for the consumer without blocking, with panic recovery.
func (s *pahoSession) handle(_ pahomqtt.Client, msg pahomqtt.Message) {
	defer func() {
		if r := recover(); r != nil && s.logger != nil {
			s.logger.Error("MQTT handler panic recovered",
				"topic", msg.Topic(),
				"panic", r,
			)
		}
	}()

	s.enqueue(NewMessage(msg.Topic(), msg.Payload(), msg.Ack))
}

func (s *pahoSession) enqueue(m Message) {
	s.qmu.Lock()
	s.pending = append(s.pending, m)
	s.qmu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// next pops the oldest pending message.
func (s *pahoSession) next() (Message, bool) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	if len(s.pending) == 0 {
		return Message{}, false
	}
	m := s.pending[0]
	s.pending[0] = Message{}
	s.pending = s.pending[1:]
	return m, true
}

// forward runs until done is closed. Messages still pending then are
// never acknowledged and the broker redelivers them on the next session.
func (s *pahoSession) forward() {
	for {
		select {
		case <-s.notify:
		case <-s.done:
			return
		}
		for {
			m, ok := s.next()
			if !ok {
				break
			}
			select {
			case s.msgs <- m:
			case <-s.done:
				return
			}
		}
	}
}
