package mqtt

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/logging"
)

// DefaultReconnectDelay is the wait between connection attempts.
const DefaultReconnectDelay = 5 * time.Second

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Topics         Topics
	QoS            byte
	ReconnectDelay time.Duration
}

// Manager keeps one subscribed TTN session alive and hands out uplink
// messages to a single consumer.
//
// Connection failures are never fatal. After a failed attempt or a lost
// connection the Manager waits ReconnectDelay and tries again, forever,
// until the context passed to Start or Next is cancelled.
//
// Next must be called from one goroutine only. State and Close are safe
// for concurrent use.
type Manager struct {
	dialer Dialer
	cfg    ManagerConfig
	logger *logging.Logger
	after  func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	state   State
	session Session
}

// NewManager creates a Manager in StateDisconnected. Nothing is dialled
// until Start or Next.
func NewManager(dialer Dialer, cfg ManagerConfig, logger *logging.Logger) *Manager {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	return &Manager{
		dialer: dialer,
		cfg:    cfg,
		logger: logger,
		after:  time.After,
		state:  StateDisconnected,
	}
}

// SetClock replaces time.After for the reconnect wait.
func (m *Manager) SetClock(after func(time.Duration) <-chan time.Time) {
	m.after = after
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// setState moves to s unless the Manager is shutting down.
func (m *Manager) setState(s State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateShuttingDown {
		return false
	}
	m.state = s
	return true
}

func (m *Manager) current() (Session, State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.state
}

// Start connects and subscribes, retrying until it succeeds. It only
// returns an error when ctx is cancelled or the Manager was closed.
func (m *Manager) Start(ctx context.Context) error {
	return m.establish(ctx, false)
}

// Next blocks until an uplink message arrives.
//
// Activation messages are logged and skipped. A lost connection is
// re-established transparently. Next returns ctx.Err() when ctx is
// cancelled and ErrClosed after Close.
func (m *Manager) Next(ctx context.Context) (Message, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}

		sess, state := m.current()
		if state == StateShuttingDown {
			return Message{}, ErrClosed
		}
		if sess == nil {
			if err := m.establish(ctx, state == StateReconnecting); err != nil {
				return Message{}, err
			}
			continue
		}

		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()

		case msg := <-sess.Messages():
			if m.accept(msg) {
				return msg, nil
			}

		case <-sess.Done():
			// Deliver anything queued before the connection dropped.
			select {
			case msg := <-sess.Messages():
				if m.accept(msg) {
					return msg, nil
				}
				continue
			default:
			}
			m.lost(sess)
		}
	}
}

// accept counts msg and reports whether it is an uplink. Skipped
// messages are acknowledged here; uplinks are acknowledged by the caller
// of Next.
func (m *Manager) accept(msg Message) bool {
	kind := ClassifyTopic(msg.Topic)
	messageCounter(kind).Inc()

	switch kind {
	case KindUplink:
		return true
	case KindActivation:
		device, _ := DeviceIDFromTopic(msg.Topic)
		m.logger.Info("activation received, ignoring", "topic", msg.Topic, "device_id", device)
	default:
		m.logger.Debug("message on unexpected topic, ignoring", "topic", msg.Topic)
	}
	msg.Ack()
	return false
}

// establish dials and subscribes until it succeeds. With wait set, the
// reconnect delay runs before the first attempt.
func (m *Manager) establish(ctx context.Context, wait bool) error {
	delay := m.cfg.ReconnectDelay
	for {
		if wait {
			if !m.setState(StateReconnecting) {
				return ErrClosed
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-m.after(delay):
			}
		}
		wait = true

		if !m.setState(StateConnecting) {
			return ErrClosed
		}

		sess, err := m.connect(ctx)
		if err == nil {
			m.mu.Lock()
			if m.state == StateShuttingDown {
				m.mu.Unlock()
				sess.Close()
				return ErrClosed
			}
			m.session = sess
			m.state = StateSubscribed
			m.mu.Unlock()

			connectCount.Inc()
			subscribedGauge.Set(1)
			m.logger.Info("subscribed to TTN broker", "topics", m.cfg.Topics.Subscriptions())
			return nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		connectErrorCount.Inc()
		m.logger.Warn("TTN broker connection failed, will retry",
			"error", err,
			"retry_in", delay,
		)
	}
}

func (m *Manager) connect(ctx context.Context) (Session, error) {
	sess, err := m.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if err := sess.Subscribe(m.cfg.Topics.Subscriptions(), m.cfg.QoS); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

// lost drops a session whose connection ended.
func (m *Manager) lost(sess Session) {
	m.mu.Lock()
	owned := m.session == sess
	if owned {
		m.session = nil
		m.state = StateReconnecting
	}
	m.mu.Unlock()

	if !owned {
		// Close already took it.
		return
	}

	sess.Close()
	connectionLostCount.Inc()
	subscribedGauge.Set(0)
	m.logger.Warn("TTN broker connection lost, reconnecting",
		"error", sess.Err(),
		"retry_in", m.cfg.ReconnectDelay,
	)
}

// Close unsubscribes and disconnects if connected. It is a no-op
// otherwise. The Manager ends in StateShuttingDown either way.
func (m *Manager) Close() error {
	m.mu.Lock()
	sess := m.session
	m.session = nil
	m.state = StateShuttingDown
	m.mu.Unlock()

	if sess == nil {
		return nil
	}

	subscribedGauge.Set(0)
	err := sess.Unsubscribe(m.cfg.Topics.Subscriptions()...)
	if err != nil {
		m.logger.Warn("unsubscribe failed during shutdown", "error", err)
	}
	sess.Close()
	m.logger.Info("disconnected from TTN broker")
	return err
}
