//go:build integration

package mqtt

import (
	"context"
	"fmt"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/ttn-relay/internal/infrastructure/config"
	"github.com/nerrad567/ttn-relay/internal/infrastructure/logging"
)

// Integration tests against a real broker.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
	}
}

func dialOrSkip(t *testing.T, clientID string) Session {
	t.Helper()
	return dialKeepAliveOrSkip(t, clientID, 0)
}

func dialKeepAliveOrSkip(t *testing.T, clientID string, keepAlive time.Duration) Session {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	sess, err := NewPahoDialer(integrationConfig(clientID), keepAlive, logging.Discard()).Dial(ctx)
	if err != nil {
		t.Skipf("no MQTT broker at 127.0.0.1:1883: %v", err)
	}
	return sess
}

func publish(t *testing.T, topic string, payload []byte) {
	t.Helper()
	opts := buildClientOptions(integrationConfig("ttn-relay-int-pub"), 0)
	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	require.True(t, token.WaitTimeout(3*time.Second))
	require.NoError(t, token.Error())
	defer client.Disconnect(100)

	token = client.Publish(topic, 1, false, payload)
	require.True(t, token.WaitTimeout(3*time.Second))
	require.NoError(t, token.Error())
}

func TestIntegration_SessionRoundtrip(t *testing.T) {
	sess := dialOrSkip(t, "ttn-relay-int-session")
	defer sess.Close()

	topics := NewTopics("int-test")
	require.NoError(t, sess.Subscribe(topics.Subscriptions(), 1))

	publish(t, topics.DeviceUplink("dev-1"), []byte(`{"uplink_message":{}}`))

	select {
	case msg := <-sess.Messages():
		assert.Equal(t, "v3/int-test/devices/dev-1/up", msg.Topic)
		assert.JSONEq(t, `{"uplink_message":{}}`, string(msg.Payload))
		msg.Ack()
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	require.NoError(t, sess.Unsubscribe(topics.Subscriptions()...))
	sess.Close()

	select {
	case <-sess.Done():
		assert.ErrorIs(t, sess.Err(), ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Close")
	}
}

func TestIntegration_ManagerSkipsActivations(t *testing.T) {
	check := dialOrSkip(t, "ttn-relay-int-check")
	check.Close()

	cfg := integrationConfig("ttn-relay-int-manager")
	topics := NewTopics("int-manager")
	m := NewManager(NewPahoDialer(cfg, 0, logging.Discard()), ManagerConfig{
		Topics:         topics,
		QoS:            1,
		ReconnectDelay: time.Second,
	}, logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, m.Start(ctx))
	defer m.Close()

	publish(t, "v3/int-manager/devices/dev-2/activations", []byte(`{"join_accept":{}}`))
	publish(t, topics.DeviceUplink("dev-2"), []byte(`{"uplink_message":{"f_port":1}}`))

	msg, err := m.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v3/int-manager/devices/dev-2/up", msg.Topic)

	require.NoError(t, m.Close())
	assert.Equal(t, StateShuttingDown, m.State())
}

func TestIntegration_StalledConsumerKeepsConnection(t *testing.T) {
	const (
		keepAlive = time.Second
		uplinks   = 40
	)
	sess := dialKeepAliveOrSkip(t, "ttn-relay-int-stall", keepAlive)
	defer sess.Close()

	topics := NewTopics("int-stall")
	require.NoError(t, sess.Subscribe(topics.Subscriptions(), 1))

	for i := 0; i < uplinks; i++ {
		publish(t, topics.DeviceUplink("dev-3"), []byte(fmt.Sprintf(`{"n":%d}`, i)))
	}

	// Nobody reads for several keepalive periods.
	time.Sleep(4 * keepAlive)
	select {
	case <-sess.Done():
		t.Fatalf("connection dropped while the consumer stalled: %v", sess.Err())
	default:
	}

	for i := 0; i < uplinks; i++ {
		select {
		case msg := <-sess.Messages():
			assert.JSONEq(t, fmt.Sprintf(`{"n":%d}`, i), string(msg.Payload))
			msg.Ack()
		case <-sess.Done():
			t.Fatalf("connection lost after %d of %d uplinks: %v", i, uplinks, sess.Err())
		case <-time.After(5 * time.Second):
			t.Fatalf("received %d of %d uplinks", i, uplinks)
		}
	}
	require.NoError(t, sess.Unsubscribe(topics.Subscriptions()...))
}

func TestIntegration_UnackedUplinkRedelivered(t *testing.T) {
	const clientID = "ttn-relay-int-redeliver"
	topics := NewTopics("int-redeliver")

	first := dialOrSkip(t, clientID)
	require.NoError(t, first.Subscribe(topics.Subscriptions(), 1))
	publish(t, topics.DeviceUplink("dev-4"), []byte(`{"n":1}`))

	select {
	case msg := <-first.Messages():
		assert.JSONEq(t, `{"n":1}`, string(msg.Payload))
		// Not acknowledged: the sinks never finished.
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message")
	}
	first.Close()

	second := dialOrSkip(t, clientID)
	defer second.Close()
	require.NoError(t, second.Subscribe(topics.Subscriptions(), 1))

	select {
	case msg := <-second.Messages():
		assert.JSONEq(t, `{"n":1}`, string(msg.Payload))
		msg.Ack()
	case <-time.After(5 * time.Second):
		t.Fatal("unacknowledged uplink was not redelivered")
	}

	require.NoError(t, second.Unsubscribe(topics.Subscriptions()...))
}
