package mqtt

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/friendswall/friendswall-go/internal/logger"
	"github.com/friendswall/friendswall-go/internal/observability/metrics"
)

// fakeToken completes immediately with err unless hang is set.
type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error, hang bool) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	if !hang {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

// fakeBroker stands in for the paho client.
type fakeBroker struct {
	mu          sync.Mutex
	connected   bool
	connectErr  error
	publishErr  error
	hangPublish bool
	messages    []published
	opts        *paho.ClientOptions
}

func (f *fakeBroker) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}
func (f *fakeBroker) IsConnectionOpen() bool { return f.IsConnected() }
func (f *fakeBroker) Connect() paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = f.connectErr == nil
	return newToken(f.connectErr, false)
}
func (f *fakeBroker) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}
func (f *fakeBroker) Publish(topic string, qos byte, retained bool, payload any) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr == nil && !f.hangPublish {
		f.messages = append(f.messages, published{topic, qos, retained, payload.([]byte)})
	}
	return newToken(f.publishErr, f.hangPublish)
}
func (f *fakeBroker) Subscribe(string, byte, paho.MessageHandler) paho.Token {
	return newToken(nil, false)
}
func (f *fakeBroker) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return newToken(nil, false)
}
func (f *fakeBroker) Unsubscribe(...string) paho.Token        { return newToken(nil, false) }
func (f *fakeBroker) AddRoute(string, paho.MessageHandler)    {}
func (f *fakeBroker) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }

func (f *fakeBroker) sent() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.messages...)
}

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func createTestClient(t *testing.T, broker *fakeBroker, mutate func(*Config)) (*client, *metrics.MQTTMetrics) {
	t.Helper()

	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Broker = "tcp://127.0.0.1:1883"
	cfg.ReconnectCooldown = 0
	cfg.PublishTimeout = 200 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	c, err := NewClient(cfg, m, testLogger())
	require.NoError(t, err)

	impl := c.(*client)
	impl.newClient = func(opts *paho.ClientOptions) paho.Client {
		broker.opts = opts
		return broker
	}
	return impl, m
}

func TestNewClientRequiresBroker(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	_, err = NewClient(DefaultConfig(), m, testLogger())
	require.Error(t, err)
}

func TestClientGeneratesClientID(t *testing.T) {
	t.Parallel()

	broker := &fakeBroker{}
	c, _ := createTestClient(t, broker, nil)

	require.NoError(t, c.Connect(t.Context()))
	assert.Contains(t, broker.opts.ClientID, "friendswall-")
	assert.Equal(t, "friendswall", c.config.Topic)
}

func TestClientConnectPublishDisconnect(t *testing.T) {
	t.Parallel()

	broker := &fakeBroker{}
	c, m := createTestClient(t, broker, func(cfg *Config) {
		cfg.QoS = 2
		cfg.Retain = true
	})

	require.NoError(t, c.Connect(t.Context()))
	assert.True(t, c.IsConnected())
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.ConnectionStatus), 0)

	require.NoError(t, c.Publish(t.Context(), "friendswall/users/2/requests", []byte(`{}`)))

	msgs := broker.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "friendswall/users/2/requests", msgs[0].topic)
	assert.Equal(t, byte(2), msgs[0].qos)
	assert.True(t, msgs[0].retain)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.MessagesDelivered), 0)

	c.Disconnect()
	assert.False(t, c.IsConnected())
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.ConnectionStatus), 0)
}

func TestClientPublishWhileDisconnected(t *testing.T) {
	t.Parallel()

	c, m := createTestClient(t, &fakeBroker{}, nil)

	err := c.Publish(t.Context(), "friendswall/x", []byte("x"))
	require.Error(t, err)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Errors), 0)
}

func TestClientConnectFailure(t *testing.T) {
	t.Parallel()

	broker := &fakeBroker{connectErr: assert.AnError}
	c, m := createTestClient(t, broker, nil)

	err := c.Connect(t.Context())
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, c.IsConnected())
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Errors), 0)
}

func TestClientConnectCooldown(t *testing.T) {
	t.Parallel()

	c, _ := createTestClient(t, &fakeBroker{}, func(cfg *Config) {
		cfg.ReconnectCooldown = time.Hour
	})

	require.NoError(t, c.Connect(t.Context()))
	assert.Error(t, c.Connect(t.Context()), "second attempt within the cooldown is refused")
}

func TestClientInvalidBrokerURL(t *testing.T) {
	t.Parallel()

	c, _ := createTestClient(t, &fakeBroker{}, func(cfg *Config) {
		cfg.Broker = "://bad"
	})

	assert.Error(t, c.Connect(t.Context()))
}

func TestClientPublishTimeout(t *testing.T) {
	t.Parallel()

	broker := &fakeBroker{hangPublish: true}
	c, m := createTestClient(t, broker, func(cfg *Config) {
		cfg.PublishTimeout = 20 * time.Millisecond
	})
	require.NoError(t, c.Connect(t.Context()))

	err := c.Publish(t.Context(), "friendswall/x", []byte("x"))
	require.Error(t, err)
	assert.Empty(t, broker.sent())
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Errors), 0)
}

func TestClientPublishHonoursContext(t *testing.T) {
	t.Parallel()

	broker := &fakeBroker{hangPublish: true}
	c, _ := createTestClient(t, broker, func(cfg *Config) {
		cfg.PublishTimeout = time.Minute
	})
	require.NoError(t, c.Connect(t.Context()))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := c.Publish(ctx, "friendswall/x", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientConnectionLostUpdatesMetrics(t *testing.T) {
	t.Parallel()

	broker := &fakeBroker{}
	c, m := createTestClient(t, broker, nil)
	require.NoError(t, c.Connect(t.Context()))

	c.onConnectionLost(broker, assert.AnError)

	assert.InDelta(t, 0.0, testutil.ToFloat64(m.ConnectionStatus), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Errors), 0)
}
