package gateway

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timgluz/luftspiegel/decoder"
	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/task"
)

const (
	df5Frame      = "0512FC5394C37C0004FFFC040CAC364200CDCBB8334C884F"
	advertisement = "0201061BFF9904" + df5Frame
	topic         = "ruuvi/AA:AA:AA:AA:AA:AA/CB:B8:33:4C:88:4F"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExtractManufacturerData(t *testing.T) {
	raw, err := hex.DecodeString(advertisement)
	require.NoError(t, err)

	expected, err := hex.DecodeString(df5Frame)
	require.NoError(t, err)

	frame, err := ExtractManufacturerData(raw)
	require.NoError(t, err)
	assert.Equal(t, expected, frame)
}

func TestExtractManufacturerDataPadsShortPayload(t *testing.T) {
	frame, err := ExtractManufacturerData([]byte{0x06, 0xFF, 0x99, 0x04, 0x03, 0x29, 0x1A})
	require.NoError(t, err)

	require.Len(t, frame, decoder.FrameLength)
	assert.Equal(t, []byte{0x03, 0x29, 0x1A, 0x00}, frame[:4])
}

func TestExtractManufacturerDataErrors(t *testing.T) {
	testCases := []struct {
		name     string
		raw      []byte
		expected error
	}{
		{name: "other vendor", raw: []byte{0x02, 0x01, 0x06, 0x05, 0xFF, 0x4C, 0x00, 0x01, 0x02}, expected: ErrNoManufacturerData},
		{name: "empty", raw: nil, expected: ErrNoManufacturerData},
		{name: "overrun", raw: []byte{0x02, 0x01, 0x06, 0x1B, 0xFF, 0x99, 0x04}, expected: ErrMalformedAdvertisement},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExtractManufacturerData(tc.raw)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestParseMessage(t *testing.T) {
	payload := []byte(`{"gw_mac":"AA:AA:AA:AA:AA:AA","rssi":-62,"ts":"1700000000","data":"` + advertisement + `"}`)

	adv, err := ParseMessage(topic, payload)
	require.NoError(t, err)

	assert.Equal(t, "CB:B8:33:4C:88:4F", adv.Address)
	assert.Equal(t, "Ruuvi 884F", adv.Name)
	assert.Equal(t, measurement.Epoch(1700000000), adv.ReceivedAt)
	assert.Len(t, adv.Data, decoder.FrameLength)
}

func TestParseMessagePrefersMACField(t *testing.T) {
	payload := []byte(`{"gw_mac":"AA:AA:AA:AA:AA:AA","ts":1700000000,"mac":"11:22:33:44:55:66","data":"` + advertisement + `"}`)

	adv, err := ParseMessage("ruuvi/gateway", payload)
	require.NoError(t, err)
	assert.Equal(t, "11:22:33:44:55:66", adv.Address)
	assert.Equal(t, measurement.Epoch(1700000000), adv.ReceivedAt)
}

func TestParseMessageErrors(t *testing.T) {
	_, err := ParseMessage(topic, []byte(`{"data":`))
	assert.Error(t, err)

	_, err = ParseMessage("ruuvi/gateway/not-a-mac", []byte(`{"data":"`+advertisement+`"}`))
	assert.ErrorIs(t, err, measurement.ErrInvalidAddress)

	_, err = ParseMessage(topic, []byte(`{"data":"zz"}`))
	assert.ErrorIs(t, err, ErrMalformedAdvertisement)
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeCollector struct {
	mu   sync.Mutex
	seen []task.Advertisement
	err  error
}

func (c *fakeCollector) Collect(_ context.Context, adv task.Advertisement) (*measurement.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seen = append(c.seen, adv)
	if c.err != nil {
		return nil, c.err
	}
	return measurement.NewSnapshot(adv.Address, adv.ReceivedAt, measurement.FormatDF5), nil
}

func (c *fakeCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func TestHandleMessage(t *testing.T) {
	collector := &fakeCollector{}
	sub := NewSubscriber(nil, collector, discardLogger())

	err := sub.HandleMessage(context.Background(), fakeMessage{
		topic:   topic,
		payload: []byte(`{"ts":"5","data":"` + advertisement + `"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, collector.count())

	err = sub.HandleMessage(context.Background(), fakeMessage{
		topic:   topic,
		payload: []byte(`{"ts":"5","data":"0201060303AAFE"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, collector.count())
}

func TestHandleMessageCollectorErrors(t *testing.T) {
	collector := &fakeCollector{err: &decoder.UnsupportedFormatError{Format: 3}}
	sub := NewSubscriber(nil, collector, discardLogger())
	msg := fakeMessage{topic: topic, payload: []byte(`{"data":"` + advertisement + `"}`)}

	assert.NoError(t, sub.HandleMessage(context.Background(), msg))

	collector.err = errors.New("store down")
	assert.EqualError(t, sub.HandleMessage(context.Background(), msg), "store down")
}

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeClient struct {
	mqtt.Client

	mu           sync.Mutex
	handler      mqtt.MessageHandler
	subscribed   chan struct{}
	unsubscribed bool
	disconnected bool
	subscribeErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{subscribed: make(chan struct{})}
}

func (c *fakeClient) Subscribe(_ string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	c.handler = callback
	c.mu.Unlock()
	if c.subscribeErr == nil {
		close(c.subscribed)
	}
	return doneToken{err: c.subscribeErr}
}

func (c *fakeClient) Unsubscribe(...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unsubscribed = true
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func TestSubscriberRun(t *testing.T) {
	client := newFakeClient()
	collector := &fakeCollector{}
	sub := NewSubscriber(client, collector, discardLogger()).WithTopic("ruuvi/+/+", 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	select {
	case <-client.subscribed:
	case <-time.After(time.Second):
		t.Fatal("subscriber did not subscribe")
	}

	client.mu.Lock()
	handler := client.handler
	client.mu.Unlock()
	handler(client, fakeMessage{topic: topic, payload: []byte(`{"data":"` + advertisement + `"}`)})
	assert.Equal(t, 1, collector.count())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not stop")
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.True(t, client.unsubscribed)
	assert.True(t, client.disconnected)
}

func TestSubscriberRunSubscribeError(t *testing.T) {
	client := newFakeClient()
	client.subscribeErr = errors.New("not authorized")

	err := NewSubscriber(client, &fakeCollector{}, discardLogger()).Run(context.Background())
	assert.ErrorContains(t, err, "not authorized")
}

func TestNewClientOptions(t *testing.T) {
	opts := NewClientOptions(ClientConfig{Broker: "tcp://localhost:1883"})

	assert.Equal(t, DefaultClientID, opts.ClientID)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "localhost:1883", opts.Servers[0].Host)
	assert.True(t, opts.AutoReconnect)
}
