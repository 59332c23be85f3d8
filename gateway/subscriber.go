package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/timgluz/luftspiegel/decoder"
	"github.com/timgluz/luftspiegel/measurement"
	"github.com/timgluz/luftspiegel/task"
)

const (
	DefaultTopic    = "ruuvi/#"
	DefaultClientID = "luftspiegel"
	DefaultQoS      = byte(0)

	disconnectQuiesce = 250 // milliseconds
	subscribeTimeout  = 10 * time.Second
)

// Collector consumes decoded gateway advertisements.
type Collector interface {
	Collect(ctx context.Context, adv task.Advertisement) (*measurement.Snapshot, error)
}

type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// NewClientOptions returns paho options for a reconnecting MQTT 3.1.1 client.
func NewClientOptions(cfg ClientConfig) *mqtt.ClientOptions {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOrderMatters(false)
	return opts
}

type Subscriber struct {
	client    mqtt.Client
	collector Collector
	topic     string
	qos       byte
	logger    *slog.Logger
}

func NewSubscriber(client mqtt.Client, collector Collector, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		client:    client,
		collector: collector,
		topic:     DefaultTopic,
		qos:       DefaultQoS,
		logger:    logger,
	}
}

func (s *Subscriber) WithTopic(topic string, qos byte) *Subscriber {
	s.topic = topic
	s.qos = qos
	return s
}

// Run subscribes to the gateway topic and forwards messages to the collector until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	token := s.client.Subscribe(s.topic, s.qos, func(_ mqtt.Client, msg mqtt.Message) {
		if err := s.HandleMessage(ctx, msg); err != nil {
			s.logger.Warn("Failed to handle gateway message", "topic", msg.Topic(), "error", err)
		}
	})
	if err := waitToken(token, subscribeTimeout); err != nil {
		s.logger.Error("Failed to subscribe", "topic", s.topic, "error", err)
		return fmt.Errorf("failed to subscribe to %s: %w", s.topic, err)
	}
	s.logger.Info("Subscribed to gateway topic", "topic", s.topic, "qos", s.qos)

	<-ctx.Done()

	if err := waitToken(s.client.Unsubscribe(s.topic), subscribeTimeout); err != nil {
		s.logger.Warn("Failed to unsubscribe", "topic", s.topic, "error", err)
	}
	s.client.Disconnect(disconnectQuiesce)
	s.logger.Info("Gateway subscriber stopped", "topic", s.topic)
	return nil
}

// HandleMessage parses one gateway message and hands it to the collector. Advertisements of
// other vendors are dropped silently.
func (s *Subscriber) HandleMessage(ctx context.Context, msg mqtt.Message) error {
	adv, err := ParseMessage(msg.Topic(), msg.Payload())
	if errors.Is(err, ErrNoManufacturerData) {
		s.logger.Debug("Ignoring non-Ruuvi advertisement", "topic", msg.Topic())
		return nil
	}
	if err != nil {
		return err
	}

	snap, err := s.collector.Collect(ctx, adv)
	if errors.Is(err, decoder.ErrUnsupportedFormat) {
		s.logger.Debug("Ignoring unsupported data format", "device", adv.Address, "error", err)
		return nil
	}
	if err != nil {
		return err
	}

	if snap != nil {
		s.logger.Debug("Gateway advertisement collected", "device", snap.Device, "format", snap.Format)
	}
	return nil
}

func waitToken(token mqtt.Token, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return errors.New("timed out waiting for broker")
	}
	return token.Error()
}
