package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/timgluz/luftspiegel/gateway"
	"github.com/timgluz/luftspiegel/task"
)

const connectTimeout = 30 * time.Second

type listenCommand struct {
	Broker   string `short:"b" long:"broker" env:"SENSORCTL_MQTT_BROKER" default:"tcp://localhost:1883" description:"MQTT broker URL"`
	ClientID string `long:"client-id" env:"SENSORCTL_MQTT_CLIENT_ID" default:"luftspiegel" description:"MQTT client identifier"`
	Username string `long:"username" env:"SENSORCTL_MQTT_USERNAME" description:"MQTT user name"`
	Password string `long:"password" env:"SENSORCTL_MQTT_PASSWORD" description:"MQTT password"`
	Topic    string `long:"topic" env:"SENSORCTL_MQTT_TOPIC" default:"ruuvi/#" description:"Topic the Ruuvi Gateway publishes on"`
	QoS      byte   `long:"qos" env:"SENSORCTL_MQTT_QOS" default:"0" description:"Subscription QoS"`

	MetricsListen string `long:"metrics-listen" env:"SENSORCTL_METRICS_LISTEN" description:"Serve prometheus metrics on this address"`
}

func (c *listenCommand) Execute(_ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger("listen")
	if err != nil {
		return err
	}

	s, err := openStores(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	m, registry := newMetrics(logger)
	if c.MetricsListen != "" {
		go func() {
			if err := serveHTTP(ctx, metricsServer(c.MetricsListen, registry), logger); err != nil {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	}

	client := mqtt.NewClient(gateway.NewClientOptions(gateway.ClientConfig{
		Broker:   c.Broker,
		ClientID: c.ClientID,
		Username: c.Username,
		Password: c.Password,
	}))

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("timed out connecting to %s", c.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.Broker, err)
	}
	logger.Info("Connected to MQTT broker", "broker", c.Broker)

	collector := task.NewAdvertisementCollector(s.measurements, s.devices, s.snapshots, m, logger)
	return gateway.NewSubscriber(client, collector, logger).WithTopic(c.Topic, c.QoS).Run(ctx)
}
