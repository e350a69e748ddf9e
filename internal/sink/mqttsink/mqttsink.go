// Package mqttsink publishes poller samples to an MQTT broker, one retained
// JSON message per tag.
package mqttsink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/TaishiUeda/OmronFinsEthernet/internal/poller"
)

const (
	defaultConnectTimeout = 5 * time.Second
	publishTimeout        = 2 * time.Second
	disconnectQuiesceMs   = 250
)

// Config describes the broker connection and topic layout.
type Config struct {
	Enabled        bool          `yaml:"enabled"`
	Broker         string        `yaml:"broker"` // tcp://host:1883, ssl://host:8883, ws://...
	ClientID       string        `yaml:"client_id,omitempty"`
	Username       string        `yaml:"username,omitempty"`
	Password       string        `yaml:"password,omitempty"`
	RootTopic      string        `yaml:"root_topic"`
	QoS            byte          `yaml:"qos"`
	Retain         bool          `yaml:"retain"`
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
}

// Validate checks the fields needed to connect.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt: qos must be 0, 1 or 2, got %d", c.QoS)
	}
	return nil
}

// publisher is the part of pahomqtt.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Sink publishes samples to <root_topic>/<tag>.
type Sink struct {
	cfg    Config
	client publisher
	logger *zap.Logger
}

// New connects to the broker. Reconnects are handled by the paho client.
func New(cfg Config, logger *zap.Logger) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("mqtt")

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn("connection lost", zap.Error(err))
	})
	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		logger.Info("connected", zap.String("broker", cfg.Broker))
	})

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt: connect to %s: timeout after %s", cfg.Broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", cfg.Broker, err)
	}
	return newSink(cfg, client, logger), nil
}

func newSink(cfg Config, client publisher, logger *zap.Logger) *Sink {
	return &Sink{cfg: cfg, client: client, logger: logger}
}

// Name implements poller.Sink.
func (s *Sink) Name() string { return "mqtt" }

// Topic returns the topic a tag is published on.
func (s *Sink) Topic(tag string) string {
	root := strings.TrimSuffix(s.cfg.RootTopic, "/")
	if root == "" {
		return tag
	}
	return root + "/" + tag
}

// Publish sends one message per sample and waits for each to be handed to
// the broker. A sample that cannot be encoded is logged and skipped; the
// first broker failure aborts the batch.
func (s *Sink) Publish(ctx context.Context, samples []poller.Sample) error {
	for _, sample := range samples {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(sample)
		if err != nil {
			s.logger.Warn("encode failed", zap.String("tag", sample.Tag), zap.Error(err))
			continue
		}
		topic := s.Topic(sample.Tag)
		token := s.client.Publish(topic, s.cfg.QoS, s.cfg.Retain, payload)
		if !token.WaitTimeout(publishTimeout) {
			return fmt.Errorf("mqtt: publish %s: timeout", topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt: publish %s: %w", topic, err)
		}
		s.logger.Debug("published", zap.String("topic", topic))
	}
	return nil
}

// Close disconnects from the broker.
func (s *Sink) Close() error {
	s.client.Disconnect(disconnectQuiesceMs)
	return nil
}

var _ poller.Sink = (*Sink)(nil)
