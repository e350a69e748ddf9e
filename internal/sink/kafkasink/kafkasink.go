// Package kafkasink produces poller samples to a Kafka topic. Each message is
// keyed by tag name so one tag always lands in the same partition.
package kafkasink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/TaishiUeda/OmronFinsEthernet/internal/poller"
)

// Config describes the cluster and the destination topic.
type Config struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	RequiredAcks int           `yaml:"required_acks"` // -1=all, 0=none, 1=leader only
	MaxAttempts  int           `yaml:"max_attempts,omitempty"`
	BatchTimeout time.Duration `yaml:"batch_timeout,omitempty"`
	AutoCreate   bool          `yaml:"auto_create_topic,omitempty"`
}

// DefaultConfig returns a disabled configuration with sensible producer settings.
func DefaultConfig() Config {
	return Config{
		Brokers:      []string{"localhost:9092"},
		Topic:        "fins-samples",
		RequiredAcks: -1,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
	}
}

// Validate checks the fields needed to produce.
func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka: at least one broker is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("kafka: topic is required")
	}
	if c.RequiredAcks < -1 || c.RequiredAcks > 1 {
		return fmt.Errorf("kafka: required_acks must be -1, 0 or 1, got %d", c.RequiredAcks)
	}
	return nil
}

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink writes every batch of samples with one WriteMessages call.
type Sink struct {
	cfg    Config
	writer messageWriter
	logger *zap.Logger
}

// New builds a synchronous writer. kafka-go connects lazily, so broker
// problems surface on the first Publish.
func New(cfg Config, logger *zap.Logger) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		MaxAttempts:            cfg.MaxAttempts,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: cfg.AutoCreate,
	}
	return newSink(cfg, w, logger.Named("kafka")), nil
}

func newSink(cfg Config, w messageWriter, logger *zap.Logger) *Sink {
	return &Sink{cfg: cfg, writer: w, logger: logger}
}

// Name implements poller.Sink.
func (s *Sink) Name() string { return "kafka" }

// Publish produces one message per sample in a single write. Samples that
// cannot be encoded are logged and left out of the batch.
func (s *Sink) Publish(ctx context.Context, samples []poller.Sample) error {
	msgs := make([]kafka.Message, 0, len(samples))
	for _, sample := range samples {
		value, err := json.Marshal(sample)
		if err != nil {
			s.logger.Warn("encode failed", zap.String("tag", sample.Tag), zap.Error(err))
			continue
		}
		ts := sample.Time
		if ts.IsZero() {
			ts = time.Now()
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(sample.Tag),
			Value: value,
			Time:  ts,
		})
	}
	if len(msgs) == 0 {
		return nil
	}

	start := time.Now()
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: produce to %s: %w", s.cfg.Topic, err)
	}
	s.logger.Debug("produced",
		zap.String("topic", s.cfg.Topic),
		zap.Int("messages", len(msgs)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Close flushes pending messages and closes the writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}

var _ poller.Sink = (*Sink)(nil)
