// Package redissink stores poller samples in Redis (or Valkey) as JSON
// strings and optionally announces them on a pub/sub channel.
package redissink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/TaishiUeda/OmronFinsEthernet/internal/poller"
)

// Config describes the server and the key layout.
type Config struct {
	Enabled   bool          `yaml:"enabled"`
	Address   string        `yaml:"address"` // host:port
	Password  string        `yaml:"password,omitempty"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	Channel   string        `yaml:"channel,omitempty"` // empty disables PUBLISH
	TTL       time.Duration `yaml:"ttl,omitempty"`     // 0 keeps keys forever
}

// Validate checks the fields needed to connect.
func (c Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("redis: address is required")
	}
	if c.DB < 0 {
		return fmt.Errorf("redis: db must not be negative")
	}
	return nil
}

// commander is the part of *redis.Client the sink uses.
type commander interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// Sink writes each sample to <key_prefix>:<tag>.
type Sink struct {
	cfg    Config
	client commander
	logger *zap.Logger
}

// New connects and pings the server.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: connect to %s: %w", cfg.Address, err)
	}
	return newSink(cfg, client, logger.Named("redis")), nil
}

func newSink(cfg Config, client commander, logger *zap.Logger) *Sink {
	return &Sink{cfg: cfg, client: client, logger: logger}
}

// Name implements poller.Sink.
func (s *Sink) Name() string { return "redis" }

// Key returns the key a tag is stored under.
func (s *Sink) Key(tag string) string {
	return joinKey(s.cfg.KeyPrefix, tag)
}

// joinKey joins segments with colons, dropping empty segments.
func joinKey(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.Trim(seg, ":")
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, ":")
}

// Publish stores every sample. A failed SET aborts the batch; a failed
// PUBLISH is logged only, since the value is already stored. Samples that
// cannot be encoded are logged and skipped.
func (s *Sink) Publish(ctx context.Context, samples []poller.Sample) error {
	for _, sample := range samples {
		data, err := json.Marshal(sample)
		if err != nil {
			s.logger.Warn("encode failed", zap.String("tag", sample.Tag), zap.Error(err))
			continue
		}
		key := s.Key(sample.Tag)
		if err := s.client.Set(ctx, key, data, s.cfg.TTL).Err(); err != nil {
			return fmt.Errorf("redis: set %s: %w", key, err)
		}
		if s.cfg.Channel == "" {
			continue
		}
		if err := s.client.Publish(ctx, s.cfg.Channel, data).Err(); err != nil {
			s.logger.Warn("publish failed", zap.String("channel", s.cfg.Channel), zap.Error(err))
		}
	}
	return nil
}

// Close closes the connection pool.
func (s *Sink) Close() error {
	return s.client.Close()
}

var _ poller.Sink = (*Sink)(nil)
