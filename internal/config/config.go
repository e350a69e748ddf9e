// Package config loads the finsctl YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	omronfins "github.com/TaishiUeda/OmronFinsEthernet"
	"github.com/TaishiUeda/OmronFinsEthernet/internal/poller"
	"github.com/TaishiUeda/OmronFinsEthernet/internal/sink/kafkasink"
	"github.com/TaishiUeda/OmronFinsEthernet/internal/sink/mqttsink"
	"github.com/TaishiUeda/OmronFinsEthernet/internal/sink/redissink"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "finsctl.yaml"

// Config is the whole configuration file.
type Config struct {
	Log      LogConfig        `yaml:"log"`
	PLC      EndpointConfig   `yaml:"plc"`
	Local    EndpointConfig   `yaml:"local"`
	Timeouts TimeoutConfig    `yaml:"timeouts"`
	Poll     PollConfig       `yaml:"poll"`
	MQTT     mqttsink.Config  `yaml:"mqtt"`
	Redis    redissink.Config `yaml:"redis"`
	Kafka    kafkasink.Config `yaml:"kafka"`
	Service  ServiceConfig    `yaml:"service"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// EndpointConfig is one end of the FINS exchange.
type EndpointConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Network byte   `yaml:"network"`
	Node    byte   `yaml:"node"`
	Unit    byte   `yaml:"unit"`
	// ResponseDelay is only meaningful for the PLC.
	ResponseDelay byte `yaml:"response_delay,omitempty"`
	ServiceID     byte `yaml:"service_id,omitempty"`
}

// TimeoutConfig holds socket and per-command timeouts.
type TimeoutConfig struct {
	Send    time.Duration `yaml:"send"`
	Receive time.Duration `yaml:"receive"`
	Command time.Duration `yaml:"command"`
}

// PollConfig describes the tags read by the poller.
type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	OnlyChanges bool          `yaml:"only_changes"`
	Tags        []TagConfig   `yaml:"tags"`
}

// TagConfig is the textual form of poller.Tag.
type TagConfig struct {
	Name    string `yaml:"name"`
	Area    string `yaml:"area"` // DM_WORD, dm, 0x82 ...
	Address uint16 `yaml:"address"`
	Bit     byte   `yaml:"bit,omitempty"`
	Count   uint16 `yaml:"count,omitempty"` // defaults to 1
	Type    string `yaml:"type,omitempty"`  // defaults to USHORT
}

// ServiceConfig names the OS service running the poller.
type ServiceConfig struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
}

// Default returns the configuration used for missing fields.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "console"},
		PLC: EndpointConfig{
			Host:          "127.0.0.1",
			Port:          omronfins.DefaultPort,
			Node:          10,
			ResponseDelay: omronfins.DefaultResponseDelay,
		},
		Local: EndpointConfig{Node: 2},
		Timeouts: TimeoutConfig{
			Send:    omronfins.DefaultSendTimeout,
			Receive: omronfins.DefaultReceiveTimeout,
			Command: 5 * time.Second,
		},
		Poll: PollConfig{Interval: poller.DefaultInterval},
		MQTT: mqttsink.Config{
			Broker:    "tcp://localhost:1883",
			ClientID:  "finsctl",
			RootTopic: "fins",
			QoS:       1,
			Retain:    true,
		},
		Redis: redissink.Config{
			Address:   "localhost:6379",
			KeyPrefix: "fins",
		},
		Kafka: kafkasink.DefaultConfig(),
		Service: ServiceConfig{
			Name:        "finsctl",
			DisplayName: "FINS poller",
			Description: "Polls OMRON PLC memory over FINS/UDP and publishes the values.",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.PLC.Host == "" {
		return fmt.Errorf("plc.host is required")
	}
	if c.PLC.Port < 0 || c.PLC.Port > 65535 {
		return fmt.Errorf("plc.port %d out of range", c.PLC.Port)
	}
	if c.Local.Port < 0 || c.Local.Port > 65535 {
		return fmt.Errorf("local.port %d out of range", c.Local.Port)
	}
	if c.Timeouts.Send < 0 || c.Timeouts.Receive < 0 || c.Timeouts.Command < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.Poll.Interval < 0 {
		return fmt.Errorf("poll.interval must not be negative")
	}
	if _, err := c.Tags(); err != nil {
		return err
	}
	if c.MQTT.Enabled {
		if err := c.MQTT.Validate(); err != nil {
			return err
		}
	}
	if c.Redis.Enabled {
		if err := c.Redis.Validate(); err != nil {
			return err
		}
	}
	if c.Kafka.Enabled {
		if err := c.Kafka.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PLCAddress resolves the PLC endpoint.
func (c *Config) PLCAddress() (omronfins.Address, error) {
	p := c.PLC
	return omronfins.ResolveAddress(p.Host, p.Port, p.Network, p.Node, p.Unit)
}

// LocalAddress resolves the local endpoint. Without a host the OS picks the
// socket and only the FINS identity is used.
func (c *Config) LocalAddress() (omronfins.Address, error) {
	l := c.Local
	if l.Host == "" && l.Port == 0 {
		return omronfins.NewLocalAddress(l.Network, l.Node, l.Unit), nil
	}
	host := l.Host
	if host == "" {
		host = "0.0.0.0"
	}
	return omronfins.ResolveAddress(host, l.Port, l.Network, l.Node, l.Unit)
}

// Tags converts the configured tags.
func (c *Config) Tags() ([]poller.Tag, error) {
	tags := make([]poller.Tag, 0, len(c.Poll.Tags))
	for i, tc := range c.Poll.Tags {
		t, err := tc.Tag()
		if err != nil {
			return nil, fmt.Errorf("poll.tags[%d]: %w", i, err)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// Tag parses the area and type names.
func (tc TagConfig) Tag() (poller.Tag, error) {
	area, err := omronfins.ParseMemoryArea(tc.Area)
	if err != nil {
		return poller.Tag{}, err
	}
	typeName := tc.Type
	if typeName == "" {
		typeName = "USHORT"
	}
	typ, err := omronfins.ParseElementType(typeName)
	if err != nil {
		return poller.Tag{}, err
	}
	count := tc.Count
	if count == 0 {
		count = 1
	}
	t := poller.Tag{
		Name:    tc.Name,
		Area:    area,
		Address: tc.Address,
		Bit:     tc.Bit,
		Count:   count,
		Type:    typ,
	}
	return t, t.Validate()
}
