// Package config carries the YAML-driven tunables for every compile-time
// constant named in the external interfaces, mirroring the relay's
// DefaultConfig/LoadConfig pair.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmtf/spdm-core/spdmconst"
)

type Config struct {
	Limits    LimitsConfig    `yaml:"limits"`
	Logging   LoggingConfig   `yaml:"logging"`
	Trust     TrustConfig     `yaml:"trust"`
	Replay    ReplayConfig    `yaml:"replay"`
	Transport TransportConfig `yaml:"transport"`
}

// TransportConfig selects the wire transport and addressing the daemons
// bind or dial, mirroring the relay's listen/target address split.
type TransportConfig struct {
	// Kind is "websocket" or "mctp" (the default); any value other than
	// "websocket" selects MCTP framing. MCTP framing runs over a plain
	// TCP byte stream via PipeDeviceIo; websocket framing uses gorilla's
	// per-message boundaries directly.
	Kind       string `yaml:"kind"`
	ListenAddr string `yaml:"listen_addr"`
	TargetAddr string `yaml:"target_addr"`
}

type LimitsConfig struct {
	MaxSpdmVersionCount      int `yaml:"max_spdm_version_count"`
	MaxMeasurementBlockCount int `yaml:"max_measurement_block_count"`
	MaxMeasurementValueLen   int `yaml:"max_measurement_value_len"`
	MaxPskContextSize        int `yaml:"max_psk_context_size"`
	MaxPskHintSize           int `yaml:"max_psk_hint_size"`
	MaxTransportSize         int `yaml:"max_transport_size"`
	MaxMessageBufferSize     int `yaml:"max_message_buffer_size"`
	MaxSessions              int `yaml:"max_sessions"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"`
	Component string `yaml:"component"`
	JSON      bool   `yaml:"json"`
}

type TrustConfig struct {
	PostgresDSN string `yaml:"postgres_dsn"`
}

type ReplayConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	Enabled   bool   `yaml:"enabled"`
}

func DefaultConfig() *Config {
	return &Config{
		Limits: LimitsConfig{
			MaxSpdmVersionCount:      spdmconst.MaxSpdmVersionCount,
			MaxMeasurementBlockCount: spdmconst.MaxMeasurementBlockCount,
			MaxMeasurementValueLen:   spdmconst.MaxMeasurementValueLen,
			MaxPskContextSize:        spdmconst.MaxPskContextSize,
			MaxPskHintSize:           spdmconst.MaxPskHintSize,
			MaxTransportSize:         spdmconst.MaxTransportSize,
			MaxMessageBufferSize:     spdmconst.MaxMessageBufferSize,
			MaxSessions:              spdmconst.MaxSessions,
		},
		Logging:   LoggingConfig{Level: "info", Component: "spdm"},
		Transport: TransportConfig{Kind: "mctp", ListenAddr: ":7846", TargetAddr: "127.0.0.1:7846"},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
