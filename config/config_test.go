package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigPopulatesLimitsFromSpdmconst(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Limits.MaxSessions == 0 {
		t.Error("DefaultConfig must populate MaxSessions from spdmconst")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Transport.Kind != "mctp" {
		t.Errorf("Transport.Kind = %q, want %q", cfg.Transport.Kind, "mctp")
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spdm.yaml")
	content := `
limits:
  max_sessions: 4
logging:
  level: debug
  component: spdm-responder
trust:
  postgres_dsn: "postgres://localhost/spdm"
replay:
  redis_addr: "localhost:6379"
  enabled: true
transport:
  kind: websocket
  listen_addr: ":8443"
  target_addr: "peer.example:8443"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Limits.MaxSessions != 4 {
		t.Errorf("Limits.MaxSessions = %d, want 4", cfg.Limits.MaxSessions)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Component != "spdm-responder" {
		t.Errorf("Logging = %+v, want {debug spdm-responder false}", cfg.Logging)
	}
	if cfg.Trust.PostgresDSN != "postgres://localhost/spdm" {
		t.Errorf("Trust.PostgresDSN = %q", cfg.Trust.PostgresDSN)
	}
	if !cfg.Replay.Enabled || cfg.Replay.RedisAddr != "localhost:6379" {
		t.Errorf("Replay = %+v", cfg.Replay)
	}
	if cfg.Transport.Kind != "websocket" || cfg.Transport.ListenAddr != ":8443" || cfg.Transport.TargetAddr != "peer.example:8443" {
		t.Errorf("Transport = %+v", cfg.Transport)
	}

	// Fields left unset in the YAML keep the DefaultConfig value, since
	// LoadConfig unmarshals onto a populated *Config rather than a zero one.
	if cfg.Limits.MaxMeasurementBlockCount == 0 {
		t.Error("unset limit fields must retain their DefaultConfig value")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("limits: [this is not a mapping"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}
