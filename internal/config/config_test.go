package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("http addr: got %q", cfg.HTTPAddr)
	}
	if cfg.GPIOChip != "gpiochip0" || cfg.GPIOLine != 17 {
		t.Errorf("gpio: got %s:%d", cfg.GPIOChip, cfg.GPIOLine)
	}
	if cfg.DefaultPulse != 150*time.Millisecond {
		t.Errorf("default pulse: got %v", cfg.DefaultPulse)
	}
	if cfg.Token != "" {
		t.Errorf("token should default to empty (auth off), got %q", cfg.Token)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
http_addr: ":9000"
gpio_line: 22
default_pulse_ms: 300
token: "secret"
broker: "tcp://192.168.1.200:1883"
probe_target: "192.168.1.1"
heartbeat_seconds: 60
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTPAddr != ":9000" {
		t.Errorf("http addr: got %q", cfg.HTTPAddr)
	}
	if cfg.GPIOLine != 22 {
		t.Errorf("gpio line: got %d", cfg.GPIOLine)
	}
	if cfg.DefaultPulse != 300*time.Millisecond {
		t.Errorf("default pulse: got %v", cfg.DefaultPulse)
	}
	if cfg.Token != "secret" {
		t.Errorf("token: got %q", cfg.Token)
	}
	if cfg.Heartbeat != time.Minute {
		t.Errorf("heartbeat: got %v", cfg.Heartbeat)
	}

	// Unset fields keep their defaults.
	if cfg.GPIOChip != "gpiochip0" {
		t.Errorf("gpio chip should keep default, got %q", cfg.GPIOChip)
	}
	if cfg.ProbeTimeout != 4*time.Second {
		t.Errorf("probe timeout should keep default, got %v", cfg.ProbeTimeout)
	}
	if cfg.Instance != "sound-trigger" {
		t.Errorf("instance should keep default, got %q", cfg.Instance)
	}
}

func TestLoadExplicitZeroes(t *testing.T) {
	// Explicit zeroes are honored, not mistaken for "unset".
	path := writeConfig(t, `
heartbeat_seconds: 0
gpio_line: 0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Heartbeat != 0 {
		t.Errorf("heartbeat: got %v, want 0 (disabled)", cfg.Heartbeat)
	}
	if cfg.GPIOLine != 0 {
		t.Errorf("gpio line: got %d, want 0", cfg.GPIOLine)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "http_addr: [not a scalar")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	path := writeConfig(t, "gpio_line: -3")
	if _, err := Load(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		wantOK bool
	}{
		{"default is valid", func(*Config) {}, true},
		{"empty http addr", func(c *Config) { c.HTTPAddr = "" }, false},
		{"empty gpio chip", func(c *Config) { c.GPIOChip = "" }, false},
		{"negative gpio line", func(c *Config) { c.GPIOLine = -1 }, false},
		{"negative pulse", func(c *Config) { c.DefaultPulse = -time.Second }, false},
		{"negative heartbeat", func(c *Config) { c.Heartbeat = -time.Minute }, false},
		{"zero heartbeat is valid", func(c *Config) { c.Heartbeat = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantOK && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
