// Package config loads the optional daemon configuration file.
// Everything here can also be set with command-line flags; flags given
// explicitly on the command line win over file values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	// HTTPAddr is the listen address for the trigger surface.
	HTTPAddr string

	// GPIOChip and GPIOLine select the trigger pin.
	GPIOChip string
	GPIOLine int

	// DefaultPulse is used when a trigger request carries no duration.
	DefaultPulse time.Duration

	// Token is the shared secret required on trigger requests.
	// Empty disables authorization.
	Token string

	// Broker is the MQTT broker address ("off" disables publishing).
	Broker string

	// Heartbeat is the system heartbeat interval (0 disables).
	Heartbeat time.Duration

	// ProbeTarget is dialed to verify network reachability.
	ProbeTarget string

	// ProbeTimeout bounds a single reachability probe.
	ProbeTimeout time.Duration

	// CheckInterval is how often an established link is re-verified.
	CheckInterval time.Duration

	// Instance is the mDNS instance name ("off" disables advertisement).
	Instance string
}

// fileConfig mirrors Config for YAML, with explicit units on durations.
// Pointer fields distinguish "unset" from zero so unset fields keep
// their defaults.
type fileConfig struct {
	HTTPAddr             *string `yaml:"http_addr"`
	GPIOChip             *string `yaml:"gpio_chip"`
	GPIOLine             *int    `yaml:"gpio_line"`
	DefaultPulseMs       *int    `yaml:"default_pulse_ms"`
	Token                *string `yaml:"token"`
	Broker               *string `yaml:"broker"`
	HeartbeatSeconds     *int    `yaml:"heartbeat_seconds"`
	ProbeTarget          *string `yaml:"probe_target"`
	ProbeTimeoutSeconds  *int    `yaml:"probe_timeout_seconds"`
	CheckIntervalSeconds *int    `yaml:"check_interval_seconds"`
	Instance             *string `yaml:"instance"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:      ":8080",
		GPIOChip:      "gpiochip0",
		GPIOLine:      17,
		DefaultPulse:  150 * time.Millisecond,
		Broker:        "off",
		Heartbeat:     15 * time.Minute,
		ProbeTarget:   "1.1.1.1",
		ProbeTimeout:  4 * time.Second,
		CheckInterval: 5 * time.Second,
		Instance:      "sound-trigger",
	}
}

// Load reads a YAML config file, applying defaults for unset fields.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if fc.HTTPAddr != nil {
		cfg.HTTPAddr = *fc.HTTPAddr
	}
	if fc.GPIOChip != nil {
		cfg.GPIOChip = *fc.GPIOChip
	}
	if fc.GPIOLine != nil {
		cfg.GPIOLine = *fc.GPIOLine
	}
	if fc.DefaultPulseMs != nil {
		cfg.DefaultPulse = time.Duration(*fc.DefaultPulseMs) * time.Millisecond
	}
	if fc.Token != nil {
		cfg.Token = *fc.Token
	}
	if fc.Broker != nil {
		cfg.Broker = *fc.Broker
	}
	if fc.HeartbeatSeconds != nil {
		cfg.Heartbeat = time.Duration(*fc.HeartbeatSeconds) * time.Second
	}
	if fc.ProbeTarget != nil {
		cfg.ProbeTarget = *fc.ProbeTarget
	}
	if fc.ProbeTimeoutSeconds != nil {
		cfg.ProbeTimeout = time.Duration(*fc.ProbeTimeoutSeconds) * time.Second
	}
	if fc.CheckIntervalSeconds != nil {
		cfg.CheckInterval = time.Duration(*fc.CheckIntervalSeconds) * time.Second
	}
	if fc.Instance != nil {
		cfg.Instance = *fc.Instance
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("config: http_addr must not be empty")
	}
	if c.GPIOChip == "" {
		return fmt.Errorf("config: gpio_chip must not be empty")
	}
	if c.GPIOLine < 0 {
		return fmt.Errorf("config: gpio_line must not be negative")
	}
	if c.DefaultPulse < 0 {
		return fmt.Errorf("config: default_pulse_ms must not be negative")
	}
	if c.ProbeTimeout < 0 || c.CheckInterval < 0 || c.Heartbeat < 0 {
		return fmt.Errorf("config: intervals must not be negative")
	}
	return nil
}
