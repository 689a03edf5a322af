// Package config loads the instrument description used by the gopherscope
// CLI: how to reach the device, which pins to sample and how to scale and
// store the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gopherscope/core"
	"gopherscope/host/scope"
	"gopherscope/host/serial"
	"gopherscope/protocol"
)

// Config is the root of an instrument file
type Config struct {
	Connection  ConnectionConfig  `yaml:"connection"`
	Channels    []uint8           `yaml:"channels"`
	RateHz      uint32            `yaml:"rate_hz"`
	Kind        string            `yaml:"kind"` // "analog" or "digital"
	Calibration scope.Calibration `yaml:"calibration"`
	Output      OutputConfig      `yaml:"output"`
	Sim         SimConfig         `yaml:"sim"`
}

// ConnectionConfig selects a serial port or a websocket bridge. URL wins
// when both are set.
type ConnectionConfig struct {
	Port           string `yaml:"port"`
	Baud           int    `yaml:"baud"`
	Backend        string `yaml:"backend"` // "tarm" or "bugst"
	ReadTimeoutMS  int    `yaml:"read_timeout_ms"`
	ReplyTimeoutMS int    `yaml:"reply_timeout_ms"`
	URL            string `yaml:"url"`
	Username       string `yaml:"username"`
	NoSSLVerify    bool   `yaml:"no_ssl_verify"`
}

// OutputConfig names the files a capture is written to. Empty disables.
type OutputConfig struct {
	CSV    string `yaml:"csv"`
	CBOR   string `yaml:"cbor"`
	PNG    string `yaml:"png"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// SimConfig configures the simulated device server
type SimConfig struct {
	Listen       string    `yaml:"listen"`
	Path         string    `yaml:"path"`
	BurstSamples int       `yaml:"burst_samples"`
	Tones        []float64 `yaml:"tones_hz"`
	Noise        float64   `yaml:"noise"`
}

// Default returns a configuration that needs only a port or URL
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads path and fills unset fields with defaults. An empty path
// returns Default().
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := serial.DefaultConfig("")
	if cfg.Connection.Baud == 0 {
		cfg.Connection.Baud = def.Baud
	}
	if cfg.Connection.ReadTimeoutMS == 0 {
		cfg.Connection.ReadTimeoutMS = def.ReadTimeout
	}
	if cfg.Connection.Backend == "" {
		cfg.Connection.Backend = def.Backend
	}
	if cfg.Connection.ReplyTimeoutMS == 0 {
		cfg.Connection.ReplyTimeoutMS = int(scope.DefaultReplyTimeout / time.Millisecond)
	}
	if cfg.Kind == "" {
		cfg.Kind = protocol.Analog.String()
	}
	if cfg.Calibration == (scope.Calibration{}) {
		cfg.Calibration = scope.DefaultCalibration()
	}
	if cfg.Calibration.Gain == 0 {
		cfg.Calibration.Gain = 1
	}
	if cfg.Output.Width == 0 {
		cfg.Output.Width = 800
	}
	if cfg.Output.Height == 0 {
		cfg.Output.Height = 400
	}
	if cfg.Sim.Listen == "" {
		cfg.Sim.Listen = "127.0.0.1:8765"
	}
	if cfg.Sim.Path == "" {
		cfg.Sim.Path = "/scope"
	}
	if cfg.Sim.BurstSamples == 0 {
		cfg.Sim.BurstSamples = core.DefaultBurstSamples
	}
	if len(cfg.Sim.Tones) == 0 {
		cfg.Sim.Tones = []float64{50, 440}
	}
}

// Validate checks cross-field constraints
func Validate(cfg *Config) error {
	var errs []error

	if len(cfg.Channels) > core.MaxChannels {
		errs = append(errs, fmt.Errorf("at most %d channels can be enabled, got %d", core.MaxChannels, len(cfg.Channels)))
	}
	seen := make(map[uint8]bool)
	for _, p := range cfg.Channels {
		if seen[p] {
			errs = append(errs, fmt.Errorf("pin %d listed twice", p))
		}
		seen[p] = true
	}
	if cfg.RateHz > core.MaxRateHz {
		errs = append(errs, fmt.Errorf("rate_hz %d exceeds %d", cfg.RateHz, core.MaxRateHz))
	}
	if _, err := protocol.ParseSampleKind(cfg.Kind); err != nil {
		errs = append(errs, err)
	}
	if err := cfg.Calibration.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("calibration: %w", err))
	}
	switch cfg.Connection.Backend {
	case serial.BackendTarm, serial.BackendBugst:
	default:
		errs = append(errs, fmt.Errorf("unknown serial backend %q", cfg.Connection.Backend))
	}
	if cfg.Connection.Baud < 0 || cfg.Connection.ReadTimeoutMS < 0 {
		errs = append(errs, errors.New("baud and read_timeout_ms must not be negative"))
	}
	if cfg.Output.Width < 64 || cfg.Output.Height < 64 {
		errs = append(errs, fmt.Errorf("plot size %dx%d is too small", cfg.Output.Width, cfg.Output.Height))
	}
	if cfg.Sim.BurstSamples < 0 {
		errs = append(errs, errors.New("sim burst_samples must not be negative"))
	}
	return errors.Join(errs...)
}

// SampleKind returns the parsed Kind
func (c *Config) SampleKind() protocol.SampleKind {
	k, _ := protocol.ParseSampleKind(c.Kind)
	return k
}

// SerialConfig converts the connection section for serial.Open
func (c *Config) SerialConfig() *serial.Config {
	return &serial.Config{
		Device:      c.Connection.Port,
		Baud:        c.Connection.Baud,
		ReadTimeout: c.Connection.ReadTimeoutMS,
		Backend:     c.Connection.Backend,
	}
}

// ReplyTimeout is how long the client waits for a reply before retrying
func (c *Config) ReplyTimeout() time.Duration {
	return time.Duration(c.Connection.ReplyTimeoutMS) * time.Millisecond
}
