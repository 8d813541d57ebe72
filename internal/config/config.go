// Package config loads go-picarx settings from a YAML file, environment
// variables and defaults, in that order of precedence (env wins over file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-picarx/pkg/hal"
	"github.com/teslashibe/go-picarx/pkg/linefollow"
	"github.com/teslashibe/go-picarx/pkg/pipeline"
)

// Backends selectable with Backend.
const (
	BackendSim    = "sim"
	BackendSerial = "serial"
	BackendHTTP   = "http"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the full runtime configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// Backend selects the hardware: sim, serial or http. The http backend
	// drives the actuators through the daemon and reads the sensor over
	// serial.
	Backend    string `yaml:"backend"`
	SerialPort string `yaml:"serial_port"`
	BaudRate   int    `yaml:"baud_rate"`
	DaemonURL  string `yaml:"daemon_url"`

	// WebPort enables the telemetry dashboard when non-empty.
	WebPort string `yaml:"web_port"`

	Pipeline Pipeline `yaml:"pipeline"`
}

// Pipeline mirrors pipeline.Config in file form. Reference accepts a scalar
// or a 3-element list.
type Pipeline struct {
	SensorHz     float64   `yaml:"sensor_hz"`
	EstimatorHz  float64   `yaml:"estimator_hz"`
	SteeringHz   float64   `yaml:"steering_hz"`
	Channels     [3]int    `yaml:"channels"`
	Reference    Reference `yaml:"reference"`
	Polarity     int       `yaml:"polarity"`
	Sensitivity  *float64  `yaml:"sensitivity,omitempty"`
	Scale        float64   `yaml:"scale"`
	MaxTurnAngle float64   `yaml:"max_turn_angle"`
	DrivePower   int       `yaml:"drive_power"`
}

// Reference is a calibration value list that decodes from either a YAML
// scalar or a sequence.
type Reference []float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *Reference) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("%w: reference: %v", ErrInvalid, err)
		}
		*r = Reference{v}
		return nil
	case yaml.SequenceNode:
		var vs []float64
		if err := node.Decode(&vs); err != nil {
			return fmt.Errorf("%w: reference: %v", ErrInvalid, err)
		}
		*r = vs
		return nil
	default:
		return fmt.Errorf("%w: reference must be a number or a list", ErrInvalid)
	}
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	d := pipeline.DefaultConfig()
	return Config{
		LogLevel:   "info",
		Backend:    BackendSim,
		SerialPort: DefaultSerialPort,
		BaudRate:   hal.DefaultBaudRate,
		Pipeline: Pipeline{
			SensorHz:     d.SensorHz,
			EstimatorHz:  d.EstimatorHz,
			SteeringHz:   d.SteeringHz,
			Channels:     d.Channels,
			Reference:    Reference(d.Reference[:]),
			Polarity:     int(d.Polarity),
			Scale:        d.Scale,
			MaxTurnAngle: d.MaxTurnAngle,
			DrivePower:   d.DrivePower,
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies env
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from LOG_LEVEL, PICARX_BACKEND,
// PICARX_SERIAL_PORT, PICARX_WEB_PORT, ROBOT_IP and PICARX_DRIVE_POWER.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("PICARX_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("PICARX_SERIAL_PORT"); v != "" {
		c.SerialPort = v
	}
	if v := os.Getenv("PICARX_WEB_PORT"); v != "" {
		c.WebPort = v
	}
	if ip := os.Getenv("ROBOT_IP"); ip != "" && c.DaemonURL == "" {
		c.DaemonURL = DaemonURL(ip)
	}
	if v := os.Getenv("PICARX_DRIVE_POWER"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PICARX_DRIVE_POWER=%q: %v", ErrInvalid, v, err)
		}
		c.Pipeline.DrivePower = p
	}
	return nil
}

// Validate checks the configuration and fails fast on the first problem.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSim, BackendSerial:
	case BackendHTTP:
		if c.DaemonURL == "" {
			return fmt.Errorf("%w: backend http requires daemon_url or ROBOT_IP", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalid, c.Backend)
	}
	if c.Pipeline.DrivePower < 0 || c.Pipeline.DrivePower > 100 {
		return fmt.Errorf("%w: drive_power %d out of [0, 100]", ErrInvalid, c.Pipeline.DrivePower)
	}
	_, err := c.PipelineConfig()
	return err
}

// PipelineConfig converts the file form into a pipeline.Config. The
// reference and polarity are checked here so that a bad value is reported
// with its field name.
func (c Config) PipelineConfig() (pipeline.Config, error) {
	p := c.Pipeline
	ref, err := linefollow.ParseReference(p.Reference)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("%w: reference: %w", ErrInvalid, err)
	}
	pol := linefollow.Polarity(p.Polarity)
	if !pol.Valid() {
		return pipeline.Config{}, fmt.Errorf("%w: polarity: %w", ErrInvalid, linefollow.ErrInvalidPolarity)
	}
	for name, hz := range map[string]float64{"sensor_hz": p.SensorHz, "estimator_hz": p.EstimatorHz, "steering_hz": p.SteeringHz} {
		if hz <= 0 {
			return pipeline.Config{}, fmt.Errorf("%w: %s: %w", ErrInvalid, name, linefollow.ErrInvalidFrequency)
		}
	}
	if p.MaxTurnAngle <= 0 {
		return pipeline.Config{}, fmt.Errorf("%w: max_turn_angle: %w", ErrInvalid, linefollow.ErrInvalidTurnAngle)
	}
	if err := linefollow.ValidateScale(p.Scale); err != nil {
		return pipeline.Config{}, fmt.Errorf("%w: scale: %w", ErrInvalid, err)
	}
	if err := linefollow.ValidateChannels(p.Channels); err != nil {
		return pipeline.Config{}, fmt.Errorf("%w: channels %v: %w", ErrInvalid, p.Channels, err)
	}

	return pipeline.Config{
		SensorHz:     p.SensorHz,
		EstimatorHz:  p.EstimatorHz,
		SteeringHz:   p.SteeringHz,
		Channels:     p.Channels,
		Reference:    ref,
		Polarity:     pol,
		Sensitivity:  p.Sensitivity,
		Scale:        p.Scale,
		MaxTurnAngle: p.MaxTurnAngle,
		DrivePower:   p.DrivePower,
	}, nil
}
