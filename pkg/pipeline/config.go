package pipeline

import (
	"log/slog"

	"github.com/teslashibe/go-picarx/pkg/linefollow"
)

// Default tuning, matching the PiCar-X grayscale module on a taped track.
const (
	DefaultSensorHz     = 10.0
	DefaultEstimatorHz  = 5.0
	DefaultSteeringHz   = 2.0
	DefaultScale        = 1.0
	DefaultMaxTurnAngle = 30.0
	DefaultDrivePower   = 35
)

// DefaultReference is the measured floor level of the three grayscale
// channels.
var DefaultReference = linefollow.Reference{31.28, 37.29, 36.66}

// Config holds everything the pipeline needs to build its three loops.
type Config struct {
	SensorHz    float64
	EstimatorHz float64
	SteeringHz  float64

	Channels  [3]int
	Reference linefollow.Reference

	Polarity    linefollow.Polarity
	Sensitivity *float64 // accepted, currently inert

	Scale        float64
	MaxTurnAngle float64

	// DrivePower is the forward power issued once before the loops start.
	DrivePower int
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		SensorHz:     DefaultSensorHz,
		EstimatorHz:  DefaultEstimatorHz,
		SteeringHz:   DefaultSteeringHz,
		Channels:     linefollow.DefaultChannels,
		Reference:    DefaultReference,
		Polarity:     linefollow.BrightLine,
		Scale:        DefaultScale,
		MaxTurnAngle: DefaultMaxTurnAngle,
		DrivePower:   DefaultDrivePower,
	}
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used by the pipeline and its loops.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.log = l
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		p.id = id
	}
}
