package linefollow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teslashibe/go-picarx/internal/log"
	"github.com/teslashibe/go-picarx/pkg/bus"
	"github.com/teslashibe/go-picarx/pkg/hal"
)

// DefaultChannels maps left, mid, right to A0, A1, A2.
var DefaultChannels = [3]int{hal.ChannelLeft, hal.ChannelMid, hal.ChannelRight}

// SensingConfig configures the sampling loop.
type SensingConfig struct {
	Channels  [3]int    // ADC channel for left, mid, right
	Reference Reference // Offset subtracted from each channel
	Hz        float64   // Sampling frequency
	Logger    *slog.Logger
}

// Sensing samples the grayscale sensor and publishes calibrated readings.
type Sensing struct {
	sensor hal.AnalogReader
	out    *bus.Bus[Reading]
	cfg    SensingConfig
	period time.Duration
	log    *slog.Logger
	stats  Stats
}

// ValidateChannels checks that left, mid and right map to distinct,
// non-negative ADC channels.
func ValidateChannels(ch [3]int) error {
	for i, c := range ch {
		if c < 0 {
			return ErrInvalidChannels
		}
		for _, other := range ch[i+1:] {
			if c == other {
				return ErrInvalidChannels
			}
		}
	}
	return nil
}

// NewSensing creates the sampling loop. It does not start it.
func NewSensing(sensor hal.AnalogReader, out *bus.Bus[Reading], cfg SensingConfig) (*Sensing, error) {
	period, err := periodFor(cfg.Hz)
	if err != nil {
		return nil, err
	}
	if err := ValidateChannels(cfg.Channels); err != nil {
		return nil, err
	}
	l := log.Or(cfg.Logger).With("loop", "sensing")
	l.Debug("reference set", "reference", cfg.Reference, "channels", cfg.Channels)

	return &Sensing{
		sensor: sensor,
		out:    out,
		cfg:    cfg,
		period: period,
		log:    l,
	}, nil
}

// Sample reads all three channels once and applies the reference. A failed
// read is returned as *hal.ReadError.
func (s *Sensing) Sample() (Reading, error) {
	var raw [3]float64
	for i, ch := range s.cfg.Channels {
		v, err := s.sensor.ReadAnalog(ch)
		if err != nil {
			var readErr *hal.ReadError
			if errors.As(err, &readErr) {
				return Reading{}, err
			}
			return Reading{}, &hal.ReadError{Channel: ch, Err: err}
		}
		raw[i] = v
	}
	return s.cfg.Reference.Apply(raw), nil
}

// Run samples at the configured frequency until ctx is cancelled. A sensor
// failure ends the loop and is returned; there is no retry.
func (s *Sensing) Run(ctx context.Context) error {
	s.log.Info("sampling loop started", "hz", s.cfg.Hz)
	err := runPeriodic(ctx, s.period, &s.stats, func() error {
		r, err := s.Sample()
		if err != nil {
			s.log.Error("sensor read failed", "error", err)
			return err
		}
		s.out.Write(r)
		s.log.Debug("reading published", "reading", r)
		return nil
	})
	s.log.Info("sampling loop ended", "iterations", s.stats.iterations.Load())
	return err
}

// Stats returns the loop's diagnostics.
func (s *Sensing) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}
