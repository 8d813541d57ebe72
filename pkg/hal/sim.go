package hal

import (
	"math"
	"sync"
	"time"
)

// SimConfig tunes the simulated track.
type SimConfig struct {
	Background float64 // Channel reading away from the line
	Contrast   float64 // Peak difference over the line; negative for a dark line
	LineWidth  float64 // Gaussian sigma of the line profile, in sensor spacings
	Curvature  float64 // Lateral drift of the line per second at full power
	SteerGain  float64 // Lateral correction per second per unit sin(angle) at full power
}

// DefaultSimConfig returns a bright line on a dark floor that drifts slowly
// to the right.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Background: 30,
		Contrast:   120,
		LineWidth:  0.45,
		Curvature:  0.3,
		SteerGain:  4.0,
	}
}

// SimTrack is an in-process car driving along a line. The three grayscale
// channels sit at lateral positions -1, 0, +1; offset is the line position
// relative to the middle sensor (positive means the line is to the right).
// The model advances whenever the left channel is read, which happens once
// per sampling iteration.
type SimTrack struct {
	cfg SimConfig
	now func() time.Time

	mu     sync.Mutex
	offset float64
	angle  float64
	power  int
	last   time.Time
}

// NewSimTrack creates a simulated track with the line centred.
func NewSimTrack(cfg SimConfig) *SimTrack {
	return &SimTrack{cfg: cfg, now: time.Now}
}

// advance integrates the lateral dynamics up to now. Caller holds mu.
func (s *SimTrack) advance() {
	now := s.now()
	if s.last.IsZero() {
		s.last = now
		return
	}
	dt := now.Sub(s.last).Seconds()
	s.last = now

	speed := float64(s.power) / 100
	s.offset += (s.cfg.Curvature - s.cfg.SteerGain*math.Sin(s.angle*math.Pi/180)) * speed * dt
}

// ReadAnalog implements AnalogReader.
func (s *SimTrack) ReadAnalog(channel int) (float64, error) {
	if channel < ChannelLeft || channel > ChannelRight {
		return 0, &ReadError{Channel: channel, Err: ErrBadReply}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if channel == ChannelLeft {
		s.advance()
	}

	pos := float64(channel - ChannelMid)
	d := pos - s.offset
	w := s.cfg.LineWidth
	if w <= 0 {
		w = 0.45
	}
	return s.cfg.Background + s.cfg.Contrast*math.Exp(-d*d/(2*w*w)), nil
}

// SetSteeringAngle implements Steerer.
func (s *SimTrack) SetSteeringAngle(deg float64) error {
	s.mu.Lock()
	s.advance()
	s.angle = deg
	s.mu.Unlock()
	return nil
}

// Forward implements Driver.
func (s *SimTrack) Forward(power int) error {
	if err := checkPower(power); err != nil {
		return err
	}
	s.mu.Lock()
	s.advance()
	s.power = power
	s.mu.Unlock()
	return nil
}

// Backward implements Driver.
func (s *SimTrack) Backward(power int) error {
	if err := checkPower(power); err != nil {
		return err
	}
	s.mu.Lock()
	s.advance()
	s.power = -power
	s.mu.Unlock()
	return nil
}

// Stop implements Driver.
func (s *SimTrack) Stop() error {
	s.mu.Lock()
	s.advance()
	s.power = 0
	s.mu.Unlock()
	return nil
}

// SetOffset moves the line relative to the car.
func (s *SimTrack) SetOffset(offset float64) {
	s.mu.Lock()
	s.offset = offset
	s.mu.Unlock()
}

// Offset returns the current line offset.
func (s *SimTrack) Offset() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Angle returns the last commanded steering angle.
func (s *SimTrack) Angle() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.angle
}

// Power returns the signed drive power (negative when reversing).
func (s *SimTrack) Power() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.power
}
