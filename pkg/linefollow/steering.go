package linefollow

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-picarx/internal/log"
	"github.com/teslashibe/go-picarx/pkg/bus"
	"github.com/teslashibe/go-picarx/pkg/hal"
)

// errorLogInterval throttles repeated actuator error logs.
const errorLogInterval = 5 * time.Second

// SteeringConfig configures the steering controller.
type SteeringConfig struct {
	Scale        float64 // Gain on top of MaxTurnAngle; negative for an inverted servo
	MaxTurnAngle float64 // Degrees; commands are clamped to ±MaxTurnAngle
	Hz           float64
	Logger       *slog.Logger
}

// SteeringAngle returns the command for a line state: state³ · maxTurn ·
// scale, clamped to ±maxTurn. ok is false for NoLine, in which case no
// command should be issued.
func SteeringAngle(state LineState, maxTurn, scale float64) (angle float64, ok bool) {
	if state.Lost {
		return 0, false
	}
	angle = math.Pow(state.Position, 3) * maxTurn * scale
	return math.Max(-maxTurn, math.Min(maxTurn, angle)), true
}

// ValidateScale checks a steering scale. Negative values are accepted.
func ValidateScale(scale float64) error {
	if scale == 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return ErrInvalidScale
	}
	return nil
}

// Steering reads the line state and commands the steering servo.
type Steering struct {
	in     *bus.Bus[LineState]
	act    hal.Steerer
	cfg    SteeringConfig
	period time.Duration
	log    *slog.Logger
	stats  Stats

	mu            sync.Mutex
	lastAngle     float64
	hasAngle      bool
	lastErrorTime time.Time
}

// NewSteering creates the steering loop. It does not start it.
func NewSteering(in *bus.Bus[LineState], act hal.Steerer, cfg SteeringConfig) (*Steering, error) {
	if !(cfg.MaxTurnAngle > 0) || math.IsInf(cfg.MaxTurnAngle, 0) {
		return nil, ErrInvalidTurnAngle
	}
	if err := ValidateScale(cfg.Scale); err != nil {
		return nil, err
	}
	period, err := periodFor(cfg.Hz)
	if err != nil {
		return nil, err
	}
	return &Steering{
		in:     in,
		act:    act,
		cfg:    cfg,
		period: period,
		log:    log.Or(cfg.Logger).With("loop", "steering"),
	}, nil
}

// Step runs one control cycle. A lost line holds the previous angle: nothing
// is sent. Actuator errors are counted and logged, not returned.
func (s *Steering) Step() {
	state := s.in.Read()
	angle, ok := SteeringAngle(state, s.cfg.MaxTurnAngle, s.cfg.Scale)
	if !ok {
		s.log.Debug("no line, holding steering angle")
		return
	}

	if err := s.act.SetSteeringAngle(angle); err != nil {
		s.stats.addError()
		s.mu.Lock()
		logNow := s.lastErrorTime.IsZero() || time.Since(s.lastErrorTime) > errorLogInterval
		if logNow {
			s.lastErrorTime = time.Now()
		}
		s.mu.Unlock()
		if logNow {
			s.log.Error("steering command failed", "angle", angle, "error", err, "total_errors", s.stats.errors.Load())
		}
		return
	}

	s.mu.Lock()
	s.lastAngle, s.hasAngle = angle, true
	s.mu.Unlock()
	s.log.Debug("steering angle set", "state", state.String(), "angle", angle)
}

// LastAngle returns the most recent successfully issued angle. ok is false
// until the first command succeeds.
func (s *Steering) LastAngle() (angle float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAngle, s.hasAngle
}

// Run steers at the configured frequency until ctx is cancelled.
func (s *Steering) Run(ctx context.Context) error {
	s.log.Info("steering loop started", "hz", s.cfg.Hz, "max_turn", s.cfg.MaxTurnAngle, "scale", s.cfg.Scale)
	err := runPeriodic(ctx, s.period, &s.stats, func() error {
		s.Step()
		return nil
	})
	s.log.Info("steering loop ended", "iterations", s.stats.iterations.Load())
	return err
}

// Stats returns the loop's diagnostics.
func (s *Steering) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}
