package linefollow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teslashibe/go-picarx/internal/log"
	"github.com/teslashibe/go-picarx/pkg/bus"
)

// EstimatorConfig configures the line-state estimator.
type EstimatorConfig struct {
	Polarity Polarity
	// Sensitivity is accepted for configuration compatibility; the filter
	// thresholds are fixed and it has no effect yet.
	Sensitivity *float64
	Hz          float64
	Logger      *slog.Logger
}

// Estimator turns calibrated readings into a line state.
type Estimator struct {
	in     *bus.Bus[Reading]
	out    *bus.Bus[LineState]
	cfg    EstimatorConfig
	period time.Duration
	log    *slog.Logger
	stats  Stats
}

// NewEstimator creates the estimator loop. It does not start it.
func NewEstimator(in *bus.Bus[Reading], out *bus.Bus[LineState], cfg EstimatorConfig) (*Estimator, error) {
	if !cfg.Polarity.Valid() {
		return nil, ErrInvalidPolarity
	}
	period, err := periodFor(cfg.Hz)
	if err != nil {
		return nil, err
	}
	return &Estimator{
		in:     in,
		out:    out,
		cfg:    cfg,
		period: period,
		log:    log.Or(cfg.Logger).With("loop", "estimator"),
	}, nil
}

// Estimate filters and classifies one reading. An impossible pattern is
// logged and reported as NoLine.
func (e *Estimator) Estimate(r Reading) LineState {
	p := Filter(r, e.cfg.Polarity)
	state, err := Classify(p)
	if errors.Is(err, ErrImpossiblePattern) {
		e.stats.addError()
		e.log.Warn("impossible filter pattern, treating as lost line", "pattern", p.String(), "reading", r)
	}
	e.log.Debug("line state estimated", "reading", r, "pattern", p.String(), "state", state.String())
	return state
}

// Run estimates at the configured frequency until ctx is cancelled.
func (e *Estimator) Run(ctx context.Context) error {
	e.log.Info("estimator loop started", "hz", e.cfg.Hz, "polarity", e.cfg.Polarity.String())
	err := runPeriodic(ctx, e.period, &e.stats, func() error {
		e.out.Write(e.Estimate(e.in.Read()))
		return nil
	})
	e.log.Info("estimator loop ended", "iterations", e.stats.iterations.Load())
	return err
}

// Stats returns the loop's diagnostics.
func (e *Estimator) Stats() StatsSnapshot {
	return e.stats.Snapshot()
}
