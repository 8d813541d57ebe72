// Package pipeline wires the three line-following loops together and owns
// their buses and lifecycle.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-picarx/internal/log"
	"github.com/teslashibe/go-picarx/pkg/bus"
	"github.com/teslashibe/go-picarx/pkg/hal"
	"github.com/teslashibe/go-picarx/pkg/linefollow"
)

// Worker names, as used in logs, errors and snapshots.
const (
	WorkerSensing   = "sensing"
	WorkerEstimator = "estimator"
	WorkerSteering  = "steering"
)

type worker struct {
	name string
	run  func(context.Context) error
}

// Pipeline owns the raw-reading bus, the line-state bus and the cancellation
// of the three loops reading and writing them.
type Pipeline struct {
	id       string
	cfg      Config
	log      *slog.Logger
	actuator hal.Actuator

	raw  *bus.Bus[linefollow.Reading]
	line *bus.Bus[linefollow.LineState]

	sensing   *linefollow.Sensing
	estimator *linefollow.Estimator
	steering  *linefollow.Steering
	workers   []worker

	mu        sync.Mutex
	started   bool
	starting  bool
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
}

// New validates cfg and builds the buses and loops. Nothing runs until Start.
func New(cfg Config, sensor hal.AnalogReader, actuator hal.Actuator, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:      cfg,
		actuator: actuator,
		raw:      bus.New(linefollow.Reading{}),
		line:     bus.New(linefollow.Centered),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.id == "" {
		p.id = uuid.New().String()
	}
	p.log = log.Or(p.log).With("component", "pipeline", "run_id", p.id)

	var err error
	p.sensing, err = linefollow.NewSensing(sensor, p.raw, linefollow.SensingConfig{
		Channels:  cfg.Channels,
		Reference: cfg.Reference,
		Hz:        cfg.SensorHz,
		Logger:    p.log,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: sensing: %w", err)
	}
	p.estimator, err = linefollow.NewEstimator(p.raw, p.line, linefollow.EstimatorConfig{
		Polarity:    cfg.Polarity,
		Sensitivity: cfg.Sensitivity,
		Hz:          cfg.EstimatorHz,
		Logger:      p.log,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: estimator: %w", err)
	}
	p.steering, err = linefollow.NewSteering(p.line, actuator, linefollow.SteeringConfig{
		Scale:        cfg.Scale,
		MaxTurnAngle: cfg.MaxTurnAngle,
		Hz:           cfg.SteeringHz,
		Logger:       p.log,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: steering: %w", err)
	}

	p.workers = []worker{
		{WorkerSensing, p.sensing.Run},
		{WorkerEstimator, p.estimator.Run},
		{WorkerSteering, p.steering.Run},
	}
	return p, nil
}

// ID returns the run identifier.
func (p *Pipeline) ID() string {
	return p.id
}

// Config returns the configuration the pipeline was built with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Start issues the initial forward command and launches the three loops.
// It returns immediately; use Wait or Stop to observe termination. If one
// loop dies the others are cancelled.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started || p.starting {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.starting = true
	p.mu.Unlock()

	// Forward may be a network call; Snapshot and Stop must not wait on it.
	err := p.actuator.Forward(p.cfg.DrivePower)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.starting = false
	if err != nil {
		return fmt.Errorf("pipeline: initial forward: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	for _, w := range p.workers {
		g.Go(func() error {
			if err := w.run(gctx); err != nil {
				p.log.Error("worker died", "worker", w.name, "error", err)
				return &WorkerError{Worker: w.name, Err: err}
			}
			return nil
		})
	}

	p.started = true
	p.startedAt = time.Now()
	p.cancel = cancel
	p.log.Info("pipeline started",
		"sensor_hz", p.cfg.SensorHz,
		"estimator_hz", p.cfg.EstimatorHz,
		"steering_hz", p.cfg.SteeringHz,
		"drive_power", p.cfg.DrivePower,
	)

	go func() {
		err := g.Wait()
		cancel()
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
		if err != nil {
			p.log.Error("pipeline ended", "error", err)
		} else {
			p.log.Info("pipeline ended")
		}
	}()
	return nil
}

// Stop cancels the loops and waits for all of them to exit. Each loop exits
// at its next iteration boundary, so Stop can take up to one period of the
// slowest loop. It returns the first worker failure, if any.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancel
	p.mu.Unlock()

	p.log.Info("pipeline stopping")
	cancel()
	return p.Wait()
}

// Wait blocks until every loop has exited.
func (p *Pipeline) Wait() error {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return ErrNotStarted
	}

	<-p.done
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Done is closed once every loop has exited.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Snapshot is a telemetry view of the pipeline. Each field is read under its
// own lock; the snapshot as a whole is not atomic.
type Snapshot struct {
	RunID          string                              `json:"run_id"`
	Running        bool                                `json:"running"`
	StartedAt      time.Time                           `json:"started_at"`
	Reading        linefollow.Reading                  `json:"reading"`
	ReadingVersion uint64                              `json:"reading_version"`
	LineState      linefollow.LineState                `json:"line_state"`
	LineVersion    uint64                              `json:"line_version"`
	SteeringAngle  *float64                            `json:"steering_angle,omitempty"`
	Loops          map[string]linefollow.StatsSnapshot `json:"loops"`
	Error          string                              `json:"error,omitempty"`
}

// Snapshot returns the current telemetry view.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	snap := Snapshot{
		RunID:     p.id,
		StartedAt: p.startedAt,
	}
	if p.err != nil {
		snap.Error = p.err.Error()
	}
	started := p.started
	p.mu.Unlock()

	select {
	case <-p.done:
	default:
		snap.Running = started
	}

	snap.Reading, snap.ReadingVersion = p.raw.ReadVersion()
	snap.LineState, snap.LineVersion = p.line.ReadVersion()
	if angle, ok := p.steering.LastAngle(); ok {
		snap.SteeringAngle = &angle
	}
	snap.Loops = map[string]linefollow.StatsSnapshot{
		WorkerSensing:   p.sensing.Stats(),
		WorkerEstimator: p.estimator.Stats(),
		WorkerSteering:  p.steering.Stats(),
	}
	return snap
}
