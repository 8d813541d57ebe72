package linefollow

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// Loop states reported in Stats.
const (
	StateIdle    = "idle"
	StateRunning = "running"
	StateStopped = "stopped"
	StateFailed  = "failed"
)

// Stats holds per-loop diagnostics. Safe for concurrent use.
type Stats struct {
	iterations atomic.Uint64
	errors     atomic.Uint64
	lastRun    atomic.Int64 // unix nanos
	state      atomic.Value // string
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	State      string    `json:"state"`
	Iterations uint64    `json:"iterations"`
	Errors     uint64    `json:"errors"`
	LastRun    time.Time `json:"last_run"`
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		State:      StateIdle,
		Iterations: s.iterations.Load(),
		Errors:     s.errors.Load(),
	}
	if st, ok := s.state.Load().(string); ok {
		snap.State = st
	}
	if ns := s.lastRun.Load(); ns != 0 {
		snap.LastRun = time.Unix(0, ns)
	}
	return snap
}

func (s *Stats) setState(st string) { s.state.Store(st) }

func (s *Stats) addError() { s.errors.Add(1) }

// periodFor converts a loop frequency to its sleep period.
func periodFor(hz float64) (time.Duration, error) {
	if hz <= 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return 0, fmt.Errorf("%w: got %v Hz", ErrInvalidFrequency, hz)
	}
	return time.Duration(float64(time.Second) / hz), nil
}

// runPeriodic calls step, then sleeps period, until ctx is cancelled or step
// fails. ctx is checked once per iteration before step; an in-flight step or
// sleep is not interrupted. Cancellation is a clean exit (nil).
func runPeriodic(ctx context.Context, period time.Duration, stats *Stats, step func() error) error {
	stats.setState(StateRunning)
	for {
		if ctx.Err() != nil {
			stats.setState(StateStopped)
			return nil
		}
		if err := step(); err != nil {
			stats.addError()
			stats.setState(StateFailed)
			return err
		}
		stats.iterations.Add(1)
		stats.lastRun.Store(time.Now().UnixNano())
		time.Sleep(period)
	}
}
