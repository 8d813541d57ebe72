package linefollow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-picarx/internal/log"
	"github.com/teslashibe/go-picarx/pkg/bus"
	"github.com/teslashibe/go-picarx/pkg/hal"
)

// schedulingSlack absorbs goroutine wake-up and step execution time on a
// loaded test machine.
const schedulingSlack = 100 * time.Millisecond

// A change on the raw bus reaches the servo within one estimator period plus
// one steering period.
func TestLoops_BoundedStaleness(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	raw := bus.New(Reading{0, 100, 0}) // centred, bright line
	line := bus.New(NoLine)
	act := hal.NewMockActuator()

	est, err := NewEstimator(raw, line, EstimatorConfig{Polarity: BrightLine, Hz: 5, Logger: log.Discard()})
	require.NoError(t, err)
	steer, err := NewSteering(line, act, SteeringConfig{Scale: 1, MaxTurnAngle: 30, Hz: 2, Logger: log.Discard()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, run := range []func(context.Context) error{est.Run, steer.Run} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = run(ctx)
		}()
	}
	defer func() {
		cancel()
		wg.Wait()
	}()

	require.Eventually(t, func() bool {
		a := act.Angles()
		return len(a) > 0 && a[len(a)-1] == 0
	}, 2*time.Second, 10*time.Millisecond, "controller never settled on centre")

	transition := time.Now()
	raw.Write(Reading{0, 20, 120}) // line fully right

	bound := time.Second/5 + time.Second/2
	require.Eventually(t, func() bool {
		return act.CallCount("SetSteeringAngle") > 0 && lastAngle(act) == 30
	}, bound+time.Second, 10*time.Millisecond)

	var reflected time.Time
	for _, c := range act.Calls() {
		if c.Method == "SetSteeringAngle" && c.Angle == 30 && c.Time.After(transition) {
			reflected = c.Time
			break
		}
	}
	require.False(t, reflected.IsZero())
	assert.LessOrEqual(t, reflected.Sub(transition), bound+schedulingSlack)
}

func lastAngle(act *hal.MockActuator) float64 {
	a := act.Angles()
	return a[len(a)-1]
}
