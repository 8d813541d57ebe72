package monitor

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-picarx/pkg/pipeline"
)

// Format renders a snapshot as a single status line.
func Format(s pipeline.Snapshot) string {
	var b strings.Builder

	state := "stopped"
	if s.Running {
		state = "running"
	}
	fmt.Fprintf(&b, "%-7s line=%-7s", state, s.LineState)
	fmt.Fprintf(&b, " raw=[%6.1f %6.1f %6.1f]", s.Reading[0], s.Reading[1], s.Reading[2])
	if s.SteeringAngle != nil {
		fmt.Fprintf(&b, " steer=%+6.2f", *s.SteeringAngle)
	} else {
		b.WriteString(" steer=   n/a")
	}
	for _, name := range []string{pipeline.WorkerSensing, pipeline.WorkerEstimator, pipeline.WorkerSteering} {
		if st, ok := s.Loops[name]; ok {
			fmt.Fprintf(&b, " %s=%d", name, st.Iterations)
			if st.Errors > 0 {
				fmt.Fprintf(&b, "/%derr", st.Errors)
			}
		}
	}
	if s.Error != "" {
		fmt.Fprintf(&b, " error=%q", s.Error)
	}
	return b.String()
}
