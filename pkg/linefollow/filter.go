package linefollow

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Filter thresholds, in calibrated sensor units.
const (
	// UniformSpread is the max-min spread below which all three sensors are
	// considered to see the same surface.
	UniformSpread = 10.0

	// LowSignalMean is the mean magnitude below which a uniform reading is
	// treated as "no contrast" rather than "saturated".
	LowSignalMean = 15.0
)

// Filter binarizes a reading. A channel is set when it deviates from the
// mean in the line's direction (strictly). A uniform reading is all-clear
// when its mean is small and all-set otherwise.
func Filter(r Reading, pol Polarity) Pattern {
	s := r[:]
	mean := floats.Sum(s) / float64(len(s))

	if floats.Max(s)-floats.Min(s) < UniformSpread {
		if math.Abs(mean) < LowSignalMean {
			return Pattern{}
		}
		return Pattern{true, true, true}
	}

	var p Pattern
	for i, x := range r {
		d := x - mean
		if pol == DarkLine {
			d = mean - x
		}
		p[i] = d > 0
	}
	return p
}

// Classify maps a pattern to a line state. Both all-clear and all-set are
// NoLine since full coverage and no signal are indistinguishable. Left+right
// without mid returns NoLine and ErrImpossiblePattern.
func Classify(p Pattern) (LineState, error) {
	left, mid, right := p[0], p[1], p[2]
	switch {
	case left && mid && right, !left && !mid && !right:
		return NoLine, nil
	case left && mid:
		return At(-0.5), nil
	case mid && right:
		return At(0.5), nil
	case mid:
		return At(0), nil
	case left && right:
		return NoLine, ErrImpossiblePattern
	case left:
		return At(-1), nil
	default:
		return At(1), nil
	}
}
