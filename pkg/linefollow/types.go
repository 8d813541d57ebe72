package linefollow

import (
	"fmt"
	"math"
	"strconv"
)

// Reading is one calibrated grayscale sample: left, mid, right, each the raw
// channel magnitude minus its reference offset.
type Reading [3]float64

// Reference is the per-channel offset subtracted from every raw sample.
type Reference [3]float64

// Broadcast returns a Reference with v on all three channels.
func Broadcast(v float64) Reference {
	return Reference{v, v, v}
}

// ParseReference converts a configured value list into a Reference. One value
// is broadcast to all channels; three values are used as-is. Any other length,
// or a NaN/Inf value, is ErrInvalidReference.
func ParseReference(values []float64) (Reference, error) {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Reference{}, fmt.Errorf("%w: got %v", ErrInvalidReference, values)
		}
	}
	switch len(values) {
	case 1:
		return Broadcast(values[0]), nil
	case 3:
		return Reference{values[0], values[1], values[2]}, nil
	default:
		return Reference{}, fmt.Errorf("%w: got %d values", ErrInvalidReference, len(values))
	}
}

// Apply subtracts the reference from a raw sample.
func (r Reference) Apply(raw [3]float64) Reading {
	return Reading{raw[0] - r[0], raw[1] - r[1], raw[2] - r[2]}
}

// Polarity selects whether the line is brighter or darker than the floor.
type Polarity int

const (
	// DarkLine is a line darker than its surroundings.
	DarkLine Polarity = 0
	// BrightLine is a line brighter than its surroundings.
	BrightLine Polarity = 1
)

// Valid reports whether p is DarkLine or BrightLine.
func (p Polarity) Valid() bool {
	return p == DarkLine || p == BrightLine
}

func (p Polarity) String() string {
	switch p {
	case DarkLine:
		return "dark"
	case BrightLine:
		return "bright"
	default:
		return "Polarity(" + strconv.Itoa(int(p)) + ")"
	}
}

// Pattern is the binarized filter output: which of left, mid, right see the
// line.
type Pattern [3]bool

func (p Pattern) String() string {
	b := []byte("000")
	for i, on := range p {
		if on {
			b[i] = '1'
		}
	}
	return string(b)
}

// LineState is the signed lateral position of the line relative to the
// middle sensor: -1 fully left, 0 centred, +1 fully right. Lost marks the
// no-line sentinel, in which case Position is meaningless.
type LineState struct {
	Position float64 `json:"position"`
	Lost     bool    `json:"lost"`
}

// NoLine is the sentinel for "line not detected or ambiguous".
var NoLine = LineState{Lost: true}

// Centered is the line directly under the middle sensor.
var Centered = LineState{}

// At returns a detected line state at pos.
func At(pos float64) LineState {
	return LineState{Position: pos}
}

func (s LineState) String() string {
	if s.Lost {
		return "no-line"
	}
	return strconv.FormatFloat(s.Position, 'f', 1, 64)
}
