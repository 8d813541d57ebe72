package linefollow

import "errors"

// Configuration errors. These are returned from constructors and are fatal
// to startup.
var (
	// ErrInvalidReference is returned when a reference calibration does not
	// have exactly 1 (broadcast) or 3 finite values.
	ErrInvalidReference = errors.New("linefollow: reference must be 1 or 3 finite values")

	// ErrInvalidFrequency is returned for a loop frequency that is not a
	// positive finite number.
	ErrInvalidFrequency = errors.New("linefollow: frequency must be positive")

	// ErrInvalidPolarity is returned for a polarity other than 0 or 1.
	ErrInvalidPolarity = errors.New("linefollow: polarity must be 0 (dark line) or 1 (bright line)")

	// ErrInvalidTurnAngle is returned for a max turn angle that is not a
	// positive finite number.
	ErrInvalidTurnAngle = errors.New("linefollow: max turn angle must be positive")

	// ErrInvalidScale is returned for a zero or non-finite steering scale.
	// A negative scale is allowed and inverts the servo.
	ErrInvalidScale = errors.New("linefollow: steering scale must be finite and non-zero")

	// ErrInvalidChannels is returned when the left, mid and right ADC
	// channels are negative or not distinct.
	ErrInvalidChannels = errors.New("linefollow: sensor channels must be three distinct non-negative indexes")
)

// ErrImpossiblePattern is reported by Classify for the left+right pattern
// that the filter should never produce. It is degraded to NoLine and logged,
// never propagated out of a loop.
var ErrImpossiblePattern = errors.New("linefollow: filter produced an impossible pattern")
