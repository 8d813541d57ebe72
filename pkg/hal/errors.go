package hal

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrClosed is returned when using a backend after Close.
	ErrClosed = errors.New("hal: backend closed")

	// ErrBadReply is returned when a device reply cannot be parsed.
	ErrBadReply = errors.New("hal: malformed reply")

	// ErrTimeout is returned when a device does not answer within the
	// request deadline.
	ErrTimeout = errors.New("hal: request timed out")

	// ErrInvalidPower is returned for drive power outside [0, 100].
	ErrInvalidPower = errors.New("hal: power must be within [0, 100]")
)

// ReadError reports a failed analog read on a specific channel.
type ReadError struct {
	Channel int
	Err     error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	return fmt.Sprintf("hal: read channel A%d: %v", e.Channel, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

// DeviceError is an error reported by the device itself (an "ERR" reply or a
// non-2xx HTTP status).
type DeviceError struct {
	Backend string
	Op      string
	Message string
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("hal [%s]: %s: %s", e.Backend, e.Op, e.Message)
}

func checkPower(power int) error {
	if power < 0 || power > 100 {
		return fmt.Errorf("%w: got %d", ErrInvalidPower, power)
	}
	return nil
}
