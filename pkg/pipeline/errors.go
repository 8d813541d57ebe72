package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for lifecycle misuse.
var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("pipeline: already started")

	// ErrNotStarted is returned by Wait before Start.
	ErrNotStarted = errors.New("pipeline: not started")
)

// WorkerError reports that one of the loops terminated with an error.
type WorkerError struct {
	Worker string
	Err    error
}

// Error implements the error interface.
func (e *WorkerError) Error() string {
	return fmt.Sprintf("pipeline: worker %s died: %v", e.Worker, e.Err)
}

// Unwrap returns the underlying error.
func (e *WorkerError) Unwrap() error {
	return e.Err
}
