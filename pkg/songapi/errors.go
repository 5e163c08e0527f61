package songapi

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompleteResult is returned when a succeeded job doesn't carry the
	// expected music payload. It signals a remote contract break, not a
	// caller error.
	ErrIncompleteResult = errors.New("songapi: incomplete result")

	// ErrNotFinished is returned when a song is requested for a job that
	// hasn't reached a terminal state yet.
	ErrNotFinished = errors.New("songapi: job is not finished")

	// ErrWaitTimeout is returned when the configured maximum wait elapses
	// before the job reaches a terminal state.
	ErrWaitTimeout = errors.New("songapi: wait timed out")
)

// IntegrationError wraps a transport failure or an unexpected response shape.
// It keeps the raw response body so remote errors can be diagnosed without
// re-issuing the request.
type IntegrationError struct {
	Op   string
	Body string
	Err  error
}

func (e *IntegrationError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("songapi: %s failed (%s): %v", e.Op, e.Body, e.Err)
	}
	return fmt.Sprintf("songapi: %s failed: %v", e.Op, e.Err)
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}

// JobError is returned when the remote service reports a failed generation.
type JobError struct {
	JobID   string
	Message string
}

func (e *JobError) Error() string {
	return fmt.Sprintf("songapi: job %s failed: %s", e.JobID, e.Message)
}
