package workflow

import "errors"

var (
	// ErrNotFound is returned when a task, phase, or workflow referenced
	// by id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIllegalTransition is returned when no transition edge exists
	// between the current and requested phase.
	ErrIllegalTransition = errors.New("illegal phase transition")

	// ErrWorkflowInUse is returned when deleting a workflow that at least
	// one task still references.
	ErrWorkflowInUse = errors.New("workflow in use by tasks")

	// ErrUnauthorized is returned when the acting user is not permitted
	// to act on the target phase.
	ErrUnauthorized = errors.New("user not authorized for phase")

	// ErrConflict is returned when a concurrent move already advanced the
	// task; the caller should reload and retry.
	ErrConflict = errors.New("task was modified concurrently")
)
