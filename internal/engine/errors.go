package engine

import "fmt"

// PreconditionError is a configuration problem detected before a run starts.
// Runs failing a precondition never reach the login phase.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s", e.Reason)
}

// RunInProgressError rejects a trigger while a run of the same direction is
// active.
type RunInProgressError struct {
	Direction string
}

func (e *RunInProgressError) Error() string {
	return fmt.Sprintf("a %s run is already in progress", e.Direction)
}
