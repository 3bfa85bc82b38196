// internal/agent/errors.go
package agent

import "errors"

// Policy-level terminal failures, distinguishable from normal completion.
var (
	// ErrTooManyErrors trips when, after step 3, 3 or more of the last 5
	// history entries carry an error flag. The window is trailing, not a
	// strict consecutive run.
	ErrTooManyErrors = errors.New("too many errors in recent steps")

	// ErrMaxStepsReached reports that the step budget was exhausted without
	// the decision service declaring the task done.
	ErrMaxStepsReached = errors.New("reached maximum steps without completing task")
)
