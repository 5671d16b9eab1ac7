// Package workflow decomposes workspace graphs into executable workflows and
// schedules their runs: topological leveling, run instantiation, and the
// job/step state machine.
package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Standard workflow error types.
var (
	// ErrCyclicDependency indicates operation nodes that depend on each other
	// and therefore can never be leveled.
	ErrCyclicDependency = errors.New("cyclic dependency between operation nodes")

	// ErrAlreadyTerminal indicates a transition attempt on a run, job run or
	// step run that has reached a terminal status.
	ErrAlreadyTerminal = errors.New("already in terminal status")

	// ErrInvalidTransition indicates a transition the state machine does not
	// permit from the current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStepRunNotFound indicates a step run missing from the workflow run.
	ErrStepRunNotFound = errors.New("step run not found")

	// ErrJobRunNotFound indicates a job run missing from the workflow run.
	ErrJobRunNotFound = errors.New("job run not found")
)

// CyclicDependencyError reports the operation nodes left unleveled after
// topological sorting terminated. Leveling never silently drops work; a true
// cycle surfaces as this error.
type CyclicDependencyError struct {
	WorkspaceID string
	NodeIDs     []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("workspace %s: cyclic dependency between operation nodes [%s]",
		e.WorkspaceID, strings.Join(e.NodeIDs, ", "))
}

func (e *CyclicDependencyError) Unwrap() error {
	return ErrCyclicDependency
}

// TransitionError reports a rejected state transition with enough context to
// catch scheduler bugs early.
type TransitionError struct {
	Entity string // "workflowRun", "jobRun" or "stepRun"
	ID     string
	From   string
	To     string
	Err    error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s %s: cannot transition from %s to %s: %v", e.Entity, e.ID, e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// IsCyclicDependency checks if an error indicates a cycle among operation nodes.
func IsCyclicDependency(err error) bool {
	return errors.Is(err, ErrCyclicDependency)
}

// IsAlreadyTerminal checks if an error indicates a terminal-state violation.
func IsAlreadyTerminal(err error) bool {
	return errors.Is(err, ErrAlreadyTerminal)
}
