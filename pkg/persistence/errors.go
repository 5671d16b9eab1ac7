// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkspaceNotFound indicates a workspace was not found by the given identifier.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrWorkflowRunNotFound indicates a workflow run was not found by the given identifier.
	ErrWorkflowRunNotFound = errors.New("workflow run not found")

	// ErrGenerationNotFound indicates a generation was not found by the given identifier.
	ErrGenerationNotFound = errors.New("generation not found")

	// ErrNodeGenerationNotFound indicates no generation index entry exists for the node.
	ErrNodeGenerationNotFound = errors.New("node generation index entry not found")
)

// WorkspaceError wraps workspace-related errors with additional context.
type WorkspaceError struct {
	Op          string // Operation being performed (e.g., "WorkspaceByID", "SaveWorkspace")
	WorkspaceID string
	Err         error
}

func (e *WorkspaceError) Error() string {
	return fmt.Sprintf("%s operation failed for workspace %s: %v", e.Op, e.WorkspaceID, e.Err)
}

func (e *WorkspaceError) Unwrap() error {
	return e.Err
}

func (e *WorkspaceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkspaceError creates a new workspace error with context.
func NewWorkspaceError(op, workspaceID string, err error) *WorkspaceError {
	return &WorkspaceError{Op: op, WorkspaceID: workspaceID, Err: err}
}

// RunError wraps workflow-run-related errors with additional context.
type RunError struct {
	Op    string
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s operation failed for workflow run %s: %v", e.Op, e.RunID, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func (e *RunError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRunError creates a new workflow run error with context.
func NewRunError(op, runID string, err error) *RunError {
	return &RunError{Op: op, RunID: runID, Err: err}
}

// GenerationError wraps generation-related errors with additional context.
type GenerationError struct {
	Op           string
	GenerationID string
	NodeID       string
	Err          error
}

func (e *GenerationError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s operation failed for generation %s (node %s): %v", e.Op, e.GenerationID, e.NodeID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for generation %s: %v", e.Op, e.GenerationID, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewGenerationError creates a new generation error with context.
func NewGenerationError(op, generationID string, err error) *GenerationError {
	return &GenerationError{Op: op, GenerationID: generationID, Err: err}
}

// NewNodeGenerationError creates a generation error scoped to a node's index
// entry rather than a specific generation record.
func NewNodeGenerationError(op, nodeID string, err error) *GenerationError {
	return &GenerationError{Op: op, NodeID: nodeID, Err: err}
}

// IsWorkspaceNotFound checks if an error indicates a workspace was not found.
func IsWorkspaceNotFound(err error) bool {
	return errors.Is(err, ErrWorkspaceNotFound)
}

// IsWorkflowRunNotFound checks if an error indicates a workflow run was not found.
func IsWorkflowRunNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowRunNotFound)
}

// IsGenerationNotFound checks if an error indicates a generation was not found.
func IsGenerationNotFound(err error) bool {
	return errors.Is(err, ErrGenerationNotFound)
}

// IsNodeGenerationNotFound checks if an error indicates a missing index entry.
func IsNodeGenerationNotFound(err error) bool {
	return errors.Is(err, ErrNodeGenerationNotFound)
}
