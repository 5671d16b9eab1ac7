// Package services provides the application layer over workspaces and runs:
// graph mutations with synchronous workflow recomputation, run creation, and
// standardized service errors.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInvalidNode       = errors.New("invalid node")
	ErrInvalidConnection = errors.New("invalid connection")
	ErrWorkspaceNil      = errors.New("workspace cannot be nil")

	// Referential errors (404 Not Found at the API boundary).
	ErrNodeNotFound       = errors.New("node not found")
	ErrConnectionNotFound = errors.New("connection not found")
	ErrWorkflowNotFound   = errors.New("workflow not found")

	// Business logic conflicts (409 Conflict).
	ErrInputSlotOccupied = errors.New("input slot already has a connection")
	ErrSelfConnection    = errors.New("connection cannot join a node to itself")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error should surface as HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidNode) ||
		errors.Is(err, ErrInvalidConnection) ||
		errors.Is(err, ErrWorkspaceNil)
}

// IsNotFoundError checks if an error should surface as HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNodeNotFound) ||
		errors.Is(err, ErrConnectionNotFound) ||
		errors.Is(err, ErrWorkflowNotFound)
}

// IsConflictError checks if an error should surface as HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrInputSlotOccupied) ||
		errors.Is(err, ErrSelfConnection)
}
