// Package generation implements the lifecycle of a single executor
// invocation: created → queued → running → {completed | failed | cancelled}.
// Transitions are pure functions producing new immutable records; persistence
// of a record together with its node generation index happens in Store.
package generation

import (
	"errors"
	"fmt"
	"time"

	"github.com/braidhq/braid/pkg/identifier"
	"github.com/braidhq/braid/pkg/models"
)

var (
	// ErrAlreadyTerminal indicates a transition attempt on a completed,
	// failed or cancelled generation. Terminal records reject mutation loudly
	// instead of silently overwriting.
	ErrAlreadyTerminal = errors.New("generation already in terminal status")

	// ErrInvalidTransition indicates a transition the lifecycle does not
	// permit from the current status.
	ErrInvalidTransition = errors.New("invalid generation status transition")
)

// TransitionError reports a rejected generation transition.
type TransitionError struct {
	GenerationID string
	From         models.GenerationStatus
	To           models.GenerationStatus
	Err          error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("generation %s: cannot transition from %s to %s: %v", e.GenerationID, e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// New creates a generation in the created state.
func New(generateID identifier.Generator, genCtx models.GenerationContext) *models.Generation {
	if generateID == nil {
		generateID = identifier.Default
	}

	return &models.Generation{
		ID:        generateID(identifier.PrefixGeneration),
		Status:    models.GenerationStatusCreated,
		Context:   genCtx,
		CreatedAt: time.Now(),
	}
}

// Queue transitions created → queued.
func Queue(g *models.Generation) (*models.Generation, error) {
	if err := guard(g, models.GenerationStatusCreated, models.GenerationStatusQueued); err != nil {
		return nil, err
	}

	next := clone(g)
	now := time.Now()
	next.Status = models.GenerationStatusQueued
	next.QueuedAt = &now

	return next, nil
}

// Run transitions queued → running, sets startedAt and clears any prior
// message history.
func Run(g *models.Generation) (*models.Generation, error) {
	if err := guard(g, models.GenerationStatusQueued, models.GenerationStatusRunning); err != nil {
		return nil, err
	}

	next := clone(g)
	now := time.Now()
	next.Status = models.GenerationStatusRunning
	next.StartedAt = &now
	next.Messages = nil

	return next, nil
}

// Complete transitions running → completed, appending the executor's final
// messages (prompt plus response) to the record.
func Complete(g *models.Generation, messages []models.Message) (*models.Generation, error) {
	if err := guard(g, models.GenerationStatusRunning, models.GenerationStatusCompleted); err != nil {
		return nil, err
	}

	next := clone(g)
	now := time.Now()
	next.Status = models.GenerationStatusCompleted
	next.CompletedAt = &now
	next.Messages = append(next.Messages, messages...)

	return next, nil
}

// Fail transitions running → failed, capturing the structured executor error.
func Fail(g *models.Generation, genErr models.GenerationError) (*models.Generation, error) {
	if err := guard(g, models.GenerationStatusRunning, models.GenerationStatusFailed); err != nil {
		return nil, err
	}

	next := clone(g)
	now := time.Now()
	next.Status = models.GenerationStatusFailed
	next.FailedAt = &now
	next.Error = &genErr

	return next, nil
}

// Cancel transitions any non-terminal status → cancelled.
func Cancel(g *models.Generation) (*models.Generation, error) {
	if g.Status.IsTerminal() {
		return nil, &TransitionError{
			GenerationID: g.ID,
			From:         g.Status,
			To:           models.GenerationStatusCancelled,
			Err:          ErrAlreadyTerminal,
		}
	}

	next := clone(g)
	now := time.Now()
	next.Status = models.GenerationStatusCancelled
	next.CancelledAt = &now

	return next, nil
}

// IndexFor derives the node generation index entry for a record. The index is
// the lightweight "latest generation of node X" pointer persisted alongside
// the record.
func IndexFor(g *models.Generation) *models.NodeGenerationIndex {
	index := &models.NodeGenerationIndex{
		GenerationID: g.ID,
		Origin:       g.Context.Origin,
		Status:       g.Status,
		CreatedAt:    g.CreatedAt,
		QueuedAt:     g.QueuedAt,
		StartedAt:    g.StartedAt,
		CompletedAt:  g.CompletedAt,
		FailedAt:     g.FailedAt,
		CancelledAt:  g.CancelledAt,
	}

	if g.Context.OperationNode != nil {
		index.NodeID = g.Context.OperationNode.ID
	}

	return index
}

func guard(g *models.Generation, from, to models.GenerationStatus) error {
	if g.Status.IsTerminal() {
		return &TransitionError{GenerationID: g.ID, From: g.Status, To: to, Err: ErrAlreadyTerminal}
	}

	if g.Status != from {
		return &TransitionError{GenerationID: g.ID, From: g.Status, To: to, Err: ErrInvalidTransition}
	}

	return nil
}

func clone(g *models.Generation) *models.Generation {
	next := *g
	next.Messages = append([]models.Message(nil), g.Messages...)

	if g.Error != nil {
		errCopy := *g.Error
		next.Error = &errCopy
	}

	return &next
}
