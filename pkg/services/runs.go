package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/braidhq/braid/pkg/eventbus"
	"github.com/braidhq/braid/pkg/events"
	"github.com/braidhq/braid/pkg/identifier"
	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/persistence"
	"github.com/braidhq/braid/pkg/workflow"
)

// Runs is the application service for workflow runs. It turns a workspace's
// derived workflows into runnable snapshots and applies retry requests.
type Runs struct {
	persistence persistence.Persistence
	runBuilder  *workflow.RunBuilder
	runner      *workflow.Runner
	eventBus    eventbus.EventBus
	logger      *slog.Logger
}

func NewRuns(p persistence.Persistence, generateID identifier.Generator, logger *slog.Logger) *Runs {
	return &Runs{
		persistence: p,
		runBuilder:  workflow.NewRunBuilder(generateID),
		runner:      workflow.NewRunner(logger),
		logger:      logger.With("module", "services.runs"),
	}
}

// WithEventBus enables lifecycle event publication for operations that happen
// outside a coordinator loop, like cancellation.
func (s *Runs) WithEventBus(bus eventbus.EventBus) *Runs {
	s.eventBus = bus

	return s
}

// Create builds and persists a queued run for one of the workspace's
// workflows. The run snapshots the workflow's operation nodes, so later
// workspace edits do not affect it.
func (s *Runs) Create(ctx context.Context, workspaceID, workflowID string) (*models.WorkflowRun, *models.Workflow, error) {
	ws, err := s.persistence.WorkspaceByID(ctx, workspaceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch workspace %s: %w", workspaceID, err)
	}

	wf, ok := ws.EditingWorkflows[workflowID]
	if !ok {
		return nil, nil, &ServiceError{Op: "Create", Message: "workflow " + workflowID, Err: ErrWorkflowNotFound}
	}

	run := s.runBuilder.BuildWorkflowRun(wf)

	if err := s.persistence.SaveWorkflowRun(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("failed to save workflow run: %w", err)
	}

	s.logger.InfoContext(ctx, "Workflow run created",
		"workspace_id", workspaceID,
		"workflow_id", workflowID,
		"workflow_run_id", run.ID)

	return run, wf, nil
}

// CreateForNode builds a run for whichever workflow contains the given
// operation node. This is the path the canvas uses when the user runs a
// single node's pipeline.
func (s *Runs) CreateForNode(ctx context.Context, workspaceID, nodeID string) (*models.WorkflowRun, *models.Workflow, error) {
	ws, err := s.persistence.WorkspaceByID(ctx, workspaceID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch workspace %s: %w", workspaceID, err)
	}

	for id, wf := range ws.EditingWorkflows {
		for _, job := range wf.Jobs {
			for _, step := range job.Steps {
				if step.NodeID == nodeID {
					return s.Create(ctx, workspaceID, id)
				}
			}
		}
	}

	return nil, nil, &ServiceError{Op: "CreateForNode", Message: "no workflow contains node " + nodeID, Err: ErrWorkflowNotFound}
}

// Get fetches a run by ID.
func (s *Runs) Get(ctx context.Context, id string) (*models.WorkflowRun, error) {
	return s.persistence.WorkflowRunByID(ctx, id)
}

// ListByWorkspace returns all runs recorded for the workspace.
func (s *Runs) ListByWorkspace(ctx context.Context, workspaceID string) ([]*models.WorkflowRun, error) {
	return s.persistence.WorkflowRunsByWorkspace(ctx, workspaceID)
}

// Cancel cancels a run and all of its non-terminal work.
func (s *Runs) Cancel(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	run, err := s.persistence.WorkflowRunByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow run %s: %w", runID, err)
	}

	if err := s.runner.CancelRun(run); err != nil {
		return nil, err
	}

	if err := s.persistence.SaveWorkflowRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save workflow run: %w", err)
	}

	s.publishCancelled(ctx, run)

	return run, nil
}

// publishCancelled emits run.cancelled after the cancelled run is persisted,
// matching the coordinator's persist-then-publish ordering for the other run
// outcomes.
func (s *Runs) publishCancelled(ctx context.Context, run *models.WorkflowRun) {
	if s.eventBus == nil {
		return
	}

	event := events.RunCancelled{
		BaseEvent: events.BaseEvent{
			ID:            s.eventBus.GenerateID(),
			Type:          events.RunCancelledEvent,
			Timestamp:     time.Now(),
			WorkspaceID:   run.WorkspaceID,
			WorkflowRunID: run.ID,
		},
	}

	if err := s.eventBus.Publish(ctx, run.ID, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

// RetryStep requeues a failed or cancelled step and moves its job and run
// back to inProgress. The returned run is persisted but not re-executed;
// dispatching it again is the caller's decision.
func (s *Runs) RetryStep(ctx context.Context, runID, stepRunID string) (*models.WorkflowRun, error) {
	run, err := s.persistence.WorkflowRunByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow run %s: %w", runID, err)
	}

	if err := s.runner.RetryStep(run, stepRunID); err != nil {
		return nil, err
	}

	if err := s.persistence.SaveWorkflowRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save workflow run: %w", err)
	}

	s.logger.InfoContext(ctx, "Step requeued for retry",
		"workflow_run_id", runID,
		"step_run_id", stepRunID)

	return run, nil
}
