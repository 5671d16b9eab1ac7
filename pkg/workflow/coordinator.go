package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/braidhq/braid/pkg/eventbus"
	"github.com/braidhq/braid/pkg/events"
	"github.com/braidhq/braid/pkg/generation"
	"github.com/braidhq/braid/pkg/identifier"
	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/persistence"
	"github.com/braidhq/braid/pkg/registry"
)

// Coordinator is the host-side loop that executes a workflow run to
// completion. The runner's transition functions are not thread-safe, so the
// coordinator serializes every mutation behind a per-run mutex while the
// steps of a job execute concurrently against the generation machine.
// Persistence happens at transition boundaries, events after persistence.
type Coordinator struct {
	persistence persistence.Persistence
	runner      *Runner
	machine     *generation.Machine
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	generateID  identifier.Generator
	executorID  string
	logger      *slog.Logger
}

func NewCoordinator(
	p persistence.Persistence,
	runner *Runner,
	machine *generation.Machine,
	reg *registry.Registry,
	bus eventbus.EventBus,
	executorID string,
	logger *slog.Logger,
) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		persistence: p,
		runner:      runner,
		machine:     machine,
		registry:    reg,
		eventBus:    bus,
		generateID:  identifier.Default,
		executorID:  executorID,
		logger:      logger.With("module", "run_coordinator"),
	}
}

// ExecuteRun drives a freshly built, queued run through every job level. The
// run record (persisted along the way) is the source of truth for the
// outcome; ExecuteRun returns an error only for infrastructure failures, not
// for step failures, which are captured in the run.
func (c *Coordinator) ExecuteRun(ctx context.Context, wf *models.Workflow, run *models.WorkflowRun) error {
	var mu sync.Mutex

	logger := c.logger.With("workflow_run_id", run.ID, "workflow_id", wf.ID)

	if err := c.runner.Start(run); err != nil {
		return err
	}

	if err := c.persistence.SaveWorkflowRun(ctx, run); err != nil {
		return fmt.Errorf("failed to persist started run: %w", err)
	}

	c.publish(ctx, run, events.RunStarted{
		BaseEvent:  c.baseEvent(events.RunStartedEvent, run),
		WorkflowID: wf.ID,
		JobCount:   len(run.JobRuns),
	})

	for {
		jobRun := nextQueuedJobRun(run)
		if jobRun == nil {
			break
		}

		if err := c.executeJob(ctx, &mu, wf, run, jobRun, logger); err != nil {
			return err
		}

		if run.Status != models.RunStatusInProgress {
			break
		}
	}

	switch run.Status {
	case models.RunStatusCompleted:
		c.publish(ctx, run, events.RunCompleted{
			BaseEvent: c.baseEvent(events.RunCompletedEvent, run),
			Duration:  runDuration(run),
		})
		logger.Info("Run completed")
	case models.RunStatusFailed:
		c.publish(ctx, run, events.RunFailed{
			BaseEvent: c.baseEvent(events.RunFailedEvent, run),
			StepRunID: firstFailedStepRunID(run),
			Error:     firstFailedStepError(run),
			Duration:  runDuration(run),
		})
		logger.Warn("Run failed")
	}

	return nil
}

func (c *Coordinator) executeJob(
	ctx context.Context,
	mu *sync.Mutex,
	wf *models.Workflow,
	run *models.WorkflowRun,
	jobRun *models.JobRun,
	logger *slog.Logger,
) error {
	mu.Lock()
	err := c.runner.StartJob(run, jobRun.ID)
	mu.Unlock()

	if err != nil {
		return err
	}

	if err := c.persistence.SaveWorkflowRun(ctx, run); err != nil {
		return fmt.Errorf("failed to persist job start: %w", err)
	}

	c.publish(ctx, run, events.JobStarted{
		BaseEvent: c.baseEvent(events.JobStartedEvent, run),
		JobRunID:  jobRun.ID,
		StepCount: len(jobRun.StepRuns),
	})

	// Steps within a job have no dependency between each other; run them
	// concurrently. All runner mutations stay behind the mutex.
	var wg sync.WaitGroup

	errs := make(chan error, len(jobRun.StepRuns))

	for _, stepRun := range jobRun.StepRuns {
		if stepRun.Status.IsTerminal() {
			continue
		}

		wg.Add(1)

		go func(stepRun *models.StepRun) {
			defer wg.Done()
			errs <- c.executeStep(ctx, mu, wf, run, jobRun, stepRun)
		}(stepRun)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}

	if err := c.persistence.SaveWorkflowRun(ctx, run); err != nil {
		return fmt.Errorf("failed to persist job completion: %w", err)
	}

	if jobRun.Status == models.StepStatusCompleted {
		c.publish(ctx, run, events.JobCompleted{
			BaseEvent: c.baseEvent(events.JobCompletedEvent, run),
			JobRunID:  jobRun.ID,
		})
	}

	logger.Info("Job finished", "job_run_id", jobRun.ID, "status", jobRun.Status)

	return nil
}

// executeStep runs one step's generation and applies the outcome to the run.
func (c *Coordinator) executeStep(
	ctx context.Context,
	mu *sync.Mutex,
	wf *models.Workflow,
	run *models.WorkflowRun,
	jobRun *models.JobRun,
	stepRun *models.StepRun,
) error {
	startedAt := time.Now()

	c.publish(ctx, run, events.StepStarted{
		BaseEvent: c.baseEvent(events.StepStartedEvent, run),
		JobRunID:  jobRun.ID,
		StepRunID: stepRun.ID,
		NodeID:    stepRun.NodeID,
		Attempt:   stepRun.Attempts,
	})

	terminal, execErr := c.runGeneration(ctx, wf, run, stepRun)

	mu.Lock()
	defer mu.Unlock()

	var applyErr error

	switch {
	case execErr != nil:
		applyErr = c.runner.FailStep(run, stepRun.ID, execErr.Error())
	case terminal.Status == models.GenerationStatusCompleted:
		applyErr = c.runner.CompleteStep(run, stepRun.ID)
	case terminal.Status == models.GenerationStatusFailed:
		applyErr = c.runner.FailStep(run, stepRun.ID, terminal.Error.Message)
	default:
		applyErr = c.runner.CancelStep(run, stepRun.ID)
	}

	// A step of an already-failed run may have been cancelled while this one
	// was in flight; that race is expected, not a scheduler bug.
	if applyErr != nil && !IsAlreadyTerminal(applyErr) {
		return applyErr
	}

	c.publish(ctx, run, events.StepFinished{
		BaseEvent:    c.baseEvent(events.StepFinishedEvent, run),
		JobRunID:     jobRun.ID,
		StepRunID:    stepRun.ID,
		NodeID:       stepRun.NodeID,
		Status:       stepRun.Status,
		ErrorMessage: stepRun.Error,
		DurationMs:   time.Since(startedAt).Milliseconds(),
	})

	return nil
}

// runGeneration builds and executes the generation backing one step. The
// returned record is terminal; an error return means infrastructure trouble
// (persistence, executor construction), not a model failure.
func (c *Coordinator) runGeneration(
	ctx context.Context,
	wf *models.Workflow,
	run *models.WorkflowRun,
	stepRun *models.StepRun,
) (*models.Generation, error) {
	step, ok := wf.FindStep(stepRun.StepID)
	if !ok {
		return nil, fmt.Errorf("step %s not found in workflow %s", stepRun.StepID, wf.ID)
	}

	params := stepRun.Node.Content.TextGeneration
	if params == nil {
		return nil, fmt.Errorf("step run %s carries no text generation parameters", stepRun.ID)
	}

	executor, err := c.registry.CreateExecutor(c.executorID, map[string]any{
		"model":       params.Model,
		"temperature": params.Temperature,
		"top_p":       params.TopP,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create executor for step run %s: %w", stepRun.ID, err)
	}

	gen := generation.New(c.generateID, models.GenerationContext{
		OperationNode: stepRun.Node,
		SourceNodes:   step.Template.SourceNodes,
		Origin: models.GenerationOrigin{
			Type:          models.OriginTypeWorkflowRun,
			WorkspaceID:   run.WorkspaceID,
			WorkflowRunID: run.ID,
			StepRunID:     stepRun.ID,
		},
	})

	c.publish(ctx, run, events.GenerationQueued{
		BaseEvent:    c.baseEvent(events.GenerationQueuedEvent, run),
		GenerationID: gen.ID,
		NodeID:       stepRun.NodeID,
	})

	terminal, err := c.machine.Execute(ctx, gen, executor, nil)
	if err != nil {
		return nil, err
	}

	finished := events.GenerationFinished{
		BaseEvent:    c.baseEvent(events.GenerationFinishedEvent, run),
		GenerationID: terminal.ID,
		NodeID:       stepRun.NodeID,
		Status:       terminal.Status,
	}
	if terminal.Error != nil {
		finished.ErrorMessage = terminal.Error.Message
	}

	c.publish(ctx, run, finished)

	return terminal, nil
}

func (c *Coordinator) baseEvent(eventType events.EventType, run *models.WorkflowRun) events.BaseEvent {
	id := c.generateID("evt")
	if c.eventBus != nil {
		id = c.eventBus.GenerateID()
	}

	return events.BaseEvent{
		ID:            id,
		Type:          eventType,
		Timestamp:     time.Now(),
		WorkspaceID:   run.WorkspaceID,
		WorkflowRunID: run.ID,
	}
}

func (c *Coordinator) publish(ctx context.Context, run *models.WorkflowRun, event eventbus.Event) {
	if c.eventBus == nil {
		return
	}

	if err := c.eventBus.Publish(ctx, run.ID, event); err != nil {
		c.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func nextQueuedJobRun(run *models.WorkflowRun) *models.JobRun {
	for _, jobRun := range run.JobRuns {
		if jobRun.Status == models.StepStatusQueued {
			return jobRun
		}
	}

	return nil
}

func runDuration(run *models.WorkflowRun) time.Duration {
	if run.StartedAt == nil || run.CompletedAt == nil {
		return 0
	}

	return run.CompletedAt.Sub(*run.StartedAt)
}

func firstFailedStepRunID(run *models.WorkflowRun) string {
	for _, jobRun := range run.JobRuns {
		for _, stepRun := range jobRun.StepRuns {
			if stepRun.Status == models.StepStatusFailed {
				return stepRun.ID
			}
		}
	}

	return ""
}

func firstFailedStepError(run *models.WorkflowRun) string {
	for _, jobRun := range run.JobRuns {
		for _, stepRun := range jobRun.StepRuns {
			if stepRun.Status == models.StepStatusFailed {
				return stepRun.Error
			}
		}
	}

	return ""
}
