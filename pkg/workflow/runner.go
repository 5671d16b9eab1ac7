package workflow

import (
	"log/slog"
	"time"

	"github.com/braidhq/braid/pkg/models"
)

// Runner advances a workflow run through its state machine. All methods
// mutate the run in place and are synchronous, in-memory transitions with no
// I/O; persistence happens at the boundary, after a transition, as a separate
// write.
//
// Runner methods are not thread-safe. The host must serialize mutations per
// run (one in-flight completion handler at a time), even when it executes the
// steps of a job concurrently.
type Runner struct {
	logger *slog.Logger
}

func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{logger: logger.With("module", "workflow_runner")}
}

// Start moves a queued run to inProgress and queues exactly the first job run
// and its step runs. Later jobs stay waiting; the ordering contract is that
// job N+1 never leaves waiting before job N's steps all complete.
func (r *Runner) Start(run *models.WorkflowRun) error {
	if run.Status != models.RunStatusQueued {
		return &TransitionError{
			Entity: "workflowRun", ID: run.ID,
			From: string(run.Status), To: string(models.RunStatusInProgress),
			Err: ErrInvalidTransition,
		}
	}

	now := time.Now()
	run.Status = models.RunStatusInProgress
	run.StartedAt = &now

	if len(run.JobRuns) > 0 {
		queueJobRun(run.JobRuns[0])
	}

	r.logger.Info("Workflow run started", "workflow_run_id", run.ID, "jobs", len(run.JobRuns))

	return nil
}

// StartJob moves a queued or waiting job run to inProgress along with all of
// its step runs.
func (r *Runner) StartJob(run *models.WorkflowRun, jobRunID string) error {
	jobRun := findJobRun(run, jobRunID)
	if jobRun == nil {
		return ErrJobRunNotFound
	}

	if jobRun.Status.IsTerminal() {
		return &TransitionError{
			Entity: "jobRun", ID: jobRun.ID,
			From: string(jobRun.Status), To: string(models.StepStatusInProgress),
			Err: ErrAlreadyTerminal,
		}
	}

	jobRun.Status = models.StepStatusInProgress

	for _, stepRun := range jobRun.StepRuns {
		if !stepRun.Status.IsTerminal() {
			stepRun.Status = models.StepStatusInProgress
		}
	}

	return nil
}

// StartStep moves a single step run to inProgress, independent of job-level
// start. Allows staggered per-step activation.
func (r *Runner) StartStep(run *models.WorkflowRun, stepRunID string) error {
	_, stepRun, ok := run.FindJobRun(stepRunID)
	if !ok {
		return ErrStepRunNotFound
	}

	if stepRun.Status.IsTerminal() {
		return &TransitionError{
			Entity: "stepRun", ID: stepRun.ID,
			From: string(stepRun.Status), To: string(models.StepStatusInProgress),
			Err: ErrAlreadyTerminal,
		}
	}

	stepRun.Status = models.StepStatusInProgress

	return nil
}

// CompleteStep marks a step run completed. When every step run in the owning
// job run is completed, the job run completes and the next job is queued.
func (r *Runner) CompleteStep(run *models.WorkflowRun, stepRunID string) error {
	jobRun, stepRun, ok := run.FindJobRun(stepRunID)
	if !ok {
		return ErrStepRunNotFound
	}

	if stepRun.Status.IsTerminal() {
		return &TransitionError{
			Entity: "stepRun", ID: stepRun.ID,
			From: string(stepRun.Status), To: string(models.StepStatusCompleted),
			Err: ErrAlreadyTerminal,
		}
	}

	stepRun.Status = models.StepStatusCompleted

	for _, other := range jobRun.StepRuns {
		if other.Status != models.StepStatusCompleted {
			return nil
		}
	}

	return r.CompleteJob(run, jobRun.ID)
}

// CompleteJob marks a job run completed and transitions the positional
// successor (and its step runs) from waiting to queued, readying it for
// StartJob. Completing the last job completes the run.
func (r *Runner) CompleteJob(run *models.WorkflowRun, jobRunID string) error {
	jobRun := findJobRun(run, jobRunID)
	if jobRun == nil {
		return ErrJobRunNotFound
	}

	if jobRun.Status.IsTerminal() {
		return &TransitionError{
			Entity: "jobRun", ID: jobRun.ID,
			From: string(jobRun.Status), To: string(models.StepStatusCompleted),
			Err: ErrAlreadyTerminal,
		}
	}

	jobRun.Status = models.StepStatusCompleted

	if next := run.NextJobRun(jobRun.ID); next != nil {
		queueJobRun(next)

		return nil
	}

	for _, jr := range run.JobRuns {
		if jr.Status != models.StepStatusCompleted {
			return nil
		}
	}

	now := time.Now()
	run.Status = models.RunStatusCompleted
	run.CompletedAt = &now

	r.logger.Info("Workflow run completed", "workflow_run_id", run.ID)

	return nil
}

// FailStep marks a step run failed and applies the failure policy: the owning
// job run fails, every job run still waiting (and its step runs) is
// cancelled, and the run itself fails. Steps of the same job already in
// flight are left to finish; they do not depend on the failed step.
func (r *Runner) FailStep(run *models.WorkflowRun, stepRunID string, message string) error {
	jobRun, stepRun, ok := run.FindJobRun(stepRunID)
	if !ok {
		return ErrStepRunNotFound
	}

	if stepRun.Status.IsTerminal() {
		return &TransitionError{
			Entity: "stepRun", ID: stepRun.ID,
			From: string(stepRun.Status), To: string(models.StepStatusFailed),
			Err: ErrAlreadyTerminal,
		}
	}

	stepRun.Status = models.StepStatusFailed
	stepRun.Error = message
	jobRun.Status = models.StepStatusFailed

	for _, jr := range run.JobRuns {
		if jr.Status == models.StepStatusWaiting || jr.Status == models.StepStatusQueued {
			cancelJobRun(jr)
		}
	}

	now := time.Now()
	run.Status = models.RunStatusFailed
	run.CompletedAt = &now

	r.logger.Warn("Workflow run failed",
		"workflow_run_id", run.ID, "step_run_id", stepRun.ID, "error", message)

	return nil
}

// CancelStep marks a single step run cancelled.
func (r *Runner) CancelStep(run *models.WorkflowRun, stepRunID string) error {
	_, stepRun, ok := run.FindJobRun(stepRunID)
	if !ok {
		return ErrStepRunNotFound
	}

	if stepRun.Status.IsTerminal() {
		return &TransitionError{
			Entity: "stepRun", ID: stepRun.ID,
			From: string(stepRun.Status), To: string(models.StepStatusCancelled),
			Err: ErrAlreadyTerminal,
		}
	}

	stepRun.Status = models.StepStatusCancelled

	return nil
}

// CancelRun cancels the run and every job run and step run that has not
// already reached a terminal status.
func (r *Runner) CancelRun(run *models.WorkflowRun) error {
	if run.Status == models.RunStatusCompleted || run.Status == models.RunStatusFailed ||
		run.Status == models.RunStatusCancelled {
		return &TransitionError{
			Entity: "workflowRun", ID: run.ID,
			From: string(run.Status), To: string(models.RunStatusCancelled),
			Err: ErrAlreadyTerminal,
		}
	}

	for _, jobRun := range run.JobRuns {
		if !jobRun.Status.IsTerminal() {
			cancelJobRun(jobRun)
		}
	}

	now := time.Now()
	run.Status = models.RunStatusCancelled
	run.CompletedAt = &now

	return nil
}

// RetryStep is the explicit, single allowed backward transition: a failed or
// cancelled step run goes back to queued with attempts incremented. Upstream
// jobs are not re-triggered. The owning job run and the run return to
// inProgress so completion bookkeeping picks the step up again.
func (r *Runner) RetryStep(run *models.WorkflowRun, stepRunID string) error {
	jobRun, stepRun, ok := run.FindJobRun(stepRunID)
	if !ok {
		return ErrStepRunNotFound
	}

	if stepRun.Status != models.StepStatusFailed && stepRun.Status != models.StepStatusCancelled {
		return &TransitionError{
			Entity: "stepRun", ID: stepRun.ID,
			From: string(stepRun.Status), To: string(models.StepStatusQueued),
			Err: ErrInvalidTransition,
		}
	}

	stepRun.Status = models.StepStatusQueued
	stepRun.Attempts++
	stepRun.Error = ""
	jobRun.Status = models.StepStatusInProgress
	run.Status = models.RunStatusInProgress
	run.CompletedAt = nil

	return nil
}

func findJobRun(run *models.WorkflowRun, jobRunID string) *models.JobRun {
	for _, jobRun := range run.JobRuns {
		if jobRun.ID == jobRunID {
			return jobRun
		}
	}

	return nil
}

func queueJobRun(jobRun *models.JobRun) {
	jobRun.Status = models.StepStatusQueued

	for _, stepRun := range jobRun.StepRuns {
		if stepRun.Status == models.StepStatusWaiting {
			stepRun.Status = models.StepStatusQueued
		}
	}
}

func cancelJobRun(jobRun *models.JobRun) {
	jobRun.Status = models.StepStatusCancelled

	for _, stepRun := range jobRun.StepRuns {
		if !stepRun.Status.IsTerminal() {
			stepRun.Status = models.StepStatusCancelled
		}
	}
}
