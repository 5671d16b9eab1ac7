package workflow

import (
	"time"

	"github.com/braidhq/braid/pkg/identifier"
	"github.com/braidhq/braid/pkg/models"
)

// RunBuilder instantiates runnable snapshots from workflow definitions.
type RunBuilder struct {
	generateID identifier.Generator
}

func NewRunBuilder(generateID identifier.Generator) *RunBuilder {
	if generateID == nil {
		generateID = identifier.Default
	}

	return &RunBuilder{generateID: generateID}
}

// BuildWorkflowRun creates a fresh run for the workflow: one job run per job
// in level order, one step run per step, everything waiting with attempts 1.
// Pure construction, no side effects beyond ID generation.
func (b *RunBuilder) BuildWorkflowRun(wf *models.Workflow) *models.WorkflowRun {
	run := &models.WorkflowRun{
		ID:          b.generateID(identifier.PrefixWorkflowRun),
		WorkflowID:  wf.ID,
		WorkspaceID: wf.WorkspaceID,
		Status:      models.RunStatusQueued,
		CreatedAt:   time.Now(),
	}

	for _, job := range wf.Jobs {
		jobRun := &models.JobRun{
			ID:       b.generateID(identifier.PrefixJobRun),
			JobID:    job.ID,
			Status:   models.StepStatusWaiting,
			Attempts: 1,
		}

		for _, step := range job.Steps {
			jobRun.StepRuns = append(jobRun.StepRuns, &models.StepRun{
				ID:       b.generateID(identifier.PrefixStepRun),
				StepID:   step.ID,
				NodeID:   step.NodeID,
				Node:     step.Template.OperationNode.Clone(),
				Status:   models.StepStatusWaiting,
				Attempts: 1,
			})
		}

		run.JobRuns = append(run.JobRuns, jobRun)
	}

	return run
}
