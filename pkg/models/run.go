package models

import "time"

// RunStatus is the lifecycle state of a whole workflow run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "inProgress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
	RunStatusCancelled  RunStatus = "cancelled"
)

// StepStatus is the lifecycle state of a job run or step run. Transitions are
// forward-only; the single allowed reset is an explicit retry, which
// increments attempts and returns the step to queued.
type StepStatus string

const (
	StepStatusWaiting    StepStatus = "waiting"
	StepStatusQueued     StepStatus = "queued"
	StepStatusInProgress StepStatus = "inProgress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusFailed     StepStatus = "failed"
	StepStatusCancelled  StepStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are permitted.
func (s StepStatus) IsTerminal() bool {
	return s == StepStatusCompleted || s == StepStatusFailed || s == StepStatusCancelled
}

// WorkflowRun is a runnable instantiation of a workflow. JobRuns preserve the
// workflow's job order; the scheduler's "next job" lookup is the positional
// successor in this slice.
type WorkflowRun struct {
	ID          string     `json:"id"`
	WorkflowID  string     `json:"workflow_id"`
	WorkspaceID string     `json:"workspace_id"`
	Status      RunStatus  `json:"status"`
	JobRuns     []*JobRun  `json:"job_runs"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobRun tracks one job's runtime state.
type JobRun struct {
	ID       string     `json:"id"`
	JobID    string     `json:"job_id"`
	Status   StepStatus `json:"status"`
	Attempts int        `json:"attempts"`
	StepRuns []*StepRun `json:"step_runs"`
}

// StepRun tracks one step's runtime state. Node is a denormalized copy of the
// operation node taken at build time, so a run in flight is immune to editor
// mutations.
type StepRun struct {
	ID       string     `json:"id"`
	StepID   string     `json:"step_id"`
	NodeID   string     `json:"node_id"`
	Node     *Node      `json:"node"`
	Status   StepStatus `json:"status"`
	Attempts int        `json:"attempts"`
	Error    string     `json:"error,omitempty"`
}

// FindJobRun returns the job run owning the given step run, with the step
// run's position inside it.
func (r *WorkflowRun) FindJobRun(stepRunID string) (*JobRun, *StepRun, bool) {
	for _, jobRun := range r.JobRuns {
		for _, stepRun := range jobRun.StepRuns {
			if stepRun.ID == stepRunID {
				return jobRun, stepRun, true
			}
		}
	}

	return nil, nil, false
}

// NextJobRun returns the positional successor of the given job run, or nil
// when it is the last one.
func (r *WorkflowRun) NextJobRun(jobRunID string) *JobRun {
	for i, jobRun := range r.JobRuns {
		if jobRun.ID == jobRunID && i+1 < len(r.JobRuns) {
			return r.JobRuns[i+1]
		}
	}

	return nil
}
