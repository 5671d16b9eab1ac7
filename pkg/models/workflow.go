package models

// Workflow is the static, derived execution plan for one connected component
// of the workspace graph: an ordered sequence of jobs, each holding the steps
// of one topological level.
type Workflow struct {
	ID          string           `json:"id"`
	WorkspaceID string           `json:"workspace_id"`
	Jobs        []*Job           `json:"jobs"`
	Nodes       map[string]*Node `json:"nodes"` // Every node in the component, variable nodes included
}

// Job is one topological level. Steps within a job have no dependency edge
// between them and are safe to run concurrently; a later job's steps depend
// only on completion of earlier jobs.
type Job struct {
	ID         string  `json:"id"`
	WorkflowID string  `json:"workflow_id"`
	Steps      []*Step `json:"steps"`
}

// Step is one operation node's execution unit within a job, together with the
// resolved source context used to build its prompt.
type Step struct {
	ID       string             `json:"id"`
	JobID    string             `json:"job_id"`
	NodeID   string             `json:"node_id"`
	Template GenerationTemplate `json:"template"`
}

// GenerationTemplate pairs an operation node with the nodes feeding its input
// slots, in the shape the generation context builder consumes.
type GenerationTemplate struct {
	OperationNode *Node   `json:"operation_node"`
	SourceNodes   []*Node `json:"source_nodes"`
}

// OperationNodeCount returns the number of steps across all jobs. It equals
// the number of operation nodes in the source component.
func (w *Workflow) OperationNodeCount() int {
	count := 0
	for _, job := range w.Jobs {
		count += len(job.Steps)
	}

	return count
}

// FindStep returns the step with the given ID, searching all jobs.
func (w *Workflow) FindStep(stepID string) (*Step, bool) {
	for _, job := range w.Jobs {
		for _, step := range job.Steps {
			if step.ID == stepID {
				return step, true
			}
		}
	}

	return nil, false
}
