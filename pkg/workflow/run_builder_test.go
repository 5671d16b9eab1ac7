package workflow_test

import (
	"testing"

	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/testutil"
	"github.com/braidhq/braid/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildWorkflowRun(t *testing.T) {
	builder := workflow.NewBuilder(sequenceGenerator())

	a := testutil.CreateOperationNode(testutil.WithID("nd-a"))
	b := testutil.CreateOperationNode(testutil.WithID("nd-b"))

	nodes, connections := testutil.Graph(
		[]*models.Node{a, b},
		[]*models.Connection{testutil.Connect(a, b, "input")},
	)

	workflows, err := builder.BuildWorkflows(nodes, connections, "wf-snapshot")
	require.NoError(t, err)

	wf := singleWorkflow(t, workflows)

	run := workflow.NewRunBuilder(sequenceGenerator()).BuildWorkflowRun(wf)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, wf.ID, run.WorkflowID)
	assert.Equal(t, "wf-snapshot", run.WorkspaceID)
	assert.Equal(t, models.RunStatusQueued, run.Status)
	assert.False(t, run.CreatedAt.IsZero())

	require.Len(t, run.JobRuns, len(wf.Jobs))

	for i, jobRun := range run.JobRuns {
		assert.Equal(t, wf.Jobs[i].ID, jobRun.JobID)
		assert.Equal(t, models.StepStatusWaiting, jobRun.Status)
		assert.Equal(t, 1, jobRun.Attempts)
		require.Len(t, jobRun.StepRuns, len(wf.Jobs[i].Steps))

		for j, stepRun := range jobRun.StepRuns {
			step := wf.Jobs[i].Steps[j]
			assert.Equal(t, step.ID, stepRun.StepID)
			assert.Equal(t, step.NodeID, stepRun.NodeID)
			assert.Equal(t, models.StepStatusWaiting, stepRun.Status)
			assert.Equal(t, 1, stepRun.Attempts)
			require.NotNil(t, stepRun.Node)
		}
	}
}

func TestBuildWorkflowRunSnapshotsNodes(t *testing.T) {
	builder := workflow.NewBuilder(sequenceGenerator())

	a := testutil.CreateOperationNode(testutil.WithID("nd-a"), testutil.WithName("Before"))

	nodes, connections := testutil.Graph([]*models.Node{a}, nil)

	workflows, err := builder.BuildWorkflows(nodes, connections, "wf-iso")
	require.NoError(t, err)

	wf := singleWorkflow(t, workflows)
	run := workflow.NewRunBuilder(sequenceGenerator()).BuildWorkflowRun(wf)

	// Mutating the workspace node after run creation must not leak into the
	// run's snapshot.
	a.Name = "After"

	assert.Equal(t, "Before", run.JobRuns[0].StepRuns[0].Node.Name)
}
