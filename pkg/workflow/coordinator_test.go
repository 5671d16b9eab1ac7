package workflow_test

import (
	"context"
	"testing"

	"github.com/braidhq/braid/pkg/events"
	"github.com/braidhq/braid/pkg/executors/static"
	"github.com/braidhq/braid/pkg/generation"
	"github.com/braidhq/braid/pkg/mocks"
	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/persistence/file"
	"github.com/braidhq/braid/pkg/registry"
	"github.com/braidhq/braid/pkg/testutil"
	"github.com/braidhq/braid/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// coordinatorFixture wires a coordinator against file persistence, the static
// executor and a recording event bus.
func coordinatorFixture(t *testing.T) (*workflow.Coordinator, *file.Persistence, *mocks.MockEventBus) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	reg := registry.NewRegistry(nil)
	reg.RegisterExecutor(static.NewFactory())

	machine := generation.NewMachine(generation.NewStore(p), generation.NewContextResolver(p), nil)

	bus := &mocks.MockEventBus{}
	bus.On("GenerateID").Return("evt-1")
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	coordinator := workflow.NewCoordinator(p, workflow.NewRunner(nil), machine, reg, bus, "static", nil)

	return coordinator, p, bus
}

// chainRun builds a workflow and run for the two-node chain a → b.
func chainRun(t *testing.T) (*models.Workflow, *models.WorkflowRun) {
	t.Helper()

	a := testutil.CreateOperationNode(testutil.WithID("nd-a"), testutil.WithName("First"))
	b := testutil.CreateOperationNode(testutil.WithID("nd-b"), testutil.WithName("Second"))

	nodes, connections := testutil.Graph(
		[]*models.Node{a, b},
		[]*models.Connection{testutil.Connect(a, b, "context")},
	)

	workflows, err := workflow.NewBuilder(sequenceGenerator()).BuildWorkflows(nodes, connections, "wf-coord")
	require.NoError(t, err)

	wf := singleWorkflow(t, workflows)

	return wf, workflow.NewRunBuilder(sequenceGenerator()).BuildWorkflowRun(wf)
}

func TestExecuteRunCompletesChain(t *testing.T) {
	coordinator, p, bus := coordinatorFixture(t)
	ctx := context.Background()

	wf, run := chainRun(t)
	require.NoError(t, p.SaveWorkflowRun(ctx, run))

	require.NoError(t, coordinator.ExecuteRun(ctx, wf, run))
	assert.Equal(t, models.RunStatusCompleted, run.Status)
	require.NotNil(t, run.CompletedAt)

	for _, jobRun := range run.JobRuns {
		assert.Equal(t, models.StepStatusCompleted, jobRun.Status)

		for _, stepRun := range jobRun.StepRuns {
			assert.Equal(t, models.StepStatusCompleted, stepRun.Status)
		}
	}

	// The terminal state is persisted, not just in memory.
	stored, err := p.WorkflowRunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, stored.Status)

	// Each step leaves a completed generation behind its node.
	for _, nodeID := range []string{"nd-a", "nd-b"} {
		index, err := p.LatestNodeGeneration(ctx, "wf-coord", nodeID)
		require.NoError(t, err)
		assert.Equal(t, models.GenerationStatusCompleted, index.Status)
	}

	bus.AssertCalled(t, "Publish", mock.Anything, run.ID, mock.AnythingOfType("events.RunStarted"))
	bus.AssertCalled(t, "Publish", mock.Anything, run.ID, mock.AnythingOfType("events.RunCompleted"))
}

func TestExecuteRunFeedsUpstreamOutputDownstream(t *testing.T) {
	coordinator, p, _ := coordinatorFixture(t)
	ctx := context.Background()

	wf, run := chainRun(t)
	require.NoError(t, p.SaveWorkflowRun(ctx, run))
	require.NoError(t, coordinator.ExecuteRun(ctx, wf, run))

	index, err := p.LatestNodeGeneration(ctx, "wf-coord", "nd-b")
	require.NoError(t, err)

	gen, err := p.GenerationByID(ctx, index.GenerationID)
	require.NoError(t, err)

	// The echo executor reflects the downstream prompt, which embeds the
	// upstream node's output under its name.
	content, ok := gen.LastAssistantMessage()
	require.True(t, ok)
	assert.Contains(t, content, "<First>")
}

func TestExecuteRunPropagatesStepFailure(t *testing.T) {
	p := file.NewPersistence(t.TempDir())

	// An executor registry with nothing registered makes every step fail at
	// executor construction.
	machine := generation.NewMachine(generation.NewStore(p), generation.NewContextResolver(p), nil)
	coordinator := workflow.NewCoordinator(p, workflow.NewRunner(nil), machine, registry.NewRegistry(nil), nil, "static", nil)

	ctx := context.Background()
	wf, run := chainRun(t)
	require.NoError(t, p.SaveWorkflowRun(ctx, run))

	require.NoError(t, coordinator.ExecuteRun(ctx, wf, run))
	assert.Equal(t, models.RunStatusFailed, run.Status)

	assert.Equal(t, models.StepStatusFailed, run.JobRuns[0].Status)
	assert.Equal(t, models.StepStatusFailed, run.JobRuns[0].StepRuns[0].Status)
	assert.NotEmpty(t, run.JobRuns[0].StepRuns[0].Error)

	// The downstream job never started.
	assert.Equal(t, models.StepStatusCancelled, run.JobRuns[1].Status)
	assert.Equal(t, models.StepStatusCancelled, run.JobRuns[1].StepRuns[0].Status)

	stored, err := p.WorkflowRunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, stored.Status)
}

func TestExecuteRunRejectsNonQueuedRun(t *testing.T) {
	coordinator, _, _ := coordinatorFixture(t)

	wf, run := chainRun(t)
	run.Status = models.RunStatusCompleted

	err := coordinator.ExecuteRun(context.Background(), wf, run)
	require.Error(t, err)
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestExecuteRunEmitsStepEvents(t *testing.T) {
	coordinator, p, bus := coordinatorFixture(t)
	ctx := context.Background()

	wf, run := chainRun(t)
	require.NoError(t, p.SaveWorkflowRun(ctx, run))
	require.NoError(t, coordinator.ExecuteRun(ctx, wf, run))

	var started, finished int

	for _, call := range bus.Calls {
		if call.Method != "Publish" {
			continue
		}

		switch call.Arguments.Get(2).(type) {
		case events.StepStarted:
			started++
		case events.StepFinished:
			finished++
		}
	}

	assert.Equal(t, 2, started)
	assert.Equal(t, 2, finished)
}
