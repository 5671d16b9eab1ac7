package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/braidhq/braid/pkg/mocks"
	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/persistence/file"
	"github.com/braidhq/braid/pkg/services"
	"github.com/braidhq/braid/pkg/testutil"
	"github.com/braidhq/braid/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runsFixture builds a workspace with a two-node chain a → b and returns the
// runs service, the workspace and its single workflow.
func runsFixture(t *testing.T) (*services.Runs, *models.Workspace, *models.Workflow, *file.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	workspaceService := services.NewWorkspace(p, nil)
	runsService := services.NewRuns(p, nil, discardLogger())

	ctx := context.Background()

	ws, err := workspaceService.Create(ctx, "Pipeline", "owner-1")
	require.NoError(t, err)

	a := testutil.CreateOperationNode(testutil.WithID("nd-a"))
	b := testutil.CreateOperationNode(testutil.WithID("nd-b"))

	_, err = workspaceService.AddNode(ctx, ws.ID, a)
	require.NoError(t, err)
	_, err = workspaceService.AddNode(ctx, ws.ID, b)
	require.NoError(t, err)

	ws, err = workspaceService.AddConnection(ctx, ws.ID, testutil.Connect(a, b, "context"))
	require.NoError(t, err)
	require.Len(t, ws.EditingWorkflows, 1)

	var wf *models.Workflow
	for _, candidate := range ws.EditingWorkflows {
		wf = candidate
	}

	return runsService, ws, wf, p
}

func TestCreateRun(t *testing.T) {
	runsService, ws, wf, p := runsFixture(t)
	ctx := context.Background()

	run, returned, err := runsService.Create(ctx, ws.ID, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, wf.ID, returned.ID)
	assert.Equal(t, models.RunStatusQueued, run.Status)
	assert.Equal(t, ws.ID, run.WorkspaceID)
	require.Len(t, run.JobRuns, 2)

	stored, err := p.WorkflowRunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, stored.ID)
}

func TestCreateRunUnknownWorkflow(t *testing.T) {
	runsService, ws, _, _ := runsFixture(t)

	_, _, err := runsService.Create(context.Background(), ws.ID, "wfl-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrWorkflowNotFound)
}

func TestCreateRunForNode(t *testing.T) {
	runsService, ws, wf, _ := runsFixture(t)

	run, returned, err := runsService.CreateForNode(context.Background(), ws.ID, "nd-b")
	require.NoError(t, err)
	assert.Equal(t, wf.ID, returned.ID)
	assert.Equal(t, models.RunStatusQueued, run.Status)
}

func TestCreateRunForUnknownNode(t *testing.T) {
	runsService, ws, _, _ := runsFixture(t)

	_, _, err := runsService.CreateForNode(context.Background(), ws.ID, "nd-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrWorkflowNotFound)
}

func TestCancelRunPersistsAndPublishes(t *testing.T) {
	runsService, ws, wf, p := runsFixture(t)
	ctx := context.Background()

	bus := &mocks.MockEventBus{}
	bus.On("GenerateID").Return("evt-1")
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	runsService.WithEventBus(bus)

	run, _, err := runsService.Create(ctx, ws.ID, wf.ID)
	require.NoError(t, err)

	cancelled, err := runsService.Cancel(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCancelled, cancelled.Status)

	stored, err := p.WorkflowRunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCancelled, stored.Status)

	bus.AssertCalled(t, "Publish", mock.Anything, run.ID, mock.AnythingOfType("events.RunCancelled"))
}

func TestCancelRunWithoutEventBus(t *testing.T) {
	runsService, ws, wf, _ := runsFixture(t)
	ctx := context.Background()

	run, _, err := runsService.Create(ctx, ws.ID, wf.ID)
	require.NoError(t, err)

	cancelled, err := runsService.Cancel(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCancelled, cancelled.Status)
}

func TestRetryStepPersists(t *testing.T) {
	runsService, ws, wf, p := runsFixture(t)
	ctx := context.Background()

	run, _, err := runsService.Create(ctx, ws.ID, wf.ID)
	require.NoError(t, err)

	// Drive the run to a failed first step so there is something to retry.
	runner := workflow.NewRunner(discardLogger())
	require.NoError(t, runner.Start(run))

	failedStep := run.JobRuns[0].StepRuns[0]
	require.NoError(t, runner.StartStep(run, failedStep.ID))
	require.NoError(t, runner.FailStep(run, failedStep.ID, "executor exploded"))
	require.NoError(t, p.SaveWorkflowRun(ctx, run))

	retried, err := runsService.RetryStep(ctx, run.ID, failedStep.ID)
	require.NoError(t, err)

	_, stepRun, ok := retried.FindJobRun(failedStep.ID)
	require.True(t, ok)
	assert.Equal(t, models.StepStatusQueued, stepRun.Status)
	assert.Equal(t, 2, stepRun.Attempts)
	assert.Empty(t, stepRun.Error)

	stored, err := p.WorkflowRunByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusInProgress, stored.Status)
}

func TestCreateRunSaveFailure(t *testing.T) {
	p := &mocks.MockPersistence{}
	runsService := services.NewRuns(p, nil, discardLogger())

	ws := &models.Workspace{
		ID: "wf-1",
		EditingWorkflows: map[string]*models.Workflow{
			"wfl-1": {ID: "wfl-1", WorkspaceID: "wf-1"},
		},
	}

	p.On("WorkspaceByID", mock.Anything, "wf-1").Return(ws, nil)
	p.On("SaveWorkflowRun", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, _, err := runsService.Create(context.Background(), "wf-1", "wfl-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	p.AssertExpectations(t)
}

func TestRetryStepRejectsCompletedStep(t *testing.T) {
	runsService, ws, wf, p := runsFixture(t)
	ctx := context.Background()

	run, _, err := runsService.Create(ctx, ws.ID, wf.ID)
	require.NoError(t, err)

	runner := workflow.NewRunner(discardLogger())
	require.NoError(t, runner.Start(run))

	step := run.JobRuns[0].StepRuns[0]
	require.NoError(t, runner.StartStep(run, step.ID))
	require.NoError(t, runner.CompleteStep(run, step.ID))
	require.NoError(t, p.SaveWorkflowRun(ctx, run))

	_, err = runsService.RetryStep(ctx, run.ID, step.ID)
	require.Error(t, err)
}
