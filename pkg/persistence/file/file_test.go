package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/persistence"
	"github.com/braidhq/braid/pkg/persistence/file"
	"github.com/braidhq/braid/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPersistence(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func workspaceFixture(id string, createdAt time.Time) *models.Workspace {
	node := testutil.CreateOperationNode(testutil.WithID("nd-a"))

	return &models.Workspace{
		ID:          id,
		Name:        "Workspace " + id,
		Nodes:       map[string]*models.Node{node.ID: node},
		Connections: map[string]*models.Connection{},
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func TestWorkspaceRoundtrip(t *testing.T) {
	p := newPersistence(t)
	ctx := context.Background()

	ws := workspaceFixture("wf-1", time.Now())
	require.NoError(t, p.SaveWorkspace(ctx, ws))

	stored, err := p.WorkspaceByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, ws.Name, stored.Name)
	require.Contains(t, stored.Nodes, "nd-a")
	assert.Equal(t, models.NodeTypeOperation, stored.Nodes["nd-a"].Type)
}

func TestWorkspaceByIDNotFound(t *testing.T) {
	p := newPersistence(t)

	_, err := p.WorkspaceByID(context.Background(), "wf-missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkspaceNotFound(err))
}

func TestWorkspacesSortedByCreationTime(t *testing.T) {
	p := newPersistence(t)
	ctx := context.Background()

	base := time.Now()
	require.NoError(t, p.SaveWorkspace(ctx, workspaceFixture("wf-b", base.Add(time.Hour))))
	require.NoError(t, p.SaveWorkspace(ctx, workspaceFixture("wf-a", base)))

	workspaces, err := p.Workspaces(ctx)
	require.NoError(t, err)
	require.Len(t, workspaces, 2)
	assert.Equal(t, "wf-a", workspaces[0].ID)
	assert.Equal(t, "wf-b", workspaces[1].ID)
}

func TestDeleteWorkspace(t *testing.T) {
	p := newPersistence(t)
	ctx := context.Background()

	require.NoError(t, p.SaveWorkspace(ctx, workspaceFixture("wf-1", time.Now())))
	require.NoError(t, p.DeleteWorkspace(ctx, "wf-1"))

	_, err := p.WorkspaceByID(ctx, "wf-1")
	assert.True(t, persistence.IsWorkspaceNotFound(err))

	// Deleting an absent workspace is not an error.
	require.NoError(t, p.DeleteWorkspace(ctx, "wf-1"))
}

func TestWorkflowRunRoundtrip(t *testing.T) {
	p := newPersistence(t)
	ctx := context.Background()

	run := &models.WorkflowRun{
		ID:          "rn-1",
		WorkspaceID: "wf-1",
		WorkflowID:  "wfl-1",
		Status:      models.RunStatusQueued,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, p.SaveWorkflowRun(ctx, run))

	stored, err := p.WorkflowRunByID(ctx, "rn-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusQueued, stored.Status)
	assert.Equal(t, "wf-1", stored.WorkspaceID)
}

func TestWorkflowRunByIDNotFound(t *testing.T) {
	p := newPersistence(t)

	_, err := p.WorkflowRunByID(context.Background(), "rn-missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowRunNotFound(err))
}

func TestWorkflowRunsByWorkspaceNewestFirst(t *testing.T) {
	p := newPersistence(t)
	ctx := context.Background()

	base := time.Now()
	for _, run := range []*models.WorkflowRun{
		{ID: "rn-old", WorkspaceID: "wf-1", Status: models.RunStatusCompleted, CreatedAt: base},
		{ID: "rn-new", WorkspaceID: "wf-1", Status: models.RunStatusQueued, CreatedAt: base.Add(time.Minute)},
		{ID: "rn-other", WorkspaceID: "wf-2", Status: models.RunStatusQueued, CreatedAt: base},
	} {
		require.NoError(t, p.SaveWorkflowRun(ctx, run))
	}

	runs, err := p.WorkflowRunsByWorkspace(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "rn-new", runs[0].ID)
	assert.Equal(t, "rn-old", runs[1].ID)
}

func TestSaveGenerationWritesRecordAndIndex(t *testing.T) {
	p := newPersistence(t)
	ctx := context.Background()

	node := testutil.CreateOperationNode(testutil.WithID("nd-a"))
	gen := &models.Generation{
		ID:     "gn-1",
		Status: models.GenerationStatusCompleted,
		Context: models.GenerationContext{
			OperationNode: node,
			Origin:        models.GenerationOrigin{Type: models.OriginTypeWorkspace, WorkspaceID: "wf-1"},
		},
		CreatedAt: time.Now(),
	}
	index := &models.NodeGenerationIndex{
		GenerationID: gen.ID,
		NodeID:       node.ID,
		Origin:       gen.Context.Origin,
		Status:       gen.Status,
		CreatedAt:    gen.CreatedAt,
	}

	require.NoError(t, p.SaveGeneration(ctx, gen, index))

	stored, err := p.GenerationByID(ctx, "gn-1")
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCompleted, stored.Status)

	latest, err := p.LatestNodeGeneration(ctx, "wf-1", "nd-a")
	require.NoError(t, err)
	assert.Equal(t, "gn-1", latest.GenerationID)
}

func TestLatestNodeGenerationScopedToWorkspace(t *testing.T) {
	p := newPersistence(t)
	ctx := context.Background()

	node := testutil.CreateOperationNode(testutil.WithID("nd-a"))
	gen := &models.Generation{
		ID:     "gn-1",
		Status: models.GenerationStatusCompleted,
		Context: models.GenerationContext{
			OperationNode: node,
			Origin:        models.GenerationOrigin{Type: models.OriginTypeWorkspace, WorkspaceID: "wf-1"},
		},
		CreatedAt: time.Now(),
	}
	index := &models.NodeGenerationIndex{GenerationID: "gn-1", NodeID: "nd-a", Origin: gen.Context.Origin, Status: gen.Status}

	require.NoError(t, p.SaveGeneration(ctx, gen, index))

	_, err := p.LatestNodeGeneration(ctx, "wf-other", "nd-a")
	require.Error(t, err)
	assert.True(t, persistence.IsNodeGenerationNotFound(err))
}

func TestGenerationByIDNotFound(t *testing.T) {
	p := newPersistence(t)

	_, err := p.GenerationByID(context.Background(), "gn-missing")
	require.Error(t, err)
	assert.True(t, persistence.IsGenerationNotFound(err))
}

func TestHealthCheck(t *testing.T) {
	p := newPersistence(t)
	assert.NoError(t, p.HealthCheck(context.Background()))

	missing := file.NewPersistence("/nonexistent/braid-data")
	assert.Error(t, missing.HealthCheck(context.Background()))
}
