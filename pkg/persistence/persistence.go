// Package persistence provides the data storage abstraction for workspaces,
// workflow runs and generations. Backends only need key/value get/set
// semantics per entity; the single multi-write requirement is the atomic
// pairing of a generation record with its node generation index.
package persistence

import (
	"context"

	"github.com/braidhq/braid/pkg/models"
)

type Persistence interface {
	Workspaces(ctx context.Context) ([]*models.Workspace, error)
	SaveWorkspace(ctx context.Context, workspace *models.Workspace) error
	WorkspaceByID(ctx context.Context, id string) (*models.Workspace, error)
	DeleteWorkspace(ctx context.Context, id string) error

	SaveWorkflowRun(ctx context.Context, run *models.WorkflowRun) error
	WorkflowRunByID(ctx context.Context, id string) (*models.WorkflowRun, error)
	WorkflowRunsByWorkspace(ctx context.Context, workspaceID string) ([]*models.WorkflowRun, error)

	// SaveGeneration persists the generation record together with its node
	// generation index as one logical unit. Backends that cannot offer a real
	// transaction must still write both or surface an error.
	SaveGeneration(ctx context.Context, generation *models.Generation, index *models.NodeGenerationIndex) error
	GenerationByID(ctx context.Context, id string) (*models.Generation, error)
	// LatestNodeGeneration returns the index entry for the most recent
	// generation of the given node within the given workspace.
	LatestNodeGeneration(ctx context.Context, workspaceID, nodeID string) (*models.NodeGenerationIndex, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
