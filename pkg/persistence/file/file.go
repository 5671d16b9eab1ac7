// Package file provides file-based persistence for workspaces, workflow runs
// and generations. One JSON document per entity, intended for development and
// single-process deployments.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the
// file system.
type Persistence struct {
	root string
}

// NewPersistence creates a new instance of Persistence with the specified
// root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying
// the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Workspaces returns all workspaces sorted by creation time.
func (fp *Persistence) Workspaces(ctx context.Context) ([]*models.Workspace, error) {
	ids, err := fp.listIDs("workspaces")
	if err != nil {
		return nil, err
	}

	workspaces := make([]*models.Workspace, 0, len(ids))

	for _, id := range ids {
		workspace, err := fp.WorkspaceByID(ctx, id)
		if err != nil {
			return nil, err
		}

		workspaces = append(workspaces, workspace)
	}

	sort.Slice(workspaces, func(i, j int) bool {
		return workspaces[i].CreatedAt.Before(workspaces[j].CreatedAt)
	})

	return workspaces, nil
}

// SaveWorkspace saves a workspace to the file system.
func (fp *Persistence) SaveWorkspace(_ context.Context, workspace *models.Workspace) error {
	return fp.write("workspaces", workspace.ID, workspace)
}

// WorkspaceByID retrieves a workspace by its ID from the file system.
func (fp *Persistence) WorkspaceByID(_ context.Context, id string) (*models.Workspace, error) {
	var workspace models.Workspace

	found, err := fp.read("workspaces", id, &workspace)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewWorkspaceError("WorkspaceByID", id, persistence.ErrWorkspaceNotFound)
	}

	return &workspace, nil
}

// DeleteWorkspace removes a workspace by its ID. Deleting an absent
// workspace is not an error.
func (fp *Persistence) DeleteWorkspace(_ context.Context, id string) error {
	filePath := path.Join(fp.root, "workspaces", id+".json")

	err := os.Remove(filePath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete workspace %s: %w", id, err)
	}

	return nil
}

// SaveWorkflowRun saves a workflow run to the file system.
func (fp *Persistence) SaveWorkflowRun(_ context.Context, run *models.WorkflowRun) error {
	return fp.write("runs", run.ID, run)
}

// WorkflowRunByID retrieves a workflow run by its ID.
func (fp *Persistence) WorkflowRunByID(_ context.Context, id string) (*models.WorkflowRun, error) {
	var run models.WorkflowRun

	found, err := fp.read("runs", id, &run)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewRunError("WorkflowRunByID", id, persistence.ErrWorkflowRunNotFound)
	}

	return &run, nil
}

// WorkflowRunsByWorkspace returns all runs belonging to the workspace,
// newest first.
func (fp *Persistence) WorkflowRunsByWorkspace(ctx context.Context, workspaceID string) ([]*models.WorkflowRun, error) {
	ids, err := fp.listIDs("runs")
	if err != nil {
		return nil, err
	}

	runs := make([]*models.WorkflowRun, 0)

	for _, id := range ids {
		run, err := fp.WorkflowRunByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if run.WorkspaceID == workspaceID {
			runs = append(runs, run)
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	return runs, nil
}

// SaveGeneration writes the generation record and its node generation index.
// The two writes are not transactional on a file system; the record is
// written first so a crash between writes leaves the index pointing at the
// previous completed generation.
func (fp *Persistence) SaveGeneration(_ context.Context, generation *models.Generation, index *models.NodeGenerationIndex) error {
	if err := fp.write("generations", generation.ID, generation); err != nil {
		return err
	}

	return fp.write(path.Join("node_generations", index.Origin.WorkspaceID), index.NodeID, index)
}

// GenerationByID retrieves a generation record by its ID.
func (fp *Persistence) GenerationByID(_ context.Context, id string) (*models.Generation, error) {
	var generation models.Generation

	found, err := fp.read("generations", id, &generation)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewGenerationError("GenerationByID", id, persistence.ErrGenerationNotFound)
	}

	return &generation, nil
}

// LatestNodeGeneration returns the index entry for the most recent
// generation of the given node within the given workspace.
func (fp *Persistence) LatestNodeGeneration(_ context.Context, workspaceID, nodeID string) (*models.NodeGenerationIndex, error) {
	var index models.NodeGenerationIndex

	found, err := fp.read(path.Join("node_generations", workspaceID), nodeID, &index)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.NewNodeGenerationError("LatestNodeGeneration", nodeID, persistence.ErrNodeGenerationNotFound)
	}

	return &index, nil
}

func (fp *Persistence) write(dir, id string, entity any) error {
	fullDir := path.Join(fp.root, dir)

	if err := os.MkdirAll(fullDir, 0750); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%s: %w", dir, id, err)
	}

	return os.WriteFile(path.Join(fullDir, id+".json"), data, 0600)
}

func (fp *Persistence) read(dir, id string, entity any) (bool, error) {
	filePath := filepath.Clean(path.Join(fp.root, dir, id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to fetch %s/%s: %w", dir, id, err)
	}

	if err := json.Unmarshal(body, entity); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s/%s: %w", dir, id, err)
	}

	return true, nil
}

func (fp *Persistence) listIDs(dir string) ([]string, error) {
	fullDir := path.Join(fp.root, dir)

	if _, err := os.Stat(fullDir); os.IsNotExist(err) {
		return nil, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(fullDir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", dir, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, file := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(file, ".json"))
	}

	return ids, nil
}
