// Package redis provides Redis-backed persistence for workspaces, workflow
// runs and generations. Entities are stored as JSON strings with set-based
// secondary indexes for listing, and the generation record plus its node
// index are written in one transactional pipeline.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/persistence"
	redis "github.com/redis/go-redis/v9"
)

const namespace = "braid"

// Persistence implements the persistence.Persistence interface on top of a
// Redis server.
type Persistence struct {
	client redis.UniversalClient
}

// NewPersistence connects to the Redis instance described by the URL
// (redis://[user:pass@]host:port/db).
func NewPersistence(url string) (*Persistence, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	return &Persistence{client: redis.NewClient(opts)}, nil
}

// NewPersistenceWithClient wraps an existing client, used by tests.
func NewPersistenceWithClient(client redis.UniversalClient) *Persistence {
	return &Persistence{client: client}
}

func (rp *Persistence) Close(_ context.Context) error {
	return rp.client.Close()
}

func (rp *Persistence) HealthCheck(ctx context.Context) error {
	return rp.client.Ping(ctx).Err()
}

func key(args ...string) string {
	return namespace + ":" + strings.Join(args, ":")
}

// Workspaces returns all workspaces sorted by creation time.
func (rp *Persistence) Workspaces(ctx context.Context) ([]*models.Workspace, error) {
	ids, err := rp.client.SMembers(ctx, key("workspaces")).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}

	workspaces := make([]*models.Workspace, 0, len(ids))

	for _, id := range ids {
		workspace, err := rp.WorkspaceByID(ctx, id)
		if err != nil {
			if persistence.IsWorkspaceNotFound(err) {
				continue
			}

			return nil, err
		}

		workspaces = append(workspaces, workspace)
	}

	sort.Slice(workspaces, func(i, j int) bool {
		return workspaces[i].CreatedAt.Before(workspaces[j].CreatedAt)
	})

	return workspaces, nil
}

func (rp *Persistence) SaveWorkspace(ctx context.Context, workspace *models.Workspace) error {
	data, err := json.Marshal(workspace)
	if err != nil {
		return fmt.Errorf("failed to marshal workspace %s: %w", workspace.ID, err)
	}

	pipe := rp.client.TxPipeline()
	pipe.Set(ctx, key("workspace", workspace.ID), data, 0)
	pipe.SAdd(ctx, key("workspaces"), workspace.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save workspace %s: %w", workspace.ID, err)
	}

	return nil
}

func (rp *Persistence) WorkspaceByID(ctx context.Context, id string) (*models.Workspace, error) {
	data, err := rp.client.Get(ctx, key("workspace", id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.NewWorkspaceError("WorkspaceByID", id, persistence.ErrWorkspaceNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch workspace %s: %w", id, err)
	}

	var workspace models.Workspace
	if err := json.Unmarshal(data, &workspace); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workspace %s: %w", id, err)
	}

	return &workspace, nil
}

func (rp *Persistence) DeleteWorkspace(ctx context.Context, id string) error {
	pipe := rp.client.TxPipeline()
	pipe.Del(ctx, key("workspace", id))
	pipe.SRem(ctx, key("workspaces"), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete workspace %s: %w", id, err)
	}

	return nil
}

func (rp *Persistence) SaveWorkflowRun(ctx context.Context, run *models.WorkflowRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow run %s: %w", run.ID, err)
	}

	pipe := rp.client.TxPipeline()
	pipe.Set(ctx, key("run", run.ID), data, 0)
	pipe.SAdd(ctx, key("workspace_runs", run.WorkspaceID), run.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save workflow run %s: %w", run.ID, err)
	}

	return nil
}

func (rp *Persistence) WorkflowRunByID(ctx context.Context, id string) (*models.WorkflowRun, error) {
	data, err := rp.client.Get(ctx, key("run", id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.NewRunError("WorkflowRunByID", id, persistence.ErrWorkflowRunNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflow run %s: %w", id, err)
	}

	var run models.WorkflowRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow run %s: %w", id, err)
	}

	return &run, nil
}

// WorkflowRunsByWorkspace returns all runs belonging to the workspace,
// newest first.
func (rp *Persistence) WorkflowRunsByWorkspace(ctx context.Context, workspaceID string) ([]*models.WorkflowRun, error) {
	ids, err := rp.client.SMembers(ctx, key("workspace_runs", workspaceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for workspace %s: %w", workspaceID, err)
	}

	runs := make([]*models.WorkflowRun, 0, len(ids))

	for _, id := range ids {
		run, err := rp.WorkflowRunByID(ctx, id)
		if err != nil {
			if persistence.IsWorkflowRunNotFound(err) {
				continue
			}

			return nil, err
		}

		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	return runs, nil
}

// SaveGeneration writes the generation record and its node generation index
// atomically in one MULTI/EXEC pipeline.
func (rp *Persistence) SaveGeneration(ctx context.Context, generation *models.Generation, index *models.NodeGenerationIndex) error {
	genData, err := json.Marshal(generation)
	if err != nil {
		return fmt.Errorf("failed to marshal generation %s: %w", generation.ID, err)
	}

	indexData, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal generation index for node %s: %w", index.NodeID, err)
	}

	pipe := rp.client.TxPipeline()
	pipe.Set(ctx, key("generation", generation.ID), genData, 0)
	pipe.Set(ctx, key("node_generation", index.Origin.WorkspaceID, index.NodeID), indexData, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save generation %s: %w", generation.ID, err)
	}

	return nil
}

func (rp *Persistence) GenerationByID(ctx context.Context, id string) (*models.Generation, error) {
	data, err := rp.client.Get(ctx, key("generation", id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.NewGenerationError("GenerationByID", id, persistence.ErrGenerationNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch generation %s: %w", id, err)
	}

	var generation models.Generation
	if err := json.Unmarshal(data, &generation); err != nil {
		return nil, fmt.Errorf("failed to unmarshal generation %s: %w", id, err)
	}

	return &generation, nil
}

func (rp *Persistence) LatestNodeGeneration(ctx context.Context, workspaceID, nodeID string) (*models.NodeGenerationIndex, error) {
	data, err := rp.client.Get(ctx, key("node_generation", workspaceID, nodeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, persistence.NewNodeGenerationError("LatestNodeGeneration", nodeID, persistence.ErrNodeGenerationNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch generation index for node %s: %w", nodeID, err)
	}

	var index models.NodeGenerationIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to unmarshal generation index for node %s: %w", nodeID, err)
	}

	return &index, nil
}
