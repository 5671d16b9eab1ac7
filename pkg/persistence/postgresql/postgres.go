// Package postgresql provides PostgreSQL persistence for workspaces,
// workflow runs and generations. Entities are stored as JSONB documents with
// key columns broken out for indexing; the generation record and its node
// generation index are written in one transaction.
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/persistence"
	"github.com/braidhq/braid/pkg/persistence/sqlbase"
	_ "github.com/lib/pq" // postgres driver
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence creates a new PostgreSQL persistence layer and runs pending
// migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Workspaces returns all workspaces ordered by creation time.
func (p *Persistence) Workspaces(ctx context.Context) ([]*models.Workspace, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT data FROM workspaces ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query workspaces: %w", err)
	}

	defer p.closeRows(ctx, rows)

	workspaces := make([]*models.Workspace, 0)

	for rows.Next() {
		var data []byte

		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}

		var workspace models.Workspace
		if err := json.Unmarshal(data, &workspace); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workspace: %w", err)
		}

		workspaces = append(workspaces, &workspace)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workspaces: %w", err)
	}

	return workspaces, nil
}

// SaveWorkspace upserts a workspace document.
func (p *Persistence) SaveWorkspace(ctx context.Context, workspace *models.Workspace) error {
	data, err := json.Marshal(workspace)
	if err != nil {
		return fmt.Errorf("failed to marshal workspace %s: %w", workspace.ID, err)
	}

	query := `
		INSERT INTO workspaces (id, name, owner, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			owner = EXCLUDED.owner,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`

	_, err = p.db.ExecContext(ctx, query,
		workspace.ID, workspace.Name, workspace.Owner, data,
		workspace.CreatedAt, workspace.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save workspace %s: %w", workspace.ID, err)
	}

	return nil
}

// WorkspaceByID returns a workspace by its ID.
func (p *Persistence) WorkspaceByID(ctx context.Context, id string) (*models.Workspace, error) {
	var data []byte

	err := p.db.QueryRowContext(ctx, "SELECT data FROM workspaces WHERE id = $1", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
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

// DeleteWorkspace removes a workspace row.
func (p *Persistence) DeleteWorkspace(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, "DELETE FROM workspaces WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workspace %s: %w", id, err)
	}

	return nil
}

// SaveWorkflowRun upserts a workflow run document.
func (p *Persistence) SaveWorkflowRun(ctx context.Context, run *models.WorkflowRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow run %s: %w", run.ID, err)
	}

	query := `
		INSERT INTO workflow_runs (id, workspace_id, workflow_id, status, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`

	_, err = p.db.ExecContext(ctx, query,
		run.ID, run.WorkspaceID, run.WorkflowID, string(run.Status), data,
		run.CreatedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save workflow run %s: %w", run.ID, err)
	}

	return nil
}

// WorkflowRunByID returns a workflow run by its ID.
func (p *Persistence) WorkflowRunByID(ctx context.Context, id string) (*models.WorkflowRun, error) {
	var data []byte

	err := p.db.QueryRowContext(ctx, "SELECT data FROM workflow_runs WHERE id = $1", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
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
func (p *Persistence) WorkflowRunsByWorkspace(ctx context.Context, workspaceID string) ([]*models.WorkflowRun, error) {
	query := "SELECT data FROM workflow_runs WHERE workspace_id = $1 ORDER BY created_at DESC"

	rows, err := p.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs for workspace %s: %w", workspaceID, err)
	}

	defer p.closeRows(ctx, rows)

	runs := make([]*models.WorkflowRun, 0)

	for rows.Next() {
		var data []byte

		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan workflow run: %w", err)
		}

		var run models.WorkflowRun
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow run: %w", err)
		}

		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow runs: %w", err)
	}

	return runs, nil
}

// SaveGeneration writes the generation record and its node generation index
// in one transaction.
func (p *Persistence) SaveGeneration(ctx context.Context, generation *models.Generation, index *models.NodeGenerationIndex) error {
	genData, err := json.Marshal(generation)
	if err != nil {
		return fmt.Errorf("failed to marshal generation %s: %w", generation.ID, err)
	}

	indexData, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal generation index for node %s: %w", index.NodeID, err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	generationQuery := `
		INSERT INTO generations (id, workspace_id, node_id, status, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`

	_, err = tx.ExecContext(ctx, generationQuery,
		generation.ID,
		generation.Context.Origin.WorkspaceID,
		generation.Context.OperationNode.ID,
		string(generation.Status),
		genData,
		generation.CreatedAt,
		time.Now().UTC())
	if err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("failed to save generation %s: %w", generation.ID, err)
	}

	indexQuery := `
		INSERT INTO node_generations (workspace_id, node_id, generation_id, data, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workspace_id, node_id) DO UPDATE SET
			generation_id = EXCLUDED.generation_id,
			data = EXCLUDED.data,
			created_at = EXCLUDED.created_at
	`

	_, err = tx.ExecContext(ctx, indexQuery,
		index.Origin.WorkspaceID, index.NodeID, index.GenerationID, indexData, index.CreatedAt)
	if err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("failed to save generation index for node %s: %w", index.NodeID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit generation %s: %w", generation.ID, err)
	}

	return nil
}

// GenerationByID returns a generation record by its ID.
func (p *Persistence) GenerationByID(ctx context.Context, id string) (*models.Generation, error) {
	var data []byte

	err := p.db.QueryRowContext(ctx, "SELECT data FROM generations WHERE id = $1", id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
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

// LatestNodeGeneration returns the index entry for the most recent
// generation of the given node within the given workspace.
func (p *Persistence) LatestNodeGeneration(ctx context.Context, workspaceID, nodeID string) (*models.NodeGenerationIndex, error) {
	var data []byte

	query := "SELECT data FROM node_generations WHERE workspace_id = $1 AND node_id = $2"

	err := p.db.QueryRowContext(ctx, query, workspaceID, nodeID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
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

func (p *Persistence) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
