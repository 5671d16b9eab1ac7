package services

import (
	"context"
	"fmt"
	"time"

	"github.com/braidhq/braid/pkg/identifier"
	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/persistence"
	"github.com/braidhq/braid/pkg/workflow"
	"github.com/go-playground/validator/v10"
)

// Workspace is the application service for workspace graphs. Nodes,
// connections and the derived workflow set are one consistency unit: every
// mutation here ends with a full synchronous workflow recompute before the
// workspace is persisted, so the run builder never sees a stale workflow set.
//
// Concurrent editors of the same workspace need external concurrency control
// at the persistence boundary (e.g. version-stamped optimistic writes); this
// service does not implement multi-writer merge.
type Workspace struct {
	persistence persistence.Persistence
	builder     *workflow.Builder
	validator   *validator.Validate
	generateID  identifier.Generator
}

// NewWorkspace creates a new workspace service.
func NewWorkspace(p persistence.Persistence, generateID identifier.Generator) *Workspace {
	if generateID == nil {
		generateID = identifier.Default
	}

	return &Workspace{
		persistence: p,
		builder:     workflow.NewBuilder(generateID),
		validator:   validator.New(),
		generateID:  generateID,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Workspace) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := s.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create creates an empty workspace.
func (s *Workspace) Create(ctx context.Context, name, owner string) (*models.Workspace, error) {
	if name == "" {
		return nil, &ServiceError{Op: "Create", Message: "workspace name is required", Err: ErrInvalidRequest}
	}

	now := time.Now()
	ws := &models.Workspace{
		ID:               s.generateID(identifier.PrefixWorkspace),
		Name:             name,
		Owner:            owner,
		Nodes:            make(map[string]*models.Node),
		Connections:      make(map[string]*models.Connection),
		EditingWorkflows: make(map[string]*models.Workflow),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.persistence.SaveWorkspace(ctx, ws); err != nil {
		return nil, fmt.Errorf("failed to save workspace: %w", err)
	}

	return ws, nil
}

// Get fetches a workspace by ID.
func (s *Workspace) Get(ctx context.Context, id string) (*models.Workspace, error) {
	return s.persistence.WorkspaceByID(ctx, id)
}

// List returns all workspaces.
func (s *Workspace) List(ctx context.Context) ([]*models.Workspace, error) {
	return s.persistence.Workspaces(ctx)
}

// Delete removes a workspace.
func (s *Workspace) Delete(ctx context.Context, id string) error {
	return s.persistence.DeleteWorkspace(ctx, id)
}

// AddNode validates and inserts a node, then recomputes workflows.
func (s *Workspace) AddNode(ctx context.Context, workspaceID string, node *models.Node) (*models.Workspace, error) {
	return s.mutate(ctx, "AddNode", workspaceID, func(ws *models.Workspace) error {
		if node.ID == "" {
			node.ID = s.generateID(identifier.PrefixNode)
		}

		if err := s.validateNode(node); err != nil {
			return err
		}

		ws.Nodes[node.ID] = node

		return nil
	})
}

// UpdateNode replaces an existing node's content, then recomputes workflows.
func (s *Workspace) UpdateNode(ctx context.Context, workspaceID string, node *models.Node) (*models.Workspace, error) {
	return s.mutate(ctx, "UpdateNode", workspaceID, func(ws *models.Workspace) error {
		if _, ok := ws.Nodes[node.ID]; !ok {
			return &ServiceError{Op: "UpdateNode", Message: "node " + node.ID, Err: ErrNodeNotFound}
		}

		if err := s.validateNode(node); err != nil {
			return err
		}

		ws.Nodes[node.ID] = node

		return nil
	})
}

// DeleteNode removes a node and every connection touching it, then recomputes
// workflows.
func (s *Workspace) DeleteNode(ctx context.Context, workspaceID, nodeID string) (*models.Workspace, error) {
	return s.mutate(ctx, "DeleteNode", workspaceID, func(ws *models.Workspace) error {
		if _, ok := ws.Nodes[nodeID]; !ok {
			return &ServiceError{Op: "DeleteNode", Message: "node " + nodeID, Err: ErrNodeNotFound}
		}

		delete(ws.Nodes, nodeID)

		for id, conn := range ws.Connections {
			if conn.OutputNodeID == nodeID || conn.InputNodeID == nodeID {
				delete(ws.Connections, id)
			}
		}

		return nil
	})
}

// AddConnection validates and inserts a connection, then recomputes
// workflows. An input slot accepts at most one connection.
func (s *Workspace) AddConnection(ctx context.Context, workspaceID string, conn *models.Connection) (*models.Workspace, error) {
	return s.mutate(ctx, "AddConnection", workspaceID, func(ws *models.Workspace) error {
		if conn.ID == "" {
			conn.ID = s.generateID(identifier.PrefixConnection)
		}

		if err := s.validator.Struct(conn); err != nil {
			return &ServiceError{Op: "AddConnection", Message: err.Error(), Err: ErrInvalidConnection}
		}

		if conn.OutputNodeID == conn.InputNodeID {
			return &ServiceError{Op: "AddConnection", Err: ErrSelfConnection}
		}

		if _, ok := ws.Nodes[conn.OutputNodeID]; !ok {
			return &ServiceError{Op: "AddConnection", Message: "output node " + conn.OutputNodeID, Err: ErrNodeNotFound}
		}

		if _, ok := ws.Nodes[conn.InputNodeID]; !ok {
			return &ServiceError{Op: "AddConnection", Message: "input node " + conn.InputNodeID, Err: ErrNodeNotFound}
		}

		for _, existing := range ws.Connections {
			if existing.InputNodeID == conn.InputNodeID && existing.InputSlot == conn.InputSlot {
				return &ServiceError{
					Op:      "AddConnection",
					Message: fmt.Sprintf("slot %s of node %s", conn.InputSlot, conn.InputNodeID),
					Err:     ErrInputSlotOccupied,
				}
			}
		}

		ws.Connections[conn.ID] = conn

		return nil
	})
}

// DeleteConnection removes a connection, then recomputes workflows.
func (s *Workspace) DeleteConnection(ctx context.Context, workspaceID, connectionID string) (*models.Workspace, error) {
	return s.mutate(ctx, "DeleteConnection", workspaceID, func(ws *models.Workspace) error {
		if _, ok := ws.Connections[connectionID]; !ok {
			return &ServiceError{Op: "DeleteConnection", Message: "connection " + connectionID, Err: ErrConnectionNotFound}
		}

		delete(ws.Connections, connectionID)

		return nil
	})
}

// Recompute rebuilds the workflow set without a graph mutation. Used after
// loading a workspace persisted by an older build.
func (s *Workspace) Recompute(ctx context.Context, workspaceID string) (*models.Workspace, error) {
	return s.mutate(ctx, "Recompute", workspaceID, func(*models.Workspace) error { return nil })
}

// mutate loads the workspace, applies the mutation, recomputes the derived
// workflow set and persists the result. The recompute is total; a mutation
// that introduces a cycle among operation nodes is rejected and nothing is
// persisted.
func (s *Workspace) mutate(
	ctx context.Context,
	op, workspaceID string,
	apply func(*models.Workspace) error,
) (*models.Workspace, error) {
	ws, err := s.persistence.WorkspaceByID(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to fetch workspace %s: %w", op, workspaceID, err)
	}

	if err := apply(ws); err != nil {
		return nil, err
	}

	workflows, err := s.builder.BuildWorkflows(ws.Nodes, ws.Connections, ws.ID)
	if err != nil {
		return nil, err
	}

	ws.EditingWorkflows = workflows
	ws.UpdatedAt = time.Now()

	if err := s.persistence.SaveWorkspace(ctx, ws); err != nil {
		return nil, fmt.Errorf("%s: failed to save workspace %s: %w", op, workspaceID, err)
	}

	return ws, nil
}

func (s *Workspace) validateNode(node *models.Node) error {
	if err := s.validator.Struct(node); err != nil {
		return &ServiceError{Op: "validateNode", Message: err.Error(), Err: ErrInvalidNode}
	}

	if err := node.Validate(); err != nil {
		return &ServiceError{Op: "validateNode", Message: err.Error(), Err: ErrInvalidNode}
	}

	return nil
}
