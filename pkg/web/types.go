package web

import "github.com/braidhq/braid/pkg/models"

// CreateWorkspaceRequest is the payload for creating a workspace.
type CreateWorkspaceRequest struct {
	Name  string `json:"name"  validate:"required,min=1,max=255"`
	Owner string `json:"owner" validate:"max=255"`
}

// CreateNodeRequest is the payload for adding a node to a workspace canvas.
type CreateNodeRequest struct {
	Type      models.NodeType    `json:"type"    validate:"required,oneof=operation variable"`
	Name      string             `json:"name"    validate:"required,min=1,max=255"`
	Content   models.NodeContent `json:"content" validate:"required"`
	PositionX int                `json:"position_x"`
	PositionY int                `json:"position_y"`
}

// UpdateNodeRequest carries partial node updates. Nil fields are left
// untouched.
type UpdateNodeRequest struct {
	Name      *string             `json:"name,omitempty"    validate:"omitempty,min=1,max=255"`
	Content   *models.NodeContent `json:"content,omitempty"`
	PositionX *int                `json:"position_x,omitempty"`
	PositionY *int                `json:"position_y,omitempty"`
}

// CreateConnectionRequest is the payload for wiring two nodes together.
type CreateConnectionRequest struct {
	OutputNodeID string `json:"output_node_id" validate:"required"`
	OutputSlot   string `json:"output_slot"`
	InputNodeID  string `json:"input_node_id"  validate:"required"`
	InputSlot    string `json:"input_slot"`
}

// CreateRunRequest selects what to run: a workflow directly, or whichever
// workflow contains the given node.
type CreateRunRequest struct {
	WorkflowID string `json:"workflow_id,omitempty"`
	NodeID     string `json:"node_id,omitempty"`
}
