package models

import "time"

// Workspace is the container of all nodes and connections a user edits, plus
// the derived workflow set. Nodes/connections and EditingWorkflows form a
// single consistency unit: every mutation must be followed by a full workflow
// recompute before the workflow set is used by the run builder. The workspace
// service owns that recompute.
type Workspace struct {
	ID               string                 `json:"id"                validate:"required"`
	Name             string                 `json:"name"              validate:"required,min=1"`
	Nodes            map[string]*Node       `json:"nodes"`
	Connections      map[string]*Connection `json:"connections"`
	EditingWorkflows map[string]*Workflow   `json:"editing_workflows"`
	Owner            string                 `json:"owner"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// NodeByID returns the node with the given ID, if present.
func (w *Workspace) NodeByID(id string) (*Node, bool) {
	node, ok := w.Nodes[id]

	return node, ok
}

// ConnectionsInto returns all connections whose input side is the given node.
func (w *Workspace) ConnectionsInto(nodeID string) []*Connection {
	var into []*Connection

	for _, conn := range w.Connections {
		if conn.InputNodeID == nodeID {
			into = append(into, conn)
		}
	}

	return into
}
