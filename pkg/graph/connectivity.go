// Package graph computes connectivity over workspace node/connection graphs:
// bidirectional adjacency, connected components and component-local edges.
package graph

import "github.com/braidhq/braid/pkg/models"

// BuildAdjacency records every connection whose both endpoints are present in
// nodeIDs as a bidirectional edge, so connected components can be found by
// non-directional traversal. Connections referencing unknown nodes are
// dropped, and duplicate edges between the same two nodes collapse via set
// semantics.
func BuildAdjacency(connections map[string]*models.Connection, nodeIDs map[string]struct{}) map[string]map[string]struct{} {
	adjacency := make(map[string]map[string]struct{}, len(nodeIDs))

	addEdge := func(from, to string) {
		if adjacency[from] == nil {
			adjacency[from] = make(map[string]struct{})
		}

		adjacency[from][to] = struct{}{}
	}

	for _, conn := range connections {
		if _, ok := nodeIDs[conn.OutputNodeID]; !ok {
			continue
		}

		if _, ok := nodeIDs[conn.InputNodeID]; !ok {
			continue
		}

		addEdge(conn.OutputNodeID, conn.InputNodeID)
		addEdge(conn.InputNodeID, conn.OutputNodeID)
	}

	return adjacency
}

// FindConnectedNodes returns every node reachable from startID over the
// adjacency map, startID included. The traversal is an iterative depth-first
// walk with an explicit stack so deep graphs cannot exhaust the call stack,
// and a visited set guards against cycles. A node with no edges is its own
// singleton component.
func FindConnectedNodes(startID string, nodes map[string]*models.Node, adjacency map[string]map[string]struct{}) map[string]*models.Node {
	component := make(map[string]*models.Node)

	start, ok := nodes[startID]
	if !ok {
		return component
	}

	visited := map[string]struct{}{startID: {}}
	stack := []string{startID}
	component[startID] = start

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for neighbor := range adjacency[current] {
			if _, seen := visited[neighbor]; seen {
				continue
			}

			visited[neighbor] = struct{}{}

			node, ok := nodes[neighbor]
			if !ok {
				continue
			}

			component[neighbor] = node
			stack = append(stack, neighbor)
		}
	}

	return component
}

// FindConnectedConnections filters connections down to those whose both
// endpoints lie inside the given node set.
func FindConnectedConnections(nodeIDs map[string]struct{}, connections map[string]*models.Connection) map[string]*models.Connection {
	connected := make(map[string]*models.Connection)

	for id, conn := range connections {
		if _, ok := nodeIDs[conn.OutputNodeID]; !ok {
			continue
		}

		if _, ok := nodeIDs[conn.InputNodeID]; !ok {
			continue
		}

		connected[id] = conn
	}

	return connected
}

// NodeIDSet returns the key set of a node map, in the shape the other
// functions in this package consume.
func NodeIDSet(nodes map[string]*models.Node) map[string]struct{} {
	ids := make(map[string]struct{}, len(nodes))
	for id := range nodes {
		ids[id] = struct{}{}
	}

	return ids
}
