package workflow

import (
	"sort"

	"github.com/braidhq/braid/pkg/graph"
	"github.com/braidhq/braid/pkg/identifier"
	"github.com/braidhq/braid/pkg/models"
)

// Builder derives executable workflows from a workspace graph. Every maximal
// connected component with at least one operation node becomes one workflow;
// components made only of variable nodes are inert.
type Builder struct {
	generateID identifier.Generator
}

// NewBuilder creates a builder. A nil generator falls back to the default
// UUID-backed one.
func NewBuilder(generateID identifier.Generator) *Builder {
	if generateID == nil {
		generateID = identifier.Default
	}

	return &Builder{generateID: generateID}
}

// BuildWorkflows recomputes the full workflow set for the given nodes and
// connections. The rebuild is total, not incremental: correctness over
// cleverness, since editor mutations are small and graphs are. A cycle among
// operation nodes returns a CyclicDependencyError rather than dropping the
// affected nodes.
func (b *Builder) BuildWorkflows(
	nodes map[string]*models.Node,
	connections map[string]*models.Connection,
	workspaceID string,
) (map[string]*models.Workflow, error) {
	adjacency := graph.BuildAdjacency(connections, graph.NodeIDSet(nodes))
	workflows := make(map[string]*models.Workflow)
	processed := make(map[string]struct{})

	// Deterministic component discovery order keeps rebuilds comparable.
	operationIDs := make([]string, 0, len(nodes))

	for id, node := range nodes {
		if node.IsOperationNode() {
			operationIDs = append(operationIDs, id)
		}
	}

	sort.Strings(operationIDs)

	for _, id := range operationIDs {
		if _, done := processed[id]; done {
			continue
		}

		component := graph.FindConnectedNodes(id, nodes, adjacency)
		for memberID, member := range component {
			if member.IsOperationNode() {
				processed[memberID] = struct{}{}
			}
		}

		componentConnections := graph.FindConnectedConnections(graph.NodeIDSet(component), connections)

		wf, err := b.buildWorkflow(component, componentConnections, workspaceID)
		if err != nil {
			return nil, err
		}

		workflows[wf.ID] = wf
	}

	return workflows, nil
}

// buildWorkflow levels one connected component into jobs via Kahn's algorithm,
// batched per level, over operation-to-operation edges only. Variable nodes
// supply context, not ordering.
func (b *Builder) buildWorkflow(
	component map[string]*models.Node,
	connections map[string]*models.Connection,
	workspaceID string,
) (*models.Workflow, error) {
	// Dependency edges, collapsed to distinct sources: an input's dependency
	// is "has this upstream node completed", not edge count.
	parents := make(map[string]map[string]struct{})
	children := make(map[string]map[string]struct{})
	operationCount := 0

	for _, node := range component {
		if node.IsOperationNode() {
			operationCount++
		}
	}

	for _, conn := range connections {
		output, outputOK := component[conn.OutputNodeID]
		input, inputOK := component[conn.InputNodeID]

		if !outputOK || !inputOK || !output.IsOperationNode() || !input.IsOperationNode() {
			continue
		}

		if parents[input.ID] == nil {
			parents[input.ID] = make(map[string]struct{})
		}

		if children[output.ID] == nil {
			children[output.ID] = make(map[string]struct{})
		}

		parents[input.ID][output.ID] = struct{}{}
		children[output.ID][input.ID] = struct{}{}
	}

	inDegree := make(map[string]int, operationCount)

	for _, node := range component {
		if node.IsOperationNode() {
			inDegree[node.ID] = len(parents[node.ID])
		}
	}

	var level []string

	for nodeID, degree := range inDegree {
		if degree == 0 {
			level = append(level, nodeID)
		}
	}

	sort.Strings(level)

	wf := &models.Workflow{
		ID:          b.generateID(identifier.PrefixWorkflow),
		WorkspaceID: workspaceID,
		Nodes:       component,
	}

	leveled := 0

	for len(level) > 0 {
		job := &models.Job{
			ID:         b.generateID(identifier.PrefixJob),
			WorkflowID: wf.ID,
		}

		var next []string

		for _, nodeID := range level {
			job.Steps = append(job.Steps, b.buildStep(job.ID, component[nodeID], connections, component))
			leveled++

			for childID := range children[nodeID] {
				inDegree[childID]--
				if inDegree[childID] == 0 {
					next = append(next, childID)
				}
			}
		}

		wf.Jobs = append(wf.Jobs, job)

		sort.Strings(next)
		level = next
	}

	if leveled != operationCount {
		var leftover []string

		for nodeID, degree := range inDegree {
			if degree > 0 {
				leftover = append(leftover, nodeID)
			}
		}

		sort.Strings(leftover)

		return nil, &CyclicDependencyError{WorkspaceID: workspaceID, NodeIDs: leftover}
	}

	return wf, nil
}

// buildStep resolves the source context of one operation node: for every
// connection feeding one of its input slots, the upstream node joins the
// generation template.
func (b *Builder) buildStep(
	jobID string,
	node *models.Node,
	connections map[string]*models.Connection,
	component map[string]*models.Node,
) *models.Step {
	sourceIDs := make(map[string]struct{})

	var sources []*models.Node

	for _, conn := range connections {
		if conn.InputNodeID != node.ID {
			continue
		}

		if _, seen := sourceIDs[conn.OutputNodeID]; seen {
			continue
		}

		source, ok := component[conn.OutputNodeID]
		if !ok {
			continue
		}

		sourceIDs[conn.OutputNodeID] = struct{}{}
		sources = append(sources, source)
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].ID < sources[j].ID })

	return &models.Step{
		ID:     b.generateID(identifier.PrefixStep),
		JobID:  jobID,
		NodeID: node.ID,
		Template: models.GenerationTemplate{
			OperationNode: node,
			SourceNodes:   sources,
		},
	}
}
