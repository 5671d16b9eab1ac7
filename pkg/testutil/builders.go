// Package testutil provides test data builders for workspace graphs.
package testutil

import (
	"github.com/braidhq/braid/pkg/identifier"
	"github.com/braidhq/braid/pkg/models"
)

// CreateOperationNode creates an operation node with sane defaults that can be
// overridden.
func CreateOperationNode(overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:   identifier.Default(identifier.PrefixNode),
		Type: models.NodeTypeOperation,
		Name: "Generate text",
		Content: models.NodeContent{
			Type: models.ContentTypeTextGeneration,
			TextGeneration: &models.TextGenerationContent{
				Model:       "test-model",
				Prompt:      "Say hello",
				Temperature: 0.7,
				TopP:        1,
			},
		},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// CreateTextNode creates a variable node carrying static text.
func CreateTextNode(text string, overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:   identifier.Default(identifier.PrefixNode),
		Type: models.NodeTypeVariable,
		Name: "Text",
		Content: models.NodeContent{
			Type: models.ContentTypeText,
			Text: &models.TextContent{Text: text},
		},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// CreateFileNode creates a variable node referencing an uploaded file.
func CreateFileNode(fileName, extracted string) *models.Node {
	return &models.Node{
		ID:   identifier.Default(identifier.PrefixNode),
		Type: models.NodeTypeVariable,
		Name: fileName,
		Content: models.NodeContent{
			Type: models.ContentTypeFile,
			File: &models.FileContent{
				FileName: fileName,
				Text:     extracted,
			},
		},
	}
}

// WithID sets the node ID, handy for readable test assertions.
func WithID(id string) func(*models.Node) {
	return func(n *models.Node) {
		n.ID = id
	}
}

// WithName sets the node name.
func WithName(name string) func(*models.Node) {
	return func(n *models.Node) {
		n.Name = name
	}
}

// Connect creates a connection from the output of one node into an input slot
// of another.
func Connect(output, input *models.Node, inputSlot string) *models.Connection {
	return &models.Connection{
		ID:           identifier.Default(identifier.PrefixConnection),
		OutputNodeID: output.ID,
		OutputSlot:   "output",
		InputNodeID:  input.ID,
		InputSlot:    inputSlot,
	}
}

// Graph assembles node and connection maps in the shape the builder consumes.
func Graph(nodes []*models.Node, connections []*models.Connection) (map[string]*models.Node, map[string]*models.Connection) {
	nodeMap := make(map[string]*models.Node, len(nodes))
	for _, node := range nodes {
		nodeMap[node.ID] = node
	}

	connMap := make(map[string]*models.Connection, len(connections))
	for _, conn := range connections {
		connMap[conn.ID] = conn
	}

	return nodeMap, connMap
}
