// Package models defines the core domain models for node-based AI pipelines:
// nodes, connections, workspaces, derived workflows and their runnable
// instantiations.
package models

import (
	"errors"
	"fmt"
)

// NodeType discriminates the two kinds of graph nodes.
type NodeType string

const (
	// NodeTypeOperation marks nodes whose execution produces output, e.g. an
	// LLM text-generation call. Operation nodes are scheduled as steps.
	NodeTypeOperation NodeType = "operation"
	// NodeTypeVariable marks nodes supplying static context (text, files)
	// consumed by operation nodes. Variable nodes are never scheduled.
	NodeTypeVariable NodeType = "variable"
)

// ContentType discriminates the payload carried by a node.
type ContentType string

const (
	ContentTypeTextGeneration ContentType = "textGeneration"
	ContentTypeText           ContentType = "text"
	ContentTypeFile           ContentType = "file"
)

// TextGenerationContent holds the parameters of an LLM invocation.
type TextGenerationContent struct {
	Model        string   `json:"model"                   validate:"required"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Prompt       string   `json:"prompt,omitempty"`
	Temperature  float64  `json:"temperature"`
	TopP         float64  `json:"top_p"`
	InputSlots   []string `json:"input_slots,omitempty"` // Named inputs fed by connections
}

// TextContent holds static text supplied by a variable node.
type TextContent struct {
	Text string `json:"text"`
}

// FileContent references an uploaded file supplied by a variable node. The
// blob itself lives with the storage collaborator; only the reference and the
// extracted text travel through the engine.
type FileContent struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	StorageKey  string `json:"storage_key,omitempty"`
	Text        string `json:"text,omitempty"` // Extracted text, when available
}

// NodeContent is the tagged payload of a node. Exactly one variant matching
// Type must be present; Validate enforces this so impossible states are
// rejected at the boundary.
type NodeContent struct {
	Type           ContentType            `json:"type" validate:"required,oneof=textGeneration text file"`
	TextGeneration *TextGenerationContent `json:"text_generation,omitempty"`
	Text           *TextContent           `json:"text,omitempty"`
	File           *FileContent           `json:"file,omitempty"`
}

var ErrInvalidNodeContent = errors.New("invalid node content")

// Validate checks that the content variant matches the declared type.
func (c *NodeContent) Validate() error {
	switch c.Type {
	case ContentTypeTextGeneration:
		if c.TextGeneration == nil || c.Text != nil || c.File != nil {
			return fmt.Errorf("%w: type %q requires exactly the text_generation payload", ErrInvalidNodeContent, c.Type)
		}
	case ContentTypeText:
		if c.Text == nil || c.TextGeneration != nil || c.File != nil {
			return fmt.Errorf("%w: type %q requires exactly the text payload", ErrInvalidNodeContent, c.Type)
		}
	case ContentTypeFile:
		if c.File == nil || c.TextGeneration != nil || c.Text != nil {
			return fmt.Errorf("%w: type %q requires exactly the file payload", ErrInvalidNodeContent, c.Type)
		}
	default:
		return fmt.Errorf("%w: unknown content type %q", ErrInvalidNodeContent, c.Type)
	}

	return nil
}

// Node is a vertex of the workspace graph.
type Node struct {
	ID        string      `json:"id"         validate:"required"`
	Type      NodeType    `json:"type"       validate:"required,oneof=operation variable"`
	Name      string      `json:"name"       validate:"required,min=1"`
	Content   NodeContent `json:"content"`
	PositionX int         `json:"position_x"`
	PositionY int         `json:"position_y"`
}

func (n *Node) IsOperationNode() bool {
	return n.Type == NodeTypeOperation
}

func (n *Node) IsVariableNode() bool {
	return n.Type == NodeTypeVariable
}

// Validate checks the node's structural invariants, including that operation
// nodes carry generation parameters and variable nodes carry context content.
func (n *Node) Validate() error {
	if err := n.Content.Validate(); err != nil {
		return err
	}

	switch n.Type {
	case NodeTypeOperation:
		if n.Content.Type != ContentTypeTextGeneration {
			return fmt.Errorf("%w: operation node %s must carry textGeneration content", ErrInvalidNodeContent, n.ID)
		}
	case NodeTypeVariable:
		if n.Content.Type == ContentTypeTextGeneration {
			return fmt.Errorf("%w: variable node %s cannot carry textGeneration content", ErrInvalidNodeContent, n.ID)
		}
	}

	return nil
}

// Clone returns a deep copy of the node. Step runs denormalize node copies so
// an editor mutation cannot change a run already in flight.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}

	clone := *n

	if n.Content.TextGeneration != nil {
		tg := *n.Content.TextGeneration
		tg.InputSlots = append([]string(nil), n.Content.TextGeneration.InputSlots...)
		clone.Content.TextGeneration = &tg
	}

	if n.Content.Text != nil {
		t := *n.Content.Text
		clone.Content.Text = &t
	}

	if n.Content.File != nil {
		f := *n.Content.File
		clone.Content.File = &f
	}

	return &clone
}

// Connection is a directed edge from an output slot of one node to an input
// slot of another. A given input slot accepts at most one connection; the
// editor enforces that, the engine only relies on set semantics when it
// computes degree.
type Connection struct {
	ID           string `json:"id"             validate:"required"`
	OutputNodeID string `json:"output_node_id" validate:"required"`
	OutputSlot   string `json:"output_slot"`
	InputNodeID  string `json:"input_node_id"  validate:"required"`
	InputSlot    string `json:"input_slot"`
}
