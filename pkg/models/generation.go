package models

import "time"

// GenerationStatus is the closed lifecycle of one executor invocation:
// created → queued → running → {completed | failed | cancelled}.
type GenerationStatus string

const (
	GenerationStatusCreated   GenerationStatus = "created"
	GenerationStatusQueued    GenerationStatus = "queued"
	GenerationStatusRunning   GenerationStatus = "running"
	GenerationStatusCompleted GenerationStatus = "completed"
	GenerationStatusFailed    GenerationStatus = "failed"
	GenerationStatusCancelled GenerationStatus = "cancelled"
)

// IsTerminal reports whether the status admits no further transitions.
func (s GenerationStatus) IsTerminal() bool {
	return s == GenerationStatusCompleted || s == GenerationStatusFailed || s == GenerationStatusCancelled
}

// OriginType discriminates where a generation was requested from.
type OriginType string

const (
	OriginTypeWorkspace   OriginType = "workspace"   // Ad-hoc generation from the editor
	OriginTypeWorkflowRun OriginType = "workflowRun" // Generation driven by a step run
)

// GenerationOrigin records the context a generation belongs to. WorkflowRunID
// and StepRunID are set only for run-driven generations.
type GenerationOrigin struct {
	Type          OriginType `json:"type"`
	WorkspaceID   string     `json:"workspace_id"`
	WorkflowRunID string     `json:"workflow_run_id,omitempty"`
	StepRunID     string     `json:"step_run_id,omitempty"`
}

// MessageRole identifies the author of a prompt message.
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is one entry of a generation's prompt or response history.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// GenerationError captures a structured executor failure.
type GenerationError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// GenerationContext is the resolved input of an executor invocation: the
// operation node, the source nodes feeding it, and the origin.
type GenerationContext struct {
	OperationNode *Node            `json:"operation_node"`
	SourceNodes   []*Node          `json:"source_nodes"`
	Origin        GenerationOrigin `json:"origin"`
}

// Generation tracks one executor invocation through its lifecycle. Stage
// timestamps are pointers so each record carries only the fields valid for
// the state it has reached; transition functions in the generation package
// are the only writers.
type Generation struct {
	ID       string            `json:"id"`
	Status   GenerationStatus  `json:"status"`
	Context  GenerationContext `json:"context"`
	Messages []Message         `json:"messages,omitempty"`
	Error    *GenerationError  `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	QueuedAt    *time.Time `json:"queued_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FailedAt    *time.Time `json:"failed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// LastAssistantMessage returns the content of the final assistant message, the
// value downstream prompts resolve against.
func (g *Generation) LastAssistantMessage() (string, bool) {
	for i := len(g.Messages) - 1; i >= 0; i-- {
		if g.Messages[i].Role == MessageRoleAssistant {
			return g.Messages[i].Content, true
		}
	}

	return "", false
}

// NodeGenerationIndex is the lightweight pointer record maintained per node
// and origin, recording the latest generation's lifecycle timestamps. It lets
// "find the most recent completed output of node X" resolve without scanning
// every generation.
type NodeGenerationIndex struct {
	GenerationID string           `json:"generation_id"`
	NodeID       string           `json:"node_id"`
	Origin       GenerationOrigin `json:"origin"`
	Status       GenerationStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	QueuedAt     *time.Time       `json:"queued_at,omitempty"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	FailedAt     *time.Time       `json:"failed_at,omitempty"`
	CancelledAt  *time.Time       `json:"cancelled_at,omitempty"`
}
