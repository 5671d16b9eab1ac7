// Package events defines event types for run and generation lifecycle
// notifications.
package events

import (
	"time"

	"github.com/braidhq/braid/pkg/models"
)

type EventType string

// Topic carries every lifecycle event.
const Topic = "braid.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Workflow run lifecycle events.
	RunStartedEvent   EventType = "run.started"
	RunCompletedEvent EventType = "run.completed"
	RunFailedEvent    EventType = "run.failed"
	RunCancelledEvent EventType = "run.cancelled"

	// Job/step lifecycle events.
	JobStartedEvent   EventType = "job.started"
	JobCompletedEvent EventType = "job.completed"
	StepStartedEvent  EventType = "step.started"
	StepFinishedEvent EventType = "step.finished"

	// Generation lifecycle events.
	GenerationQueuedEvent   EventType = "generation.queued"
	GenerationFinishedEvent EventType = "generation.finished"
)

type BaseEvent struct {
	ID            string         `json:"id"`
	Type          EventType      `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	WorkspaceID   string         `json:"workspace_id"`
	WorkflowRunID string         `json:"workflow_run_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type RunStarted struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	JobCount   int    `json:"job_count"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunCompleted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

type RunFailed struct {
	BaseEvent

	StepRunID string        `json:"step_run_id"`
	Error     string        `json:"error"`
	Duration  time.Duration `json:"duration"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

type RunCancelled struct {
	BaseEvent
}

func (e RunCancelled) GetType() EventType {
	return RunCancelledEvent
}

type JobStarted struct {
	BaseEvent

	JobRunID  string `json:"job_run_id"`
	StepCount int    `json:"step_count"`
}

func (e JobStarted) GetType() EventType {
	return JobStartedEvent
}

type JobCompleted struct {
	BaseEvent

	JobRunID string `json:"job_run_id"`
}

func (e JobCompleted) GetType() EventType {
	return JobCompletedEvent
}

type StepStarted struct {
	BaseEvent

	JobRunID  string `json:"job_run_id"`
	StepRunID string `json:"step_run_id"`
	NodeID    string `json:"node_id"`
	Attempt   int    `json:"attempt"`
}

func (e StepStarted) GetType() EventType {
	return StepStartedEvent
}

// StepFinished reports a step run reaching a terminal status, whichever one.
type StepFinished struct {
	BaseEvent

	JobRunID     string            `json:"job_run_id"`
	StepRunID    string            `json:"step_run_id"`
	NodeID       string            `json:"node_id"`
	Status       models.StepStatus `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	DurationMs   int64             `json:"duration_ms"`
}

func (e StepFinished) GetType() EventType {
	return StepFinishedEvent
}

type GenerationQueued struct {
	BaseEvent

	GenerationID string `json:"generation_id"`
	NodeID       string `json:"node_id"`
}

func (e GenerationQueued) GetType() EventType {
	return GenerationQueuedEvent
}

// GenerationFinished reports a generation reaching a terminal status.
type GenerationFinished struct {
	BaseEvent

	GenerationID string                  `json:"generation_id"`
	NodeID       string                  `json:"node_id"`
	Status       models.GenerationStatus `json:"status"`
	ErrorMessage string                  `json:"error_message,omitempty"`
}

func (e GenerationFinished) GetType() EventType {
	return GenerationFinishedEvent
}
