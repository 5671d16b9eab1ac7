// Package protocol defines the contracts between the engine and external
// capabilities, chiefly the generation executor that performs model calls.
package protocol

import (
	"context"
	"log/slog"

	"github.com/braidhq/braid/pkg/models"
)

// StreamHandler receives partial text chunks while a generation is running.
// Handlers must be cheap; the executor may call them from its own goroutine
// but never concurrently.
type StreamHandler func(chunk string)

// Executor performs the actual model call for one generation. It is invoked
// exactly once per running-transition with the resolved prompt messages and
// must return the final assistant message or an error. A nil onChunk disables
// streaming. Executors must tolerate missing context gracefully: an
// unresolved input arrives as an absent source, not an error.
type Executor interface {
	Generate(ctx context.Context, genCtx models.GenerationContext, messages []models.Message, onChunk StreamHandler) (models.Message, error)
}

// ExecutorFactory builds executors from configuration. ConfigSchema returns a
// JSON Schema document the registry validates configs against before Create
// is called.
type ExecutorFactory interface {
	ID() string
	ConfigSchema() map[string]any
	Create(config map[string]any, logger *slog.Logger) (Executor, error)
}
