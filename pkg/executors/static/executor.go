// Package static provides a deterministic built-in executor. It produces the
// prompt it was given as the assistant response, optionally behind a fixed
// template, which makes pipelines runnable without a model provider. Used in
// tests and local development.
package static

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/protocol"
)

// Executor echoes the resolved user prompt back as the assistant message.
type Executor struct {
	response string
	delay    time.Duration
	logger   *slog.Logger
}

// NewExecutor creates a static executor from its validated config.
func NewExecutor(config map[string]any, logger *slog.Logger) (*Executor, error) {
	response, _ := config["response"].(string)

	var delay time.Duration

	if raw, ok := config["delay_ms"].(float64); ok {
		if raw < 0 {
			return nil, fmt.Errorf("delay_ms must not be negative, got %v", raw)
		}

		delay = time.Duration(raw) * time.Millisecond
	}

	return &Executor{
		response: response,
		delay:    delay,
		logger:   logger.With("module", "static_executor"),
	}, nil
}

// Generate returns the configured response, or echoes the final user message
// when no response is configured. The optional delay makes concurrency
// behavior observable in tests.
func (e *Executor) Generate(ctx context.Context, genCtx models.GenerationContext, messages []models.Message, onChunk protocol.StreamHandler) (models.Message, error) {
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return models.Message{}, ctx.Err()
		}
	}

	content := e.response
	if content == "" {
		content = lastUserContent(messages)
	}

	if onChunk != nil {
		for _, chunk := range strings.SplitAfter(content, " ") {
			onChunk(chunk)
		}
	}

	e.logger.DebugContext(ctx, "Static generation produced",
		"node_id", genCtx.OperationNode.ID,
		"content_length", len(content))

	return models.Message{Role: models.MessageRoleAssistant, Content: content}, nil
}

func lastUserContent(messages []models.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.MessageRoleUser {
			return messages[i].Content
		}
	}

	return ""
}
