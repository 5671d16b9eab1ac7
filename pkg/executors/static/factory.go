// Package static provides the static executor factory for registry integration.
package static

import (
	"log/slog"

	"github.com/braidhq/braid/pkg/protocol"
)

// Factory creates static Executor instances.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.ExecutorFactory {
	return &Factory{}
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "static"
}

// ConfigSchema returns the JSON schema for static executor configuration.
func (f *Factory) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"response": map[string]any{
				"type":        "string",
				"description": "Fixed assistant response. When empty, the final user message is echoed back.",
			},
			"delay_ms": map[string]any{
				"type":        "number",
				"description": "Artificial generation latency in milliseconds.",
				"minimum":     0,
			},
			"model": map[string]any{
				"type":        "string",
				"description": "Model identifier, accepted and ignored.",
			},
			"temperature": map[string]any{
				"type":        "number",
				"description": "Sampling temperature, accepted and ignored.",
			},
			"top_p": map[string]any{
				"type":        "number",
				"description": "Nucleus sampling cutoff, accepted and ignored.",
			},
		},
		"additionalProperties": false,
	}
}

// Create creates a new static Executor instance.
func (f *Factory) Create(config map[string]any, logger *slog.Logger) (protocol.Executor, error) {
	return NewExecutor(config, logger)
}
