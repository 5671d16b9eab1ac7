// Package registry tracks the executor factories available to the engine and
// validates their configuration before instantiation.
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/braidhq/braid/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

type Registry struct {
	logger            *slog.Logger
	executorFactories map[string]protocol.ExecutorFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		logger:            logger.With("module", "registry"),
		executorFactories: make(map[string]protocol.ExecutorFactory),
	}
}

// RegisterExecutor makes a factory available under its ID. Registering the
// same ID twice replaces the previous factory.
func (r *Registry) RegisterExecutor(factory protocol.ExecutorFactory) {
	r.executorFactories[factory.ID()] = factory
}

// CreateExecutor validates config against the factory's schema and builds the
// executor.
func (r *Registry) CreateExecutor(executorID string, config map[string]any) (protocol.Executor, error) {
	factory, ok := r.executorFactories[executorID]
	if !ok {
		return nil, fmt.Errorf("executor '%s' not registered (available: %s)",
			executorID, strings.Join(r.ExecutorIDs(), ", "))
	}

	if err := r.validateConfig(factory, config); err != nil {
		return nil, fmt.Errorf("invalid config for executor '%s': %w", executorID, err)
	}

	return factory.Create(config, r.logger)
}

// ExecutorIDs returns the registered executor IDs.
func (r *Registry) ExecutorIDs() []string {
	ids := make([]string, 0, len(r.executorFactories))
	for id := range r.executorFactories {
		ids = append(ids, id)
	}

	return ids
}

func (r *Registry) validateConfig(factory protocol.ExecutorFactory, config map[string]any) error {
	schema := factory.ConfigSchema()
	if schema == nil {
		return nil
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal config schema: %w", err)
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("config validation failed: %s", strings.Join(details, "; "))
	}

	return nil
}
