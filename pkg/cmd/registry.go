package cmd

import (
	"log/slog"

	"github.com/braidhq/braid/pkg/executors/static"
	"github.com/braidhq/braid/pkg/registry"
)

// NewRegistry creates the executor registry with the built-in executors
// registered.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterExecutor(static.NewFactory())

	return reg
}
