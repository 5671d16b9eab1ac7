package registry_test

import (
	"testing"

	"github.com/braidhq/braid/pkg/executors/static"
	"github.com/braidhq/braid/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry() *registry.Registry {
	r := registry.NewRegistry(nil)
	r.RegisterExecutor(static.NewFactory())

	return r
}

func TestCreateExecutor(t *testing.T) {
	r := newRegistry()

	executor, err := r.CreateExecutor("static", map[string]any{"response": "pong"})
	require.NoError(t, err)
	assert.NotNil(t, executor)
}

func TestCreateExecutorNilConfig(t *testing.T) {
	r := newRegistry()

	executor, err := r.CreateExecutor("static", nil)
	require.NoError(t, err)
	assert.NotNil(t, executor)
}

func TestCreateExecutorUnknownID(t *testing.T) {
	r := newRegistry()

	_, err := r.CreateExecutor("anthropic", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
	assert.Contains(t, err.Error(), "static")
}

func TestCreateExecutorRejectsInvalidConfig(t *testing.T) {
	r := newRegistry()

	tests := []struct {
		name   string
		config map[string]any
	}{
		{name: "wrong type", config: map[string]any{"response": 42}},
		{name: "negative delay", config: map[string]any{"delay_ms": -5.0}},
		{name: "unknown property", config: map[string]any{"endpoint": "http://localhost"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.CreateExecutor("static", tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestExecutorIDs(t *testing.T) {
	r := newRegistry()

	assert.Equal(t, []string{"static"}, r.ExecutorIDs())
}
