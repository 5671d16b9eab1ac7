package static_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/braidhq/braid/pkg/executors/static"
	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutor(t *testing.T, config map[string]any) *static.Executor {
	t.Helper()

	executor, err := static.NewExecutor(config, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	return executor
}

func genContext() models.GenerationContext {
	return models.GenerationContext{
		OperationNode: testutil.CreateOperationNode(testutil.WithID("nd-op")),
		Origin:        models.GenerationOrigin{Type: models.OriginTypeWorkspace, WorkspaceID: "wf-1"},
	}
}

func userMessage(content string) []models.Message {
	return []models.Message{{Role: models.MessageRoleUser, Content: content}}
}

func TestGenerateEchoesLastUserMessage(t *testing.T) {
	executor := newExecutor(t, map[string]any{})

	messages := []models.Message{
		{Role: models.MessageRoleSystem, Content: "You are terse."},
		{Role: models.MessageRoleUser, Content: "first"},
		{Role: models.MessageRoleAssistant, Content: "draft"},
		{Role: models.MessageRoleUser, Content: "second"},
	}

	response, err := executor.Generate(context.Background(), genContext(), messages, nil)
	require.NoError(t, err)
	assert.Equal(t, models.MessageRoleAssistant, response.Role)
	assert.Equal(t, "second", response.Content)
}

func TestGenerateFixedResponse(t *testing.T) {
	executor := newExecutor(t, map[string]any{"response": "always this"})

	response, err := executor.Generate(context.Background(), genContext(), userMessage("ignored"), nil)
	require.NoError(t, err)
	assert.Equal(t, "always this", response.Content)
}

func TestGenerateStreamsChunks(t *testing.T) {
	executor := newExecutor(t, map[string]any{"response": "one two three"})

	var chunks []string

	response, err := executor.Generate(context.Background(), genContext(), userMessage("ignored"), func(chunk string) {
		chunks = append(chunks, chunk)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one ", "two ", "three"}, chunks)
	assert.Equal(t, response.Content, strings.Join(chunks, ""))
}

func TestGenerateDelayHonorsContext(t *testing.T) {
	executor := newExecutor(t, map[string]any{"delay_ms": 5000.0})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := executor.Generate(ctx, genContext(), userMessage("prompt"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewExecutorRejectsNegativeDelay(t *testing.T) {
	_, err := static.NewExecutor(map[string]any{"delay_ms": -1.0}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
