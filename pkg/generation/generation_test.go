package generation_test

import (
	"testing"

	"github.com/braidhq/braid/pkg/generation"
	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeneration(t *testing.T) *models.Generation {
	t.Helper()

	node := testutil.CreateOperationNode(testutil.WithID("nd-op"))

	return generation.New(nil, models.GenerationContext{
		OperationNode: node,
		Origin: models.GenerationOrigin{
			Type:        models.OriginTypeWorkspace,
			WorkspaceID: "wf-gen",
		},
	})
}

func TestNewGeneration(t *testing.T) {
	g := newGeneration(t)

	assert.NotEmpty(t, g.ID)
	assert.Equal(t, models.GenerationStatusCreated, g.Status)
	assert.False(t, g.CreatedAt.IsZero())
	assert.Nil(t, g.QueuedAt)
}

func TestGenerationHappyPath(t *testing.T) {
	g := newGeneration(t)

	queued, err := generation.Queue(g)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusQueued, queued.Status)
	require.NotNil(t, queued.QueuedAt)

	// The original record is untouched; transitions return new records.
	assert.Equal(t, models.GenerationStatusCreated, g.Status)

	running, err := generation.Run(queued)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusRunning, running.Status)
	require.NotNil(t, running.StartedAt)

	completed, err := generation.Complete(running, []models.Message{
		{Role: models.MessageRoleUser, Content: "Say hello"},
		{Role: models.MessageRoleAssistant, Content: "Hello!"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	content, ok := completed.LastAssistantMessage()
	require.True(t, ok)
	assert.Equal(t, "Hello!", content)
}

func TestGenerationFail(t *testing.T) {
	g := newGeneration(t)

	queued, err := generation.Queue(g)
	require.NoError(t, err)

	running, err := generation.Run(queued)
	require.NoError(t, err)

	failed, err := generation.Fail(running, models.GenerationError{
		Name:    "ProviderError",
		Message: "rate limited",
	})
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusFailed, failed.Status)
	require.NotNil(t, failed.FailedAt)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "rate limited", failed.Error.Message)
}

func TestGenerationSkippedStageRejected(t *testing.T) {
	g := newGeneration(t)

	// created → running skips the queued stage.
	_, err := generation.Run(g)
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrInvalidTransition)

	// created → completed likewise.
	_, err = generation.Complete(g, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrInvalidTransition)
}

func TestGenerationTerminalRejectsAllTransitions(t *testing.T) {
	g := newGeneration(t)

	queued, err := generation.Queue(g)
	require.NoError(t, err)

	running, err := generation.Run(queued)
	require.NoError(t, err)

	completed, err := generation.Complete(running, nil)
	require.NoError(t, err)

	for _, transition := range []func() error{
		func() error { _, err := generation.Queue(completed); return err },
		func() error { _, err := generation.Run(completed); return err },
		func() error { _, err := generation.Complete(completed, nil); return err },
		func() error { _, err := generation.Fail(completed, models.GenerationError{}); return err },
		func() error { _, err := generation.Cancel(completed); return err },
	} {
		err := transition()
		require.Error(t, err)
		assert.ErrorIs(t, err, generation.ErrAlreadyTerminal)
	}
}

func TestGenerationCancelFromAnyNonTerminalStatus(t *testing.T) {
	g := newGeneration(t)

	cancelled, err := generation.Cancel(g)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	queued, err := generation.Queue(g)
	require.NoError(t, err)

	cancelled, err = generation.Cancel(queued)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationStatusCancelled, cancelled.Status)
}

func TestGenerationRunClearsStaleMessages(t *testing.T) {
	g := newGeneration(t)
	g.Messages = []models.Message{{Role: models.MessageRoleUser, Content: "stale"}}

	queued, err := generation.Queue(g)
	require.NoError(t, err)

	running, err := generation.Run(queued)
	require.NoError(t, err)
	assert.Empty(t, running.Messages)
}

func TestIndexFor(t *testing.T) {
	g := newGeneration(t)

	queued, err := generation.Queue(g)
	require.NoError(t, err)

	index := generation.IndexFor(queued)

	assert.Equal(t, queued.ID, index.GenerationID)
	assert.Equal(t, "nd-op", index.NodeID)
	assert.Equal(t, models.GenerationStatusQueued, index.Status)
	assert.Equal(t, queued.Context.Origin, index.Origin)
	assert.Equal(t, queued.QueuedAt, index.QueuedAt)
	assert.Nil(t, index.CompletedAt)
}
