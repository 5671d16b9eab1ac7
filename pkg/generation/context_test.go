package generation_test

import (
	"context"
	"testing"
	"time"

	"github.com/braidhq/braid/pkg/generation"
	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/persistence/file"
	"github.com/braidhq/braid/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(t *testing.T) (*generation.ContextResolver, *file.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	return generation.NewContextResolver(p), p
}

func operationNodeWithPrompt(id, name, systemPrompt, prompt string) *models.Node {
	return testutil.CreateOperationNode(
		testutil.WithID(id),
		testutil.WithName(name),
		func(n *models.Node) {
			n.Content.TextGeneration.SystemPrompt = systemPrompt
			n.Content.TextGeneration.Prompt = prompt
		},
	)
}

func TestBuildMessagesPromptOnly(t *testing.T) {
	resolver, _ := newResolver(t)

	node := operationNodeWithPrompt("nd-op", "Draft", "You are terse.", "Write a haiku.")

	messages, err := resolver.BuildMessages(context.Background(), models.GenerationContext{
		OperationNode: node,
		Origin:        models.GenerationOrigin{Type: models.OriginTypeWorkspace, WorkspaceID: "wf-ctx"},
	})
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, models.MessageRoleSystem, messages[0].Role)
	assert.Equal(t, "You are terse.", messages[0].Content)
	assert.Equal(t, models.MessageRoleUser, messages[1].Role)
	assert.Equal(t, "Write a haiku.", messages[1].Content)
}

func TestBuildMessagesOmitsEmptySystemPrompt(t *testing.T) {
	resolver, _ := newResolver(t)

	node := operationNodeWithPrompt("nd-op", "Draft", "", "Write a haiku.")

	messages, err := resolver.BuildMessages(context.Background(), models.GenerationContext{
		OperationNode: node,
		Origin:        models.GenerationOrigin{Type: models.OriginTypeWorkspace, WorkspaceID: "wf-ctx"},
	})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, models.MessageRoleUser, messages[0].Role)
}

func TestBuildMessagesWrapsVariableSources(t *testing.T) {
	resolver, _ := newResolver(t)

	node := operationNodeWithPrompt("nd-op", "Draft", "", "Summarize the inputs.")
	topic := testutil.CreateTextNode("Go concurrency", testutil.WithID("nd-topic"), testutil.WithName("Topic"))
	doc := testutil.CreateFileNode("notes.pdf", "goroutines are cheap")
	doc.Name = "Notes"

	messages, err := resolver.BuildMessages(context.Background(), models.GenerationContext{
		OperationNode: node,
		SourceNodes:   []*models.Node{topic, doc},
		Origin:        models.GenerationOrigin{Type: models.OriginTypeWorkspace, WorkspaceID: "wf-ctx"},
	})
	require.NoError(t, err)
	require.Len(t, messages, 1)

	expected := "<Topic>\nGo concurrency\n</Topic>\n\n" +
		"<Notes>\ngoroutines are cheap\n</Notes>\n\n" +
		"Summarize the inputs."
	assert.Equal(t, expected, messages[0].Content)
}

func TestBuildMessagesSkipsFileWithoutExtractedText(t *testing.T) {
	resolver, _ := newResolver(t)

	node := operationNodeWithPrompt("nd-op", "Draft", "", "Summarize the inputs.")
	doc := testutil.CreateFileNode("notes.pdf", "")

	messages, err := resolver.BuildMessages(context.Background(), models.GenerationContext{
		OperationNode: node,
		SourceNodes:   []*models.Node{doc},
		Origin:        models.GenerationOrigin{Type: models.OriginTypeWorkspace, WorkspaceID: "wf-ctx"},
	})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Summarize the inputs.", messages[0].Content)
}

func TestBuildMessagesResolvesCompletedUpstreamGeneration(t *testing.T) {
	resolver, p := newResolver(t)
	ctx := context.Background()

	upstream := operationNodeWithPrompt("nd-up", "Outline", "", "Outline it.")

	gen := &models.Generation{
		ID:     "gn-1",
		Status: models.GenerationStatusCompleted,
		Context: models.GenerationContext{
			OperationNode: upstream,
			Origin:        models.GenerationOrigin{Type: models.OriginTypeWorkspace, WorkspaceID: "wf-ctx"},
		},
		Messages: []models.Message{
			{Role: models.MessageRoleUser, Content: "Outline it."},
			{Role: models.MessageRoleAssistant, Content: "1. intro 2. body"},
		},
		CreatedAt: time.Now(),
	}
	require.NoError(t, p.SaveGeneration(ctx, gen, generation.IndexFor(gen)))

	node := operationNodeWithPrompt("nd-op", "Draft", "", "Expand the outline.")

	messages, err := resolver.BuildMessages(ctx, models.GenerationContext{
		OperationNode: node,
		SourceNodes:   []*models.Node{upstream},
		Origin:        models.GenerationOrigin{Type: models.OriginTypeWorkspace, WorkspaceID: "wf-ctx"},
	})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "<Outline>\n1. intro 2. body\n</Outline>\n\nExpand the outline.", messages[0].Content)
}

func TestBuildMessagesUpstreamWithoutGenerationContributesNothing(t *testing.T) {
	resolver, _ := newResolver(t)

	upstream := operationNodeWithPrompt("nd-up", "Outline", "", "Outline it.")
	node := operationNodeWithPrompt("nd-op", "Draft", "", "Expand the outline.")

	messages, err := resolver.BuildMessages(context.Background(), models.GenerationContext{
		OperationNode: node,
		SourceNodes:   []*models.Node{upstream},
		Origin:        models.GenerationOrigin{Type: models.OriginTypeWorkspace, WorkspaceID: "wf-ctx"},
	})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Expand the outline.", messages[0].Content)
}

func TestBuildMessagesUpstreamNonCompletedContributesNothing(t *testing.T) {
	resolver, p := newResolver(t)
	ctx := context.Background()

	upstream := operationNodeWithPrompt("nd-up", "Outline", "", "Outline it.")

	gen := &models.Generation{
		ID:     "gn-1",
		Status: models.GenerationStatusFailed,
		Context: models.GenerationContext{
			OperationNode: upstream,
			Origin:        models.GenerationOrigin{Type: models.OriginTypeWorkspace, WorkspaceID: "wf-ctx"},
		},
		CreatedAt: time.Now(),
	}
	require.NoError(t, p.SaveGeneration(ctx, gen, generation.IndexFor(gen)))

	node := operationNodeWithPrompt("nd-op", "Draft", "", "Expand the outline.")

	messages, err := resolver.BuildMessages(ctx, models.GenerationContext{
		OperationNode: node,
		SourceNodes:   []*models.Node{upstream},
		Origin:        models.GenerationOrigin{Type: models.OriginTypeWorkspace, WorkspaceID: "wf-ctx"},
	})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Expand the outline.", messages[0].Content)
}

func TestBuildMessagesRequiresOperationNode(t *testing.T) {
	resolver, _ := newResolver(t)

	_, err := resolver.BuildMessages(context.Background(), models.GenerationContext{
		Origin: models.GenerationOrigin{Type: models.OriginTypeWorkspace, WorkspaceID: "wf-ctx"},
	})
	require.Error(t, err)
}
