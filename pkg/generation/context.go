package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/persistence"
)

// ContextResolver builds the prompt messages for a generation from its
// resolved source nodes. Variable nodes contribute their text or extracted
// file content directly; operation nodes contribute the final assistant
// message of their latest completed generation, looked up through the node
// generation index. A source with no completed generation simply contributes
// nothing; the executor tolerates missing context.
type ContextResolver struct {
	persistence persistence.Persistence
}

func NewContextResolver(p persistence.Persistence) *ContextResolver {
	return &ContextResolver{persistence: p}
}

// BuildMessages resolves the generation context into the system/user messages
// handed to the executor.
func (r *ContextResolver) BuildMessages(ctx context.Context, genCtx models.GenerationContext) ([]models.Message, error) {
	node := genCtx.OperationNode
	if node == nil || node.Content.TextGeneration == nil {
		return nil, fmt.Errorf("generation context has no operation node with text generation content")
	}

	params := node.Content.TextGeneration

	var messages []models.Message

	if params.SystemPrompt != "" {
		messages = append(messages, models.Message{
			Role:    models.MessageRoleSystem,
			Content: params.SystemPrompt,
		})
	}

	var sections []string

	for _, source := range genCtx.SourceNodes {
		content, ok, err := r.resolveSource(ctx, genCtx.Origin.WorkspaceID, source)
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		sections = append(sections, fmt.Sprintf("<%s>\n%s\n</%s>", source.Name, content, source.Name))
	}

	prompt := params.Prompt
	if len(sections) > 0 {
		prompt = strings.Join(sections, "\n\n") + "\n\n" + prompt
	}

	messages = append(messages, models.Message{
		Role:    models.MessageRoleUser,
		Content: prompt,
	})

	return messages, nil
}

func (r *ContextResolver) resolveSource(ctx context.Context, workspaceID string, source *models.Node) (string, bool, error) {
	switch source.Content.Type {
	case models.ContentTypeText:
		return source.Content.Text.Text, true, nil

	case models.ContentTypeFile:
		if source.Content.File.Text == "" {
			return "", false, nil
		}

		return source.Content.File.Text, true, nil

	case models.ContentTypeTextGeneration:
		return r.resolveUpstreamGeneration(ctx, workspaceID, source.ID)
	}

	return "", false, nil
}

// resolveUpstreamGeneration finds the latest completed generation output of an
// upstream operation node. Missing index entries and non-completed latest
// generations both resolve to "no content", never to an error.
func (r *ContextResolver) resolveUpstreamGeneration(ctx context.Context, workspaceID, nodeID string) (string, bool, error) {
	index, err := r.persistence.LatestNodeGeneration(ctx, workspaceID, nodeID)
	if err != nil {
		if persistence.IsNodeGenerationNotFound(err) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("failed to look up node generation index for node %s: %w", nodeID, err)
	}

	if index.Status != models.GenerationStatusCompleted {
		return "", false, nil
	}

	gen, err := r.persistence.GenerationByID(ctx, index.GenerationID)
	if err != nil {
		if persistence.IsGenerationNotFound(err) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("failed to fetch generation %s: %w", index.GenerationID, err)
	}

	content, ok := gen.LastAssistantMessage()

	return content, ok, nil
}
