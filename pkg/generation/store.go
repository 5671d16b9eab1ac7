package generation

import (
	"context"
	"fmt"

	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/persistence"
)

// Store persists generation records. Every save writes the record and its
// derived node generation index as one logical unit, so "latest generation of
// node X" lookups never observe a record without its pointer.
type Store struct {
	persistence persistence.Persistence
}

func NewStore(p persistence.Persistence) *Store {
	return &Store{persistence: p}
}

// Save writes the generation and its index entry.
func (s *Store) Save(ctx context.Context, g *models.Generation) error {
	if err := s.persistence.SaveGeneration(ctx, g, IndexFor(g)); err != nil {
		return fmt.Errorf("failed to save generation %s: %w", g.ID, err)
	}

	return nil
}

// Get fetches a generation record by ID.
func (s *Store) Get(ctx context.Context, id string) (*models.Generation, error) {
	return s.persistence.GenerationByID(ctx, id)
}

// LatestCompletedOutput returns the final assistant message of the latest
// completed generation for the node, when one exists.
func (s *Store) LatestCompletedOutput(ctx context.Context, workspaceID, nodeID string) (string, bool, error) {
	index, err := s.persistence.LatestNodeGeneration(ctx, workspaceID, nodeID)
	if err != nil {
		if persistence.IsNodeGenerationNotFound(err) {
			return "", false, nil
		}

		return "", false, err
	}

	if index.Status != models.GenerationStatusCompleted {
		return "", false, nil
	}

	gen, err := s.persistence.GenerationByID(ctx, index.GenerationID)
	if err != nil {
		return "", false, err
	}

	content, ok := gen.LastAssistantMessage()

	return content, ok, nil
}
