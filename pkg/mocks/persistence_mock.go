// Package mocks provides testify mock implementations of the engine's
// interfaces for use in tests.
package mocks

import (
	"context"

	"github.com/braidhq/braid/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of the persistence.Persistence
// interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) Workspaces(ctx context.Context) ([]*models.Workspace, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workspace), args.Error(1)
}

func (m *MockPersistence) SaveWorkspace(ctx context.Context, workspace *models.Workspace) error {
	args := m.Called(ctx, workspace)

	return args.Error(0)
}

func (m *MockPersistence) WorkspaceByID(ctx context.Context, id string) (*models.Workspace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workspace), args.Error(1)
}

func (m *MockPersistence) DeleteWorkspace(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) SaveWorkflowRun(ctx context.Context, run *models.WorkflowRun) error {
	args := m.Called(ctx, run)

	return args.Error(0)
}

func (m *MockPersistence) WorkflowRunByID(ctx context.Context, id string) (*models.WorkflowRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowRun), args.Error(1)
}

func (m *MockPersistence) WorkflowRunsByWorkspace(ctx context.Context, workspaceID string) ([]*models.WorkflowRun, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowRun), args.Error(1)
}

func (m *MockPersistence) SaveGeneration(ctx context.Context, generation *models.Generation, index *models.NodeGenerationIndex) error {
	args := m.Called(ctx, generation, index)

	return args.Error(0)
}

func (m *MockPersistence) GenerationByID(ctx context.Context, id string) (*models.Generation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Generation), args.Error(1)
}

func (m *MockPersistence) LatestNodeGeneration(ctx context.Context, workspaceID, nodeID string) (*models.NodeGenerationIndex, error) {
	args := m.Called(ctx, workspaceID, nodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.NodeGenerationIndex), args.Error(1)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
