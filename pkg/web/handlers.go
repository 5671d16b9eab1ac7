// Package web provides the HTTP handlers and REST endpoints for workspace
// editing, run control and generation inspection.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/persistence"
	"github.com/braidhq/braid/pkg/registry"
	"github.com/braidhq/braid/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// RunDispatcher executes a queued run to completion. The handlers dispatch
// runs on background contexts so the HTTP request returns as soon as the run
// is accepted.
type RunDispatcher interface {
	ExecuteRun(ctx context.Context, wf *models.Workflow, run *models.WorkflowRun) error
}

type APIHandlers struct {
	workspaceService *services.Workspace
	runsService      *services.Runs
	dispatcher       RunDispatcher
	persistence      persistence.Persistence
	registry         *registry.Registry
	validator        *validator.Validate
	logger           *slog.Logger
}

func NewAPIHandlers(
	workspaceService *services.Workspace,
	runsService *services.Runs,
	dispatcher RunDispatcher,
	p persistence.Persistence,
	reg *registry.Registry,
	validate *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		workspaceService: workspaceService,
		runsService:      runsService,
		dispatcher:       dispatcher,
		persistence:      p,
		registry:         reg,
		validator:        validate,
		logger:           logger.With("module", "web"),
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workspaceService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Braid API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Braid API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
			"executors":  h.registry.ExecutorIDs(),
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkspaces(c fiber.Ctx) error {
	workspaces, err := h.workspaceService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workspaces": workspaces})
}

func (h *APIHandlers) CreateWorkspace(c fiber.Ctx) error {
	var req CreateWorkspaceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workspaceService.Create(c.Context(), req.Name, req.Owner)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) GetWorkspace(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workspace ID is required")
	}

	workspace, err := h.workspaceService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workspace)
}

func (h *APIHandlers) DeleteWorkspace(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workspace ID is required")
	}

	if err := h.workspaceService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateNode(c fiber.Ctx) error {
	workspaceID := c.Params("id")
	if workspaceID == "" {
		return badRequest(c, "Workspace ID is required")
	}

	var req CreateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	node := &models.Node{
		Type:      req.Type,
		Name:      req.Name,
		Content:   req.Content,
		PositionX: req.PositionX,
		PositionY: req.PositionY,
	}

	workspace, err := h.workspaceService.AddNode(c.Context(), workspaceID, node)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workspace)
}

func (h *APIHandlers) UpdateNode(c fiber.Ctx) error {
	workspaceID := c.Params("id")
	nodeID := c.Params("nodeId")

	if workspaceID == "" || nodeID == "" {
		return badRequest(c, "Workspace ID and node ID are required")
	}

	var req UpdateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workspace, err := h.workspaceService.Get(c.Context(), workspaceID)
	if err != nil {
		return handleServiceError(c, err)
	}

	existing, ok := workspace.NodeByID(nodeID)
	if !ok {
		return notFound(c, "node_not_found", "node not found")
	}

	node := existing.Clone()
	if req.Name != nil {
		node.Name = *req.Name
	}

	if req.Content != nil {
		node.Content = *req.Content
	}

	if req.PositionX != nil {
		node.PositionX = *req.PositionX
	}

	if req.PositionY != nil {
		node.PositionY = *req.PositionY
	}

	updated, err := h.workspaceService.UpdateNode(c.Context(), workspaceID, node)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteNode(c fiber.Ctx) error {
	workspaceID := c.Params("id")
	nodeID := c.Params("nodeId")

	if workspaceID == "" || nodeID == "" {
		return badRequest(c, "Workspace ID and node ID are required")
	}

	workspace, err := h.workspaceService.DeleteNode(c.Context(), workspaceID, nodeID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workspace)
}

func (h *APIHandlers) CreateConnection(c fiber.Ctx) error {
	workspaceID := c.Params("id")
	if workspaceID == "" {
		return badRequest(c, "Workspace ID is required")
	}

	var req CreateConnectionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	conn := &models.Connection{
		OutputNodeID: req.OutputNodeID,
		OutputSlot:   req.OutputSlot,
		InputNodeID:  req.InputNodeID,
		InputSlot:    req.InputSlot,
	}

	workspace, err := h.workspaceService.AddConnection(c.Context(), workspaceID, conn)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workspace)
}

func (h *APIHandlers) DeleteConnection(c fiber.Ctx) error {
	workspaceID := c.Params("id")
	connectionID := c.Params("connectionId")

	if workspaceID == "" || connectionID == "" {
		return badRequest(c, "Workspace ID and connection ID are required")
	}

	workspace, err := h.workspaceService.DeleteConnection(c.Context(), workspaceID, connectionID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workspace)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workspaceID := c.Params("id")
	if workspaceID == "" {
		return badRequest(c, "Workspace ID is required")
	}

	workspace, err := h.workspaceService.Get(c.Context(), workspaceID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workspace.EditingWorkflows})
}

// CreateRun builds a queued run and dispatches it in the background. The
// response carries the queued snapshot; clients follow progress through the
// run endpoint or the event stream.
func (h *APIHandlers) CreateRun(c fiber.Ctx) error {
	workspaceID := c.Params("id")
	if workspaceID == "" {
		return badRequest(c, "Workspace ID is required")
	}

	var req CreateRunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if req.WorkflowID == "" && req.NodeID == "" {
		return badRequest(c, "Either workflow_id or node_id is required")
	}

	var (
		run *models.WorkflowRun
		wf  *models.Workflow
		err error
	)

	if req.WorkflowID != "" {
		run, wf, err = h.runsService.Create(c.Context(), workspaceID, req.WorkflowID)
	} else {
		run, wf, err = h.runsService.CreateForNode(c.Context(), workspaceID, req.NodeID)
	}

	if err != nil {
		return handleServiceError(c, err)
	}

	go func() {
		if err := h.dispatcher.ExecuteRun(context.WithoutCancel(c.Context()), wf, run); err != nil {
			h.logger.Error("Run execution failed",
				"workflow_run_id", run.ID,
				"error", err)
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(run)
}

func (h *APIHandlers) GetRuns(c fiber.Ctx) error {
	workspaceID := c.Params("id")
	if workspaceID == "" {
		return badRequest(c, "Workspace ID is required")
	}

	runs, err := h.runsService.ListByWorkspace(c.Context(), workspaceID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"runs": runs})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.runsService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) CancelRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.runsService.Cancel(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) RetryStep(c fiber.Ctx) error {
	runID := c.Params("id")
	stepRunID := c.Params("stepRunId")

	if runID == "" || stepRunID == "" {
		return badRequest(c, "Run ID and step run ID are required")
	}

	run, err := h.runsService.RetryStep(c.Context(), runID, stepRunID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) GetGeneration(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Generation ID is required")
	}

	generation, err := h.persistence.GenerationByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(generation)
}

// GetNodeGeneration returns the latest generation recorded for a node,
// resolved through the node generation index.
func (h *APIHandlers) GetNodeGeneration(c fiber.Ctx) error {
	workspaceID := c.Params("id")
	nodeID := c.Params("nodeId")

	if workspaceID == "" || nodeID == "" {
		return badRequest(c, "Workspace ID and node ID are required")
	}

	index, err := h.persistence.LatestNodeGeneration(c.Context(), workspaceID, nodeID)
	if err != nil {
		return handleServiceError(c, err)
	}

	generation, err := h.persistence.GenerationByID(c.Context(), index.GenerationID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(generation)
}
