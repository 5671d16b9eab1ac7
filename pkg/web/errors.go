package web

import (
	"github.com/braidhq/braid/pkg/persistence"
	"github.com/braidhq/braid/pkg/services"
	"github.com/braidhq/braid/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, errType, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(errType).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, errType, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType(errType).
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service, engine and persistence errors onto
// RFC 7807 problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case workflow.IsCyclicDependency(err):
		return conflict(c, "cyclic_dependency", err.Error())

	case workflow.IsAlreadyTerminal(err):
		return conflict(c, "already_terminal", err.Error())

	case services.IsNotFoundError(err):
		return notFound(c, "not_found", err.Error())

	case services.IsConflictError(err):
		return conflict(c, "conflict", err.Error())

	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case persistence.IsWorkspaceNotFound(err):
		return notFound(c, "workspace_not_found", "workspace not found")

	case persistence.IsWorkflowRunNotFound(err):
		return notFound(c, "workflow_run_not_found", "workflow run not found")

	case persistence.IsGenerationNotFound(err):
		return notFound(c, "generation_not_found", "generation not found")

	case persistence.IsNodeGenerationNotFound(err):
		return notFound(c, "node_generation_not_found", "no generation recorded for node")

	default:
		return internalError(c, err)
	}
}
