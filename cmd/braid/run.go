package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/braidhq/braid/pkg/cmd"
	"github.com/braidhq/braid/pkg/generation"
	"github.com/braidhq/braid/pkg/identifier"
	"github.com/braidhq/braid/pkg/log"
	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/services"
	"github.com/braidhq/braid/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

func runCommand() *cli.Command {
	logger := log.WithModule("run")

	return &cli.Command{
		Name:  "run",
		Usage: "Execute one workflow of a workspace and wait for the outcome",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "workspace-id",
				Usage:    "Workspace to run",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "workflow-id",
				Usage: "Workflow to run (mutually exclusive with --node-id)",
			},
			&cli.StringFlag{
				Name:  "node-id",
				Usage: "Run whichever workflow contains this operation node",
			},
			&cli.StringFlag{
				Name:    "executor",
				Usage:   "Executor used for generations",
				Value:   "static",
				Sources: cli.EnvVars("EXECUTOR"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workflowID := command.String("workflow-id")
			nodeID := command.String("node-id")

			if (workflowID == "") == (nodeID == "") {
				return fmt.Errorf("exactly one of --workflow-id or --node-id is required")
			}

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			runsService := services.NewRuns(persistence, identifier.Default, logger).WithEventBus(eventBus)

			workspaceID := command.String("workspace-id")

			run, wf, err := createRun(ctx, runsService, workspaceID, workflowID, nodeID)
			if err != nil {
				return err
			}

			machine := generation.NewMachine(
				generation.NewStore(persistence),
				generation.NewContextResolver(persistence),
				logger,
			)
			coordinator := workflow.NewCoordinator(
				persistence,
				workflow.NewRunner(logger),
				machine,
				cmd.NewRegistry(logger),
				eventBus,
				command.String("executor"),
				logger,
			)

			if err := coordinator.ExecuteRun(ctx, wf, run); err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			return encoder.Encode(run)
		},
	}
}

func createRun(
	ctx context.Context,
	runsService *services.Runs,
	workspaceID, workflowID, nodeID string,
) (*models.WorkflowRun, *models.Workflow, error) {
	if workflowID != "" {
		return runsService.Create(ctx, workspaceID, workflowID)
	}

	return runsService.CreateForNode(ctx, workspaceID, nodeID)
}
