package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/braidhq/braid/pkg/cmd"
	"github.com/braidhq/braid/pkg/log"
	"github.com/braidhq/braid/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

func validateCommand() *cli.Command {
	logger := log.WithModule("validate")

	return &cli.Command{
		Name:  "validate",
		Usage: "Recompute a workspace's workflows and report cyclic dependencies",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "workspace-id",
				Usage:    "Workspace to validate",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			workspaceID := command.String("workspace-id")

			ws, err := persistence.WorkspaceByID(ctx, workspaceID)
			if err != nil {
				return err
			}

			builder := workflow.NewBuilder(nil)

			workflows, err := builder.BuildWorkflows(ws.Nodes, ws.Connections, ws.ID)
			if err != nil {
				var cycleErr *workflow.CyclicDependencyError
				if errors.As(err, &cycleErr) {
					fmt.Printf("workspace %s has a cyclic dependency\n", workspaceID)

					for _, nodeID := range cycleErr.NodeIDs {
						fmt.Printf("  node %s\n", nodeID)
					}
				}

				return err
			}

			ids := make([]string, 0, len(workflows))
			for id := range workflows {
				ids = append(ids, id)
			}

			sort.Strings(ids)

			fmt.Printf("workspace %s decomposes into %d workflow(s)\n", workspaceID, len(workflows))

			for _, id := range ids {
				wf := workflows[id]
				fmt.Printf("  workflow %s: %d job(s), %d operation(s)\n",
					id, len(wf.Jobs), wf.OperationNodeCount())
			}

			return nil
		},
	}
}
