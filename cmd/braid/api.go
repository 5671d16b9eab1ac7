package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/braidhq/braid/pkg/cmd"
	"github.com/braidhq/braid/pkg/eventbus"
	"github.com/braidhq/braid/pkg/generation"
	"github.com/braidhq/braid/pkg/identifier"
	"github.com/braidhq/braid/pkg/log"
	"github.com/braidhq/braid/pkg/otelhelper"
	"github.com/braidhq/braid/pkg/persistence"
	"github.com/braidhq/braid/pkg/registry"
	"github.com/braidhq/braid/pkg/services"
	"github.com/braidhq/braid/pkg/web"
	"github.com/braidhq/braid/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = 9091

func apiCommand() *cli.Command {
	logger := log.WithModule("api")

	return &cli.Command{
		Name:  "api",
		Usage: "Serve the workspace and run HTTP API",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "executor",
				Usage:   "Executor used for generations",
				Value:   "static",
				Sources: cli.EnvVars("EXECUTOR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Emit OpenTelemetry spans for generation execution",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Braid API")

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

			registry := cmd.NewRegistry(logger)

			api := NewAPI(logger, persistence, registry, eventBus, command.String("executor"))

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "braid-api")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				api.WithTracer(tracer)
			}

			return api.Start(command.Int("port"))
		},
	}
}

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	executorID  string
	validate    *validator.Validate
	tracer      trace.Tracer
}

// WithTracer enables span emission for generation execution.
func (a *API) WithTracer(tracer trace.Tracer) *API {
	a.tracer = tracer

	return a
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	executorID string,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		executorID:  executorID,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	workspaceService := services.NewWorkspace(a.persistence, identifier.Default)
	runsService := services.NewRuns(a.persistence, identifier.Default, a.logger).WithEventBus(a.eventBus)

	runner := workflow.NewRunner(a.logger)
	machine := generation.NewMachine(
		generation.NewStore(a.persistence),
		generation.NewContextResolver(a.persistence),
		a.logger,
	)
	if a.tracer != nil {
		machine.WithTracer(a.tracer)
	}
	coordinator := workflow.NewCoordinator(
		a.persistence, runner, machine, a.registry, a.eventBus, a.executorID, a.logger)

	handlers := web.NewAPIHandlers(
		workspaceService, runsService, coordinator,
		a.persistence, a.registry, a.validate, a.logger)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Braid API")
	})

	w := app.Group("/workspaces")
	w.Get("/", handlers.GetWorkspaces)
	w.Post("/", handlers.CreateWorkspace)
	w.Get("/:id", handlers.GetWorkspace)
	w.Delete("/:id", handlers.DeleteWorkspace)

	w.Post("/:id/nodes", handlers.CreateNode)
	w.Patch("/:id/nodes/:nodeId", handlers.UpdateNode)
	w.Delete("/:id/nodes/:nodeId", handlers.DeleteNode)
	w.Get("/:id/nodes/:nodeId/generation", handlers.GetNodeGeneration)

	w.Post("/:id/connections", handlers.CreateConnection)
	w.Delete("/:id/connections/:connectionId", handlers.DeleteConnection)

	w.Get("/:id/workflows", handlers.GetWorkflows)
	w.Get("/:id/runs", handlers.GetRuns)
	w.Post("/:id/runs", handlers.CreateRun)

	r := app.Group("/runs")
	r.Get("/:id", handlers.GetRun)
	r.Post("/:id/cancel", handlers.CancelRun)
	r.Post("/:id/steps/:stepRunId/retry", handlers.RetryStep)

	app.Get("/generations/:id", handlers.GetGeneration)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
