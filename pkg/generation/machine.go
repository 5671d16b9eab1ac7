package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/braidhq/braid/pkg/models"
	"github.com/braidhq/braid/pkg/otelhelper"
	"github.com/braidhq/braid/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Machine drives a generation from created to a terminal state: it applies
// the pure transitions, persists the record and index at every boundary, and
// invokes the executor exactly once, during the running stage. Executor
// failures are captured into the failed state and never propagate as Go
// errors; only persistence failures do.
type Machine struct {
	store    *Store
	resolver *ContextResolver
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewMachine(store *Store, resolver *ContextResolver, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Machine{
		store:    store,
		resolver: resolver,
		logger:   logger.With("module", "generation_machine"),
	}
}

// WithTracer enables span emission around executor calls.
func (m *Machine) WithTracer(tracer trace.Tracer) *Machine {
	m.tracer = tracer

	return m
}

// Execute takes a created generation to completed or failed. The returned
// record is the terminal one; inspect its Status and Error.
func (m *Machine) Execute(
	ctx context.Context,
	g *models.Generation,
	executor protocol.Executor,
	onChunk protocol.StreamHandler,
) (*models.Generation, error) {
	if g.Context.OperationNode == nil {
		return nil, fmt.Errorf("generation %s has no operation node", g.ID)
	}

	logger := m.logger.With("generation_id", g.ID, "node_id", g.Context.OperationNode.ID)

	var span trace.Span
	if m.tracer != nil {
		ctx, span = otelhelper.StartSpan(ctx, m.tracer, "generation.execute",
			attribute.String(otelhelper.GenerationIDKey, g.ID),
			attribute.String(otelhelper.NodeIDKey, g.Context.OperationNode.ID),
			attribute.String(otelhelper.WorkspaceIDKey, g.Context.Origin.WorkspaceID),
		)
		defer span.End()
	}

	queued, err := Queue(g)
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, queued); err != nil {
		return nil, err
	}

	running, err := Run(queued)
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, running); err != nil {
		return nil, err
	}

	messages, err := m.resolver.BuildMessages(ctx, running.Context)
	if err != nil {
		return m.fail(ctx, running, span, "ContextResolutionError", err)
	}

	logger.Info("Invoking generation executor", "messages", len(messages))

	response, err := executor.Generate(ctx, running.Context, messages, onChunk)
	if err != nil {
		return m.fail(ctx, running, span, "ExecutorError", err)
	}

	completed, err := Complete(running, append(messages, response))
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, completed); err != nil {
		return nil, err
	}

	logger.Info("Generation completed")

	return completed, nil
}

// Cancel moves a non-terminal generation to cancelled and persists it.
func (m *Machine) Cancel(ctx context.Context, g *models.Generation) (*models.Generation, error) {
	cancelled, err := Cancel(g)
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, cancelled); err != nil {
		return nil, err
	}

	return cancelled, nil
}

func (m *Machine) fail(
	ctx context.Context,
	running *models.Generation,
	span trace.Span,
	name string,
	cause error,
) (*models.Generation, error) {
	if span != nil {
		otelhelper.SetError(span, cause)
	}

	genErr := models.GenerationError{Name: name, Message: cause.Error()}
	if unwrapped := errors.Unwrap(cause); unwrapped != nil {
		genErr.Cause = unwrapped.Error()
	}

	failed, err := Fail(running, genErr)
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, failed); err != nil {
		return nil, err
	}

	m.logger.Warn("Generation failed", "generation_id", failed.ID, "error", genErr.Message)

	return failed, nil
}
