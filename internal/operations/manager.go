package operations

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/attribute"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"tabkit/internal/analysis"
	"tabkit/internal/config"
	"tabkit/internal/infrastructure"
)

// Dependencies are the collaborators a Manager reports through. Zero values
// fall back to slog.Default, os.Stdout and no-op telemetry.
type Dependencies struct {
	Logger   *slog.Logger
	Stdout   io.Writer
	Tracer   trace.Tracer
	Metrics  *infrastructure.PipelineMetrics
	Analysis config.AnalysisConfig
}

// Manager runs the pipeline steps in order
type Manager struct {
	steps   []Step
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewManager creates a manager with the standard step sequence
func NewManager(deps Dependencies) (*Manager, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	stdout := deps.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = tracenoop.NewTracerProvider().Tracer(infrastructure.InstrumentationName)
	}
	metrics := deps.Metrics
	if metrics == nil {
		var err error
		metrics, err = infrastructure.NewPipelineMetrics(metricnoop.NewMeterProvider().Meter(infrastructure.InstrumentationName))
		if err != nil {
			return nil, err
		}
	}

	policy := analysis.VariancePolicyNaN
	if deps.Analysis.StrictVariance {
		policy = analysis.VariancePolicyStrict
	}
	registry := DefaultRegistry(policy, logger)

	return &Manager{
		steps: []Step{
			NewValidateStep(logger, stdout),
			NewIngestStep(logger, metrics),
			NewJoinStep(logger, metrics),
			NewAnalyseStep(registry),
			NewEmitStep(logger),
		},
		logger:  infrastructure.WithComponent(logger, "operations"),
		tracer:  tracer,
		metrics: metrics,
	}, nil
}

// Run executes every step for opts. On failure the returned error is an
// *OperationError naming the step, and the state shows which steps ran.
func (m *Manager) Run(ctx context.Context, opts *config.Options) (*RunState, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	state := NewRunState(infrastructure.GetRunID(ctx), opts)
	for _, step := range m.steps {
		state.Steps = append(state.Steps, NewStepState(step.ID(), step.Name()))
	}

	if len(opts.Unknown) > 0 {
		m.logger.WarnContext(ctx, "Unknown args", slog.Any("args", opts.Unknown))
	}
	m.logger.LogAttrs(ctx, slog.LevelInfo, "Starting run", opts.LogAttrs()...)

	ctx, span := m.tracer.Start(ctx, "tabkit.run", trace.WithAttributes(
		attribute.String("run.id", state.ID),
		attribute.String("op", opts.Op),
	))
	defer span.End()

	var runErr error
	for i, step := range m.steps {
		if runErr != nil {
			state.Steps[i].Skip()
			continue
		}
		runErr = m.executeStep(ctx, step, state.Steps[i], state)
	}
	state.finish()
	m.metrics.RecordRun(ctx, opts.Op, runErr)

	if runErr != nil {
		infrastructure.RecordError(span, runErr)
		failed := state.Failed()
		infrastructure.WithError(m.logger, runErr).ErrorContext(ctx, "Run failed",
			slog.String("step", FailedStep(runErr)),
			slog.Duration("step_duration", failed.Duration()),
			slog.Duration("duration", state.Duration()))
		return state, runErr
	}

	m.logger.InfoContext(ctx, "Run completed",
		slog.Duration("duration", state.Duration()))
	return state, nil
}

func (m *Manager) executeStep(ctx context.Context, step Step, st *StepState, state *RunState) error {
	ctx, span := m.tracer.Start(ctx, "step."+step.ID())
	defer span.End()

	st.Start()
	m.logger.DebugContext(ctx, "Step started", slog.String("step", step.ID()))

	err := step.Execute(ctx, state)
	if err != nil {
		opErr := NewOperationError(step.ID(), err)
		st.Fail(opErr)
		infrastructure.RecordError(span, err)
		m.metrics.RecordStep(ctx, step.ID(), st.Duration(), err)
		return opErr
	}

	st.Complete()
	m.metrics.RecordStep(ctx, step.ID(), st.Duration(), nil)
	m.logger.DebugContext(ctx, "Step completed",
		slog.String("step", step.ID()),
		slog.Duration("duration", st.Duration()))
	return nil
}
