package operations

import (
	"context"
	"io"
	"log/slog"

	"tabkit/internal/dataset"
	"tabkit/internal/exporter"
	"tabkit/internal/infrastructure"
	"tabkit/internal/join"
	"tabkit/internal/validation"
)

// ValidateStep checks options and paths and decides the output sink
type ValidateStep struct {
	validator *validation.FileValidator
	stdout    io.Writer
}

// NewValidateStep creates the input validation step. Console results go to stdout.
func NewValidateStep(logger *slog.Logger, stdout io.Writer) *ValidateStep {
	return &ValidateStep{validator: validation.NewFileValidator(logger), stdout: stdout}
}

func (s *ValidateStep) ID() string   { return StepIDValidate }
func (s *ValidateStep) Name() string { return StepNameValidate }

// Execute implements Step
func (s *ValidateStep) Execute(ctx context.Context, state *RunState) error {
	opts := state.Options
	if err := opts.Validate(); err != nil {
		return err
	}

	specs, err := s.validator.ValidateInputFiles(opts.Files)
	if err != nil {
		return err
	}
	state.Inputs = specs

	if opts.OutputFile == "" {
		state.Sink = exporter.ConsoleSink(s.stdout)
		return nil
	}
	out, err := s.validator.ValidateOutputFile(opts.OutputFile)
	if err != nil {
		return err
	}
	state.Sink = exporter.FileSink(out)
	return nil
}

// IngestStep loads every input file
type IngestStep struct {
	loader  *dataset.Loader
	metrics *infrastructure.PipelineMetrics
}

// NewIngestStep creates the ingestion step
func NewIngestStep(logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *IngestStep {
	return &IngestStep{loader: dataset.NewLoader(logger), metrics: metrics}
}

func (s *IngestStep) ID() string   { return StepIDIngest }
func (s *IngestStep) Name() string { return StepNameIngest }

// Execute implements Step
func (s *IngestStep) Execute(ctx context.Context, state *RunState) error {
	opts := dataset.LoadOptions{IndexCol: state.Options.IndexCol}

	state.Datasets = make([]*dataset.Dataset, 0, len(state.Inputs))
	for _, spec := range state.Inputs {
		ds, err := s.loader.Load(ctx, spec, opts)
		if err != nil {
			return err
		}
		s.metrics.RecordFile(ctx, ds.NumRows())
		state.Datasets = append(state.Datasets, ds)
	}
	return nil
}

// JoinStep aligns the ingested datasets into one table
type JoinStep struct {
	joiner  *join.Joiner
	metrics *infrastructure.PipelineMetrics
}

// NewJoinStep creates the join step
func NewJoinStep(logger *slog.Logger, metrics *infrastructure.PipelineMetrics) *JoinStep {
	return &JoinStep{joiner: join.NewJoiner(logger), metrics: metrics}
}

func (s *JoinStep) ID() string   { return StepIDJoin }
func (s *JoinStep) Name() string { return StepNameJoin }

// Execute implements Step
func (s *JoinStep) Execute(ctx context.Context, state *RunState) error {
	joined, stats, err := s.joiner.Join(ctx, state.Datasets)
	if err != nil {
		return err
	}
	state.Joined = joined
	state.JoinStats = stats
	s.metrics.MissingFilled.Add(ctx, int64(stats.MissingFilled))
	return nil
}

// AnalyseStep runs the operation selected with --op
type AnalyseStep struct {
	registry *Registry
}

// NewAnalyseStep creates the analysis step over registry
func NewAnalyseStep(registry *Registry) *AnalyseStep {
	return &AnalyseStep{registry: registry}
}

func (s *AnalyseStep) ID() string   { return StepIDAnalyse }
func (s *AnalyseStep) Name() string { return StepNameAnalyse }

// Execute implements Step
func (s *AnalyseStep) Execute(ctx context.Context, state *RunState) error {
	op, err := s.registry.Get(state.Options.Op)
	if err != nil {
		return err
	}
	result, err := op.Apply(ctx, state.Joined, state.Options.Columns)
	if err != nil {
		return err
	}
	state.Result = result
	return nil
}

// EmitStep writes the result to the sink
type EmitStep struct {
	emitter *exporter.Emitter
}

// NewEmitStep creates the emission step
func NewEmitStep(logger *slog.Logger) *EmitStep {
	return &EmitStep{emitter: exporter.NewEmitter(logger)}
}

func (s *EmitStep) ID() string   { return StepIDEmit }
func (s *EmitStep) Name() string { return StepNameEmit }

// Execute implements Step
func (s *EmitStep) Execute(ctx context.Context, state *RunState) error {
	return s.emitter.Emit(ctx, state.Result, state.Sink)
}
