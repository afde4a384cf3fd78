package operations

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"tabkit/internal/config"
	"tabkit/internal/errors"
	"tabkit/internal/infrastructure"
	"tabkit/internal/shared/testutil"
)

func intPtr(v int) *int { return &v }

type fixture struct {
	dir    string
	stdout *bytes.Buffer
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	f := &fixture{dir: t.TempDir(), stdout: &bytes.Buffer{}}
	for name, content := range files {
		testutil.WriteFile(t, f.dir, name, content)
	}
	return f
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

func (f *fixture) files(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = f.path(n)
	}
	return out
}

func (f *fixture) manager(t *testing.T, analysisCfg config.AnalysisConfig) *Manager {
	t.Helper()
	m, err := NewManager(Dependencies{Stdout: f.stdout, Analysis: analysisCfg})
	require.NoError(t, err)
	return m
}

var keyedInputs = map[string]string{
	"a.csv": "id,x\n1,10\n2,20\n",
	"b.csv": "id,y\n1,100\n2,200\n",
}

func TestManager_SelectColumns(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string]string
		inputs     []string
		indexCol   *int
		columns    string
		outputFile string
		wantStdout string
		wantFile   string
	}{
		{
			name:       "keyed join to console",
			files:      keyedInputs,
			inputs:     []string{"a.csv", "b.csv"},
			indexCol:   intPtr(0),
			columns:    "x,y",
			wantStdout: "id  x   y\n1   10  100\n2   20  200\n",
		},
		{
			name:       "keyed join to file",
			files:      keyedInputs,
			inputs:     []string{"a.csv", "b.csv"},
			indexCol:   intPtr(0),
			columns:    "x,y",
			outputFile: "out/result.csv",
			wantFile:   "x,y\n10,100\n20,200\n",
		},
		{
			name:       "reordered selection to tsv",
			files:      keyedInputs,
			inputs:     []string{"a.csv", "b.csv"},
			indexCol:   intPtr(0),
			columns:    "y,x",
			outputFile: "result.tsv",
			wantFile:   "y\tx\n100\t10\n200\t20\n",
		},
		{
			name: "positional join fills missing",
			files: map[string]string{
				"a.csv": "x\n1\n2\n3\n",
				"b.tsv": "y\n10\n20\n",
			},
			inputs:     []string{"a.csv", "b.tsv"},
			columns:    "x,y",
			wantStdout: "   x  y\n0  1  10\n1  2  20\n2  3  NaN\n",
		},
		{
			name: "left alignment drops later-only rows",
			files: map[string]string{
				"a.csv": "id,x\n1,10\n2,20\n3,30\n",
				"b.csv": "id,y\n2,200\n3,300\n4,400\n",
			},
			inputs:     []string{"a.csv", "b.csv"},
			indexCol:   intPtr(0),
			columns:    "x,y",
			outputFile: "out.csv",
			wantFile:   "x,y\n10,\n20,200\n30,300\n",
		},
		{
			name:       "single input",
			files:      map[string]string{"a.csv": "id,x,z\n1,10,a\n"},
			inputs:     []string{"a.csv"},
			columns:    "z",
			outputFile: "out.csv",
			wantFile:   "z\na\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.files)
			opts := &config.Options{
				Op:       config.OpSelectColumns,
				IndexCol: tt.indexCol,
				Columns:  tt.columns,
				Files:    f.files(tt.inputs...),
			}
			if tt.outputFile != "" {
				opts.OutputFile = f.path(tt.outputFile)
			}

			state, err := f.manager(t, config.AnalysisConfig{}).Run(context.Background(), opts)
			require.NoError(t, err)
			assert.Nil(t, state.Failed())
			for _, st := range state.Steps {
				assert.Equal(t, StepStatusCompleted, st.Status, st.ID)
			}

			assert.Equal(t, tt.wantStdout, f.stdout.String())
			if tt.outputFile != "" {
				assert.Equal(t, tt.wantFile, testutil.ReadFile(t, opts.OutputFile))
			}
		})
	}
}

func TestManager_CorrelationMatrix(t *testing.T) {
	files := map[string]string{
		"a.csv": "id,x,label\n1,1,p\n2,2,q\n3,3,r\n",
		"b.tsv": "id\ty\tinv\tflat\n1\t2\t9\t5\n2\t4\t6\t5\n3\t6\t3\t5\n",
	}

	tests := []struct {
		name       string
		columns    string
		outputFile string
		strict     bool
		wantStdout string
		wantFile   string
	}{
		{
			name:       "perfect linear relation",
			columns:    "x:y",
			wantStdout: "   y\nx  1.000000\n",
		},
		{
			name:       "inverse relation to file",
			columns:    "x:inv",
			outputFile: "corr.csv",
			wantFile:   ",inv\nx,-1\n",
		},
		{
			name:       "groups keep requested order",
			columns:    "y,x:inv,x",
			outputFile: "corr.tsv",
			wantFile:   "\tinv\tx\ny\t-1\t1\nx\t-1\t1\n",
		},
		{
			name:       "zero variance is NaN",
			columns:    "x:flat",
			wantStdout: "   flat\nx  NaN\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, files)
			opts := &config.Options{
				Op:       config.OpCorrelationMatrix,
				IndexCol: intPtr(0),
				Columns:  tt.columns,
				Files:    f.files("a.csv", "b.tsv"),
			}
			if tt.outputFile != "" {
				opts.OutputFile = f.path(tt.outputFile)
			}

			_, err := f.manager(t, config.AnalysisConfig{StrictVariance: tt.strict}).Run(context.Background(), opts)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStdout, f.stdout.String())
			if tt.outputFile != "" {
				assert.Equal(t, tt.wantFile, testutil.ReadFile(t, opts.OutputFile))
			}
		})
	}
}

func TestManager_Failures(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		opts     func(f *fixture) *config.Options
		strict   bool
		wantStep string
		wantType errors.ErrorType
	}{
		{
			name:  "bad input extension",
			files: map[string]string{"a.txt": "x\n1\n"},
			opts: func(f *fixture) *config.Options {
				return &config.Options{Op: config.OpSelectColumns, Columns: "x", Files: f.files("a.txt")}
			},
			wantStep: StepIDValidate,
			wantType: errors.ErrTypeInvalidFormat,
		},
		{
			name: "missing input",
			opts: func(f *fixture) *config.Options {
				return &config.Options{Op: config.OpSelectColumns, Columns: "x", Files: f.files("absent.csv")}
			},
			wantStep: StepIDValidate,
			wantType: errors.ErrTypeNotFound,
		},
		{
			name:  "output under a file",
			files: map[string]string{"a.csv": "x\n1\n", "blocker": ""},
			opts: func(f *fixture) *config.Options {
				return &config.Options{
					Op: config.OpSelectColumns, Columns: "x", Files: f.files("a.csv"),
					OutputFile: filepath.Join(f.path("blocker"), "out.csv"),
				}
			},
			wantStep: StepIDValidate,
			wantType: errors.ErrTypeWriteFailure,
		},
		{
			name:  "malformed row",
			files: map[string]string{"a.csv": "x,y\n1,2\n3\n"},
			opts: func(f *fixture) *config.Options {
				return &config.Options{Op: config.OpSelectColumns, Columns: "x", Files: f.files("a.csv")}
			},
			wantStep: StepIDIngest,
			wantType: errors.ErrTypeMalformedRow,
		},
		{
			name:  "empty file",
			files: map[string]string{"a.csv": ""},
			opts: func(f *fixture) *config.Options {
				return &config.Options{Op: config.OpSelectColumns, Columns: "x", Files: f.files("a.csv")}
			},
			wantStep: StepIDIngest,
			wantType: errors.ErrTypeEmptyFile,
		},
		{
			name:  "duplicate column across inputs",
			files: map[string]string{"a.csv": "x\n1\n", "b.csv": "x\n2\n"},
			opts: func(f *fixture) *config.Options {
				return &config.Options{Op: config.OpSelectColumns, Columns: "x", Files: f.files("a.csv", "b.csv")}
			},
			wantStep: StepIDJoin,
			wantType: errors.ErrTypeDuplicateColumn,
		},
		{
			name:  "unknown selected column",
			files: keyedInputs,
			opts: func(f *fixture) *config.Options {
				return &config.Options{Op: config.OpSelectColumns, IndexCol: intPtr(0), Columns: "x,z", Files: f.files("a.csv", "b.csv")}
			},
			wantStep: StepIDAnalyse,
			wantType: errors.ErrTypeUnknownColumn,
		},
		{
			name:  "identifier is not a column",
			files: keyedInputs,
			opts: func(f *fixture) *config.Options {
				return &config.Options{Op: config.OpCorrelationMatrix, IndexCol: intPtr(0), Columns: "id:y", Files: f.files("a.csv", "b.csv")}
			},
			wantStep: StepIDAnalyse,
			wantType: errors.ErrTypeUnknownColumn,
		},
		{
			name:  "malformed correlation query",
			files: keyedInputs,
			opts: func(f *fixture) *config.Options {
				return &config.Options{Op: config.OpCorrelationMatrix, IndexCol: intPtr(0), Columns: "x,y", Files: f.files("a.csv", "b.csv")}
			},
			wantStep: StepIDAnalyse,
			wantType: errors.ErrTypeInvalidArgument,
		},
		{
			name:  "strict variance",
			files: map[string]string{"a.csv": "x,flat\n1,5\n2,5\n3,5\n"},
			opts: func(f *fixture) *config.Options {
				return &config.Options{Op: config.OpCorrelationMatrix, Columns: "x:flat", Files: f.files("a.csv")}
			},
			strict:   true,
			wantStep: StepIDAnalyse,
			wantType: errors.ErrTypeInsufficientVariance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.files)
			state, err := f.manager(t, config.AnalysisConfig{StrictVariance: tt.strict}).Run(context.Background(), tt.opts(f))

			require.Error(t, err)
			assert.Equal(t, tt.wantType, errors.TypeOf(err))
			assert.Equal(t, tt.wantStep, FailedStep(err))
			assert.Empty(t, f.stdout.String())

			failed := state.Failed()
			require.NotNil(t, failed)
			assert.Equal(t, tt.wantStep, failed.ID)

			after := false
			for _, st := range state.Steps {
				switch {
				case st.ID == tt.wantStep:
					after = true
				case after:
					assert.Equal(t, StepStatusSkipped, st.Status, st.ID)
				default:
					assert.Equal(t, StepStatusCompleted, st.Status, st.ID)
				}
			}
		})
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, os.ErrClosed }

func TestManager_ConsoleWriteFailure(t *testing.T) {
	f := newFixture(t, keyedInputs)
	m, err := NewManager(Dependencies{Stdout: failingWriter{}})
	require.NoError(t, err)

	_, err = m.Run(context.Background(), &config.Options{
		Op: config.OpSelectColumns, IndexCol: intPtr(0), Columns: "x", Files: f.files("a.csv", "b.csv"),
	})
	require.Error(t, err)
	assert.Equal(t, StepIDEmit, FailedStep(err))
	assert.True(t, errors.IsType(err, errors.ErrTypeWriteFailure))
}

func TestManager_InvalidOptions(t *testing.T) {
	f := newFixture(t, keyedInputs)
	_, err := f.manager(t, config.AnalysisConfig{}).Run(context.Background(), &config.Options{
		Op: "median", Columns: "x", Files: f.files("a.csv"),
	})
	require.Error(t, err)
	assert.Equal(t, StepIDValidate, FailedStep(err))
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidArgument))
}

func TestManager_LogsUnknownArgs(t *testing.T) {
	f := newFixture(t, keyedInputs)
	logger, handler := testutil.NewTestLogger(t)
	m, err := NewManager(Dependencies{Logger: logger, Stdout: f.stdout})
	require.NoError(t, err)

	_, err = m.Run(context.Background(), &config.Options{
		Op: config.OpSelectColumns, IndexCol: intPtr(0), Columns: "x",
		Files: f.files("a.csv", "b.csv"), Unknown: []string{"--verbose"},
	})
	require.NoError(t, err)

	rec, ok := handler.Find(slog.LevelWarn, "Unknown args")
	require.True(t, ok)
	assert.Equal(t, []string{"--verbose"}, rec.Attrs["args"])
	testutil.AssertLogContains(t, handler, slog.LevelInfo, "Got joined dataset")
	testutil.AssertNoErrors(t, handler)
}

func TestManager_Spans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	f := newFixture(t, keyedInputs)
	m, err := NewManager(Dependencies{Stdout: f.stdout, Tracer: tp.Tracer("test")})
	require.NoError(t, err)

	_, err = m.Run(context.Background(), &config.Options{
		Op: config.OpSelectColumns, IndexCol: intPtr(0), Columns: "x,missing", Files: f.files("a.csv", "b.csv"),
	})
	require.Error(t, err)

	status := make(map[string]codes.Code)
	for _, s := range recorder.Ended() {
		status[s.Name()] = s.Status().Code
	}
	assert.Equal(t, map[string]codes.Code{
		"step.validate-inputs": codes.Unset,
		"step.ingest":          codes.Unset,
		"step.join":            codes.Unset,
		"step.analyse":         codes.Error,
		"tabkit.run":           codes.Error,
	}, status)
}

func TestManager_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := infrastructure.NewPipelineMetrics(mp.Meter("test"))
	require.NoError(t, err)

	f := newFixture(t, map[string]string{
		"a.csv": "id,x\n1,10\n2,20\n3,30\n",
		"b.csv": "id,y\n1,100\n",
	})
	m, err := NewManager(Dependencies{Stdout: f.stdout, Metrics: metrics})
	require.NoError(t, err)

	state, err := m.Run(context.Background(), &config.Options{
		Op: config.OpSelectColumns, IndexCol: intPtr(0), Columns: "x,y", Files: f.files("a.csv", "b.csv"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, state.JoinStats.MissingFilled)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if sum, ok := md.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[md.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), sums["files_ingested"])
	assert.Equal(t, int64(4), sums["rows_ingested"])
	assert.Equal(t, int64(2), sums["join_missing_cells"])
	assert.Equal(t, int64(1), sums["runs"])
}

func TestManager_RunIDFromContext(t *testing.T) {
	f := newFixture(t, keyedInputs)
	ctx := infrastructure.WithRunID(context.Background(), "fixed-id")

	state, err := f.manager(t, config.AnalysisConfig{}).Run(ctx, &config.Options{
		Op: config.OpSelectColumns, IndexCol: intPtr(0), Columns: "x", Files: f.files("a.csv"),
	})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", state.ID)
	assert.NotNil(t, state.EndTime)
	require.Len(t, state.Steps, 5)
	assert.Equal(t, StepIDEmit, state.Steps[4].ID)
}

func TestManager_LogsFailure(t *testing.T) {
	f := newFixture(t, keyedInputs)
	logger, handler := testutil.NewTestLogger(t)
	m, err := NewManager(Dependencies{Logger: logger, Stdout: f.stdout})
	require.NoError(t, err)

	_, runErr := m.Run(context.Background(), &config.Options{
		Op: config.OpSelectColumns, IndexCol: intPtr(0), Columns: "x,nope",
		Files: f.files("a.csv", "b.csv"),
	})
	require.Error(t, runErr)

	rec, ok := handler.Find(slog.LevelError, "Run failed")
	require.True(t, ok)
	assert.Equal(t, StepIDAnalyse, rec.Attrs["step"])
	assert.Equal(t, runErr.Error(), rec.Attrs["error"])
	assert.Equal(t, "operations", rec.Attrs["component"])
	assert.Contains(t, rec.Attrs, "step_duration")
}
