package operations

import (
	"context"
	"log/slog"
	"strings"

	"tabkit/internal/analysis"
	"tabkit/internal/config"
	"tabkit/internal/dataset"
	"tabkit/internal/exporter"
)

// SelectColumns projects the comma separated columns out of the joined table.
type SelectColumns struct{}

// Name implements Operation
func (SelectColumns) Name() string { return config.OpSelectColumns }

// Apply implements Operation
func (SelectColumns) Apply(_ context.Context, table *dataset.Dataset, columns string) (exporter.Table, error) {
	projected, err := analysis.Project(table, strings.Split(columns, ","))
	if err != nil {
		return nil, err
	}
	return projected, nil
}

// CorrelationMatrix slices the Pearson correlation matrix with a "left:right" query.
type CorrelationMatrix struct {
	Policy analysis.VariancePolicy
	Logger *slog.Logger
}

// Name implements Operation
func (CorrelationMatrix) Name() string { return config.OpCorrelationMatrix }

// Apply implements Operation
func (c CorrelationMatrix) Apply(ctx context.Context, table *dataset.Dataset, columns string) (exporter.Table, error) {
	query, err := analysis.ParseQuery(columns)
	if err != nil {
		return nil, err
	}

	m, err := analysis.Correlate(table, query, c.Policy)
	if err != nil {
		return nil, err
	}

	if c.Logger != nil {
		c.Logger.DebugContext(ctx, "Computed correlation sub-matrix",
			slog.Any("rows", m.RowNames),
			slog.Any("columns", m.ColNames))
	}
	return m, nil
}

// DefaultRegistry returns a registry with both analyses registered.
func DefaultRegistry(policy analysis.VariancePolicy, logger *slog.Logger) *Registry {
	r := NewRegistry()
	_ = r.Register(SelectColumns{})
	_ = r.Register(CorrelationMatrix{Policy: policy, Logger: logger})
	return r
}
