package join

import (
	"context"
	"log/slog"

	"tabkit/internal/dataset"
	"tabkit/internal/errors"
)

// Stats describes how later inputs lined up with the base input.
type Stats struct {
	Inputs        int
	Matched       int // base rows that found a partner, summed over later inputs
	Unmatched     int // base rows left without a partner, summed over later inputs
	Dropped       int // rows of later inputs outside the base row universe
	MissingFilled int // cells set to the missing-value marker
}

// Joiner aligns datasets on their row identifiers, or by position when no
// identifier is set. The first dataset defines the rows of the result.
type Joiner struct {
	logger *slog.Logger
}

// NewJoiner creates a joiner that reports through logger.
func NewJoiner(logger *slog.Logger) *Joiner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Joiner{logger: logger}
}

// Join combines datasets into one table. A single input is returned unchanged.
func (j *Joiner) Join(ctx context.Context, datasets []*dataset.Dataset) (*dataset.Dataset, Stats, error) {
	stats := Stats{Inputs: len(datasets)}
	if len(datasets) == 0 {
		return nil, stats, errors.NewInvalidArgumentError("at least one dataset is required")
	}
	base := datasets[0]
	if len(datasets) == 1 {
		return base, stats, nil
	}

	if err := checkIdentifierPolicy(datasets); err != nil {
		return nil, stats, err
	}

	columns := append([]string(nil), base.Columns...)
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		seen[c] = struct{}{}
	}
	for _, ds := range datasets[1:] {
		for _, c := range ds.Columns {
			if _, dup := seen[c]; dup {
				return nil, stats, errors.NewDuplicateColumnError(c, ds.Name)
			}
			seen[c] = struct{}{}
		}
		columns = append(columns, ds.Columns...)
	}

	rows := make([][]dataset.Cell, base.NumRows())
	for i, r := range base.Rows {
		rows[i] = make([]dataset.Cell, 0, len(columns))
		rows[i] = append(rows[i], r...)
	}

	for _, ds := range datasets[1:] {
		var positions []int
		var err error
		if base.HasIndex() {
			positions, err = alignByKey(base.Index.Keys, ds)
		} else {
			positions = alignByPosition(base.NumRows(), ds.NumRows())
		}
		if err != nil {
			return nil, stats, err
		}

		matched := 0
		used := make(map[int]struct{}, len(positions))
		for i, pos := range positions {
			if pos < 0 {
				for range ds.Columns {
					rows[i] = append(rows[i], dataset.Missing())
				}
				stats.MissingFilled += len(ds.Columns)
				continue
			}
			rows[i] = append(rows[i], ds.Rows[pos]...)
			used[pos] = struct{}{}
			matched++
		}
		dropped := ds.NumRows() - len(used)

		stats.Matched += matched
		stats.Unmatched += len(positions) - matched
		stats.Dropped += dropped

		j.logger.DebugContext(ctx, "Aligned dataset",
			slog.String("dataset", ds.Name),
			slog.Int("matched", matched),
			slog.Int("unmatched", len(positions)-matched),
			slog.Int("dropped", dropped))
	}

	var index *dataset.Index
	if base.HasIndex() {
		index = &dataset.Index{Name: base.Index.Name, Keys: append([]string(nil), base.Index.Keys...)}
	}
	joined := dataset.New(base.Name, columns, rows, index)

	j.logger.InfoContext(ctx, "Got joined dataset",
		slog.Int("rows", joined.NumRows()),
		slog.Int("columns", len(joined.Columns)),
		slog.Any("column_names", joined.Columns))

	return joined, stats, nil
}

func checkIdentifierPolicy(datasets []*dataset.Dataset) error {
	var indexed, plain []string
	for _, ds := range datasets {
		if ds.HasIndex() {
			indexed = append(indexed, ds.Name)
		} else {
			plain = append(plain, ds.Name)
		}
	}
	if len(indexed) > 0 && len(plain) > 0 {
		return errors.NewJoinArityMismatchError(indexed, plain)
	}
	return nil
}

// alignByKey returns, for every base key, the row of ds carrying the same
// identifier, or -1.
func alignByKey(baseKeys []string, ds *dataset.Dataset) ([]int, error) {
	lookup := make(map[string]int, ds.NumRows())
	for pos, key := range ds.Index.Keys {
		if _, dup := lookup[key]; dup {
			return nil, errors.NewDuplicateKeyError(key, ds.Name)
		}
		lookup[key] = pos
	}

	positions := make([]int, len(baseKeys))
	for i, key := range baseKeys {
		pos, ok := lookup[key]
		if !ok {
			pos = -1
		}
		positions[i] = pos
	}
	return positions, nil
}

// alignByPosition pairs rows by position up to the shorter length.
func alignByPosition(baseRows, otherRows int) []int {
	positions := make([]int, baseRows)
	for i := range positions {
		if i < otherRows {
			positions[i] = i
		} else {
			positions[i] = -1
		}
	}
	return positions
}
