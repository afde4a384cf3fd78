package analysis

import (
	"tabkit/internal/dataset"
	"tabkit/internal/errors"
)

// Project returns a new dataset holding exactly the requested columns in the
// requested order, with every row and the row identifier of table.
func Project(table *dataset.Dataset, columns []string) (*dataset.Dataset, error) {
	positions := make([]int, len(columns))
	for i, name := range columns {
		idx := table.ColumnIndex(name)
		if idx < 0 {
			return nil, errors.NewUnknownColumnError(name, "is not present in the joined table")
		}
		positions[i] = idx
	}

	rows := make([][]dataset.Cell, table.NumRows())
	for r, src := range table.Rows {
		row := make([]dataset.Cell, len(positions))
		for i, idx := range positions {
			row[i] = src[idx]
		}
		rows[r] = row
	}

	var index *dataset.Index
	if table.HasIndex() {
		index = &dataset.Index{Name: table.Index.Name, Keys: append([]string(nil), table.Index.Keys...)}
	}
	names := make([]string, len(columns))
	copy(names, columns)
	return dataset.New(table.Name, names, rows, index), nil
}
