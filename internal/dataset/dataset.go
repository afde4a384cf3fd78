package dataset

import (
	"math"
	"strconv"
)

// Cell is one field of a record. Valid is false for the missing-value marker.
type Cell struct {
	Text  string
	Valid bool
}

// Value returns a present cell holding s.
func Value(s string) Cell {
	return Cell{Text: s, Valid: true}
}

// Missing returns the missing-value marker.
func Missing() Cell {
	return Cell{}
}

// Index is the row identifier of a dataset: the name of the column it was
// taken from and one key per row.
type Index struct {
	Name string
	Keys []string
}

// Dataset is an in-memory table with ordered, uniquely named columns and an
// optional row identifier. Operations never modify a Dataset in place.
type Dataset struct {
	Name    string
	Columns []string
	Rows    [][]Cell
	Index   *Index
}

// New builds a dataset from already-aligned parts.
func New(name string, columns []string, rows [][]Cell, index *Index) *Dataset {
	return &Dataset{Name: name, Columns: columns, Rows: rows, Index: index}
}

// NumRows returns the number of records.
func (d *Dataset) NumRows() int {
	return len(d.Rows)
}

// HasIndex reports whether the dataset carries a row identifier.
func (d *Dataset) HasIndex() bool {
	return d.Index != nil
}

// ColumnIndex returns the position of name, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// IsNumeric reports whether every present cell of the named column parses as a float.
// A column without present cells counts as numeric.
func (d *Dataset) IsNumeric(name string) bool {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return false
	}
	for _, row := range d.Rows {
		c := row[idx]
		if !c.Valid {
			continue
		}
		if _, err := strconv.ParseFloat(c.Text, 64); err != nil {
			return false
		}
	}
	return true
}

// Float64s returns the named column as floats with NaN for missing cells.
// The second result is false when the column is absent or not numeric.
func (d *Dataset) Float64s(name string) ([]float64, bool) {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]float64, len(d.Rows))
	for i, row := range d.Rows {
		c := row[idx]
		if !c.Valid {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(c.Text, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// NumericColumns returns the numeric column names in column order.
func (d *Dataset) NumericColumns() []string {
	var out []string
	for _, c := range d.Columns {
		if d.IsNumeric(c) {
			out = append(out, c)
		}
	}
	return out
}

// Header returns the column names.
func (d *Dataset) Header() []string {
	return d.Columns
}

// IndexName returns the identifier column name, or "" for positional rows.
func (d *Dataset) IndexName() string {
	if d.Index == nil {
		return ""
	}
	return d.Index.Name
}

// Labels returns the row identifiers, or 0-based positions when there are none.
func (d *Dataset) Labels() []string {
	if d.Index != nil {
		return d.Index.Keys
	}
	labels := make([]string, len(d.Rows))
	for i := range d.Rows {
		labels[i] = strconv.Itoa(i)
	}
	return labels
}

// Records returns the rows as text with missing cells left empty.
func (d *Dataset) Records() [][]string {
	return d.render("")
}

// Display returns the rows as text with missing cells shown as NaN.
func (d *Dataset) Display() [][]string {
	return d.render("NaN")
}

func (d *Dataset) render(missing string) [][]string {
	out := make([][]string, len(d.Rows))
	for i, row := range d.Rows {
		rec := make([]string, len(row))
		for j, c := range row {
			if c.Valid {
				rec[j] = c.Text
			} else {
				rec[j] = missing
			}
		}
		out[i] = rec
	}
	return out
}
