package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"tabkit/internal/dataset"
	"tabkit/internal/errors"
)

// VariancePolicy decides what a correlation involving a zero-variance column yields.
type VariancePolicy int

const (
	// VariancePolicyNaN reports NaN for every pair that involves a degenerate column.
	VariancePolicyNaN VariancePolicy = iota
	// VariancePolicyStrict fails with INSUFFICIENT_VARIANCE instead.
	VariancePolicyStrict
)

// Query names the two column groups whose cross correlations are requested.
type Query struct {
	Left  []string
	Right []string
}

// ParseQuery reads "a,b:c,d" into a Query. Exactly one ':' is allowed.
func ParseQuery(spec string) (Query, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 2 {
		return Query{}, errors.NewInvalidArgumentError(
			fmt.Sprintf("correlation columns %q must be two comma separated lists joined by a single ':'", spec))
	}
	return Query{
		Left:  strings.Split(parts[0], ","),
		Right: strings.Split(parts[1], ","),
	}, nil
}

// Matrix is a labelled matrix of correlation coefficients.
type Matrix struct {
	RowNames []string
	ColNames []string
	Values   [][]float64

	// degenerate holds, per cell, the column that made the coefficient undefined.
	degenerate [][]string
}

// Slice returns the sub-matrix for rows × cols in the given order. Names may repeat.
func (m *Matrix) Slice(rows, cols []string) (*Matrix, error) {
	rIdx, err := positionsOf(m.RowNames, rows)
	if err != nil {
		return nil, err
	}
	cIdx, err := positionsOf(m.ColNames, cols)
	if err != nil {
		return nil, err
	}

	out := &Matrix{
		RowNames:   append([]string(nil), rows...),
		ColNames:   append([]string(nil), cols...),
		Values:     make([][]float64, len(rows)),
		degenerate: make([][]string, len(rows)),
	}
	for i, r := range rIdx {
		out.Values[i] = make([]float64, len(cIdx))
		out.degenerate[i] = make([]string, len(cIdx))
		for j, c := range cIdx {
			out.Values[i][j] = m.Values[r][c]
			if m.degenerate != nil {
				out.degenerate[i][j] = m.degenerate[r][c]
			}
		}
	}
	return out, nil
}

// Header returns the column names.
func (m *Matrix) Header() []string { return m.ColNames }

// IndexName is empty: matrix rows are labelled by column names, not by an identifier.
func (m *Matrix) IndexName() string { return "" }

// Labels returns the row names.
func (m *Matrix) Labels() []string { return m.RowNames }

// KeepLabels makes file output carry the row names as a leading column.
func (m *Matrix) KeepLabels() bool { return true }

// Records returns the coefficients in shortest round-trip form, NaN as empty text.
func (m *Matrix) Records() [][]string {
	return m.render(func(v float64) string {
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	})
}

// Display returns the coefficients with six decimals.
func (m *Matrix) Display() [][]string {
	return m.render(func(v float64) string {
		if math.IsNaN(v) {
			return "NaN"
		}
		return strconv.FormatFloat(v, 'f', 6, 64)
	})
}

func (m *Matrix) render(format func(float64) string) [][]string {
	out := make([][]string, len(m.Values))
	for i, row := range m.Values {
		rec := make([]string, len(row))
		for j, v := range row {
			rec[j] = format(v)
		}
		out[i] = rec
	}
	return out
}

// CorrelationMatrix computes the Pearson coefficient between every pair of
// numeric columns of table using pairwise complete observations.
func CorrelationMatrix(table *dataset.Dataset, policy VariancePolicy) (*Matrix, error) {
	m := pairwise(table)
	if policy == VariancePolicyStrict {
		if err := m.checkVariance(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Correlate returns the correlations between query.Left (rows) and query.Right
// (columns), in the caller's order. Every name must be a numeric column.
func Correlate(table *dataset.Dataset, query Query, policy VariancePolicy) (*Matrix, error) {
	for _, group := range [][]string{query.Left, query.Right} {
		for _, name := range group {
			if table.ColumnIndex(name) < 0 {
				return nil, errors.NewUnknownColumnError(name, "is not present in the joined table")
			}
			if !table.IsNumeric(name) {
				return nil, errors.NewUnknownColumnError(name, "is not numeric")
			}
		}
	}

	full, err := CorrelationMatrix(table, VariancePolicyNaN)
	if err != nil {
		return nil, err
	}
	sub, err := full.Slice(query.Left, query.Right)
	if err != nil {
		return nil, err
	}
	if policy == VariancePolicyStrict {
		if err := sub.checkVariance(); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

func (m *Matrix) checkVariance() error {
	for _, row := range m.degenerate {
		for _, name := range row {
			if name != "" {
				return errors.NewInsufficientVarianceError(name)
			}
		}
	}
	return nil
}

func pairwise(table *dataset.Dataset) *Matrix {
	names := table.NumericColumns()
	n := len(names)
	series := make([][]float64, n)
	for i, name := range names {
		series[i], _ = table.Float64s(name)
	}

	m := &Matrix{
		RowNames:   names,
		ColNames:   append([]string(nil), names...),
		Values:     make([][]float64, n),
		degenerate: make([][]string, n),
	}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
		m.degenerate[i] = make([]string, n)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			r, xFlat, yFlat := pearson(series[i], series[j])
			if i == j && !xFlat {
				r = 1
			}
			var culprit string
			switch {
			case xFlat:
				culprit = names[i]
			case yFlat:
				culprit = names[j]
			}
			m.Values[i][j], m.Values[j][i] = r, r
			m.degenerate[i][j], m.degenerate[j][i] = culprit, culprit
		}
	}
	return m
}

// pearson computes the correlation over rows where both x and y are present.
// xFlat/yFlat report a series with no variance over those rows; fewer than two
// complete rows leaves both series flat.
func pearson(x, y []float64) (r float64, xFlat, yFlat bool) {
	var idx []int
	for i := range x {
		if !math.IsNaN(x[i]) && !math.IsNaN(y[i]) {
			idx = append(idx, i)
		}
	}
	if len(idx) < 2 {
		return math.NaN(), true, true
	}

	var meanX, meanY float64
	for _, i := range idx {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= float64(len(idx))
	meanY /= float64(len(idx))

	var sumXY, sumXX, sumYY float64
	for _, i := range idx {
		dx := x[i] - meanX
		dy := y[i] - meanY
		sumXY += dx * dy
		sumXX += dx * dx
		sumYY += dy * dy
	}

	if sumXX == 0 || sumYY == 0 {
		return math.NaN(), sumXX == 0, sumYY == 0
	}

	r = sumXY / math.Sqrt(sumXX*sumYY)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, false, false
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func positionsOf(names, wanted []string) ([]int, error) {
	out := make([]int, len(wanted))
	for i, w := range wanted {
		idx := indexOf(names, w)
		if idx < 0 {
			return nil, errors.NewUnknownColumnError(w, "is not a numeric column")
		}
		out[i] = idx
	}
	return out, nil
}
