package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabkit/internal/dataset"
	"tabkit/internal/errors"
)

func table(columns []string, rows ...[]string) *dataset.Dataset {
	cells := make([][]dataset.Cell, len(rows))
	for i, r := range rows {
		cells[i] = make([]dataset.Cell, len(r))
		for j, v := range r {
			if v == "" {
				cells[i][j] = dataset.Missing()
			} else {
				cells[i][j] = dataset.Value(v)
			}
		}
	}
	return dataset.New("t", columns, cells, nil)
}

func TestProject(t *testing.T) {
	src := table([]string{"a", "b", "c"},
		[]string{"1", "2", "3"},
		[]string{"4", "", "6"})

	tests := []struct {
		name     string
		columns  []string
		want     [][]string
		wantCols []string
	}{
		{
			name:     "reorder",
			columns:  []string{"c", "a"},
			wantCols: []string{"c", "a"},
			want:     [][]string{{"3", "1"}, {"6", "4"}},
		},
		{
			name:     "repeat",
			columns:  []string{"b", "b"},
			wantCols: []string{"b", "b"},
			want:     [][]string{{"2", "2"}, {"NaN", "NaN"}},
		},
		{
			name:     "all",
			columns:  []string{"a", "b", "c"},
			wantCols: []string{"a", "b", "c"},
			want:     [][]string{{"1", "2", "3"}, {"4", "NaN", "6"}},
		},
		{
			name:     "none",
			columns:  []string{},
			wantCols: []string{},
			want:     [][]string{{}, {}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Project(src, tt.columns)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCols, got.Columns)
			assert.Equal(t, tt.want, got.Display())
		})
	}

	// source is untouched
	assert.Equal(t, []string{"a", "b", "c"}, src.Columns)
	assert.Len(t, src.Rows[0], 3)
}

func TestProject_KeepsIndex(t *testing.T) {
	src := table([]string{"x", "y"}, []string{"10", "100"}, []string{"20", "200"})
	src.Index = &dataset.Index{Name: "id", Keys: []string{"1", "2"}}

	got, err := Project(src, []string{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, "id", got.IndexName())
	assert.Equal(t, []string{"1", "2"}, got.Labels())
	assert.Equal(t, [][]string{{"10", "100"}, {"20", "200"}}, got.Records())
}

func TestProject_UnknownColumn(t *testing.T) {
	src := table([]string{"a", "b"}, []string{"1", "2"})

	_, err := Project(src, []string{"a", "zz", "yy"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeUnknownColumn))
	assert.Contains(t, err.Error(), `"zz"`)
	assert.NotContains(t, err.Error(), `"yy"`)

	_, err = Project(src, []string{""})
	assert.True(t, errors.IsType(err, errors.ErrTypeUnknownColumn))
}
