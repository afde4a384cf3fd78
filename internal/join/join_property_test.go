package join

import (
	"context"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"tabkit/internal/dataset"
)

func uniqueKeys(ids []int) []string {
	seen := make(map[int]struct{}, len(ids))
	var keys []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, strconv.Itoa(id))
	}
	return keys
}

func keyedColumn(name, column string, keys []string) *dataset.Dataset {
	rows := make([][]dataset.Cell, len(keys))
	for i, k := range keys {
		rows[i] = []dataset.Cell{dataset.Value(column + k)}
	}
	return dataset.New(name, []string{column}, rows, &dataset.Index{Name: "id", Keys: keys})
}

// TestProperty_LeftAlignment checks that the base input alone decides the rows
// of a keyed join and that later cells are present exactly for shared keys.
func TestProperty_LeftAlignment(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("joined rows are the base rows in base order", prop.ForAll(
		func(baseIDs, otherIDs []int) bool {
			base := keyedColumn("a.csv", "x", uniqueKeys(baseIDs))
			other := keyedColumn("b.csv", "y", uniqueKeys(otherIDs))

			got, _, err := NewJoiner(nil).Join(context.Background(), []*dataset.Dataset{base, other})
			if err != nil || got.NumRows() != base.NumRows() {
				return false
			}

			inOther := make(map[string]struct{}, other.NumRows())
			for _, k := range other.Index.Keys {
				inOther[k] = struct{}{}
			}
			for i, k := range got.Index.Keys {
				if k != base.Index.Keys[i] {
					return false
				}
				cell := got.Rows[i][1]
				_, shared := inOther[k]
				if cell.Valid != shared {
					return false
				}
				if shared && cell.Text != "y"+k {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 40)),
		gen.SliceOf(gen.IntRange(0, 40)),
	))

	properties.Property("a single input is returned unchanged", prop.ForAll(
		func(ids []int) bool {
			ds := keyedColumn("a.csv", "x", uniqueKeys(ids))
			got, _, err := NewJoiner(nil).Join(context.Background(), []*dataset.Dataset{ds})
			return err == nil && got == ds
		},
		gen.SliceOf(gen.IntRange(0, 100)),
	))

	properties.Property("positional join keeps the base row count", prop.ForAll(
		func(baseRows, otherRows int) bool {
			base := keyedColumn("a.csv", "x", make([]string, baseRows))
			other := keyedColumn("b.csv", "y", make([]string, otherRows))
			base.Index, other.Index = nil, nil

			got, stats, err := NewJoiner(nil).Join(context.Background(), []*dataset.Dataset{base, other})
			if err != nil || got.NumRows() != baseRows {
				return false
			}
			missing := 0
			if baseRows > otherRows {
				missing = baseRows - otherRows
			}
			return stats.MissingFilled == missing
		},
		gen.IntRange(0, 50),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}
