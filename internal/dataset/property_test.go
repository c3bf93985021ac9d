package dataset

import (
	"context"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/arkilian/quarry/internal/storage"
	"github.com/arkilian/quarry/pkg/types"
)

// TestProperty_WriteReadRoundTrip validates that for any table, writing it
// partitioned by date_built and reading it back yields a row-set-equal
// table once both sides are sorted by the same key.
func TestProperty_WriteReadRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	schema := types.NewSchema(
		types.ColumnDef{Name: "date_built", Type: types.TypeInt},
		types.ColumnDef{Name: "price", Type: types.TypeFloat},
		types.ColumnDef{Name: "bedrooms", Type: types.TypeInt},
	)
	ctx := context.Background()

	properties.Property("round trip preserves the row set", prop.ForAll(
		func(builts []int64, prices []float64, bedrooms []int64) bool {
			n := len(builts)
			if len(prices) < n {
				n = len(prices)
			}
			if len(bedrooms) < n {
				n = len(bedrooms)
			}

			rows := make([]types.Row, n)
			for i := 0; i < n; i++ {
				rows[i] = types.Row{
					"date_built": builts[i],
					"price":      prices[i],
					"bedrooms":   bedrooms[i],
				}
			}
			table, err := types.NewTable(schema, rows)
			if err != nil {
				return false
			}

			store, err := storage.NewLocalStorage(t.TempDir())
			if err != nil {
				return false
			}

			if _, err := NewWriter(store).Write(ctx, table, "date_built", "sales", ModeOverwrite); err != nil {
				return false
			}
			got, err := NewReader(store).Read(ctx, "sales")
			if err != nil {
				return false
			}
			if got.NumRows() != table.NumRows() {
				return false
			}

			want := canonicalKeys(schema, table.Rows)
			have := canonicalKeys(schema, got.Rows)
			for i := range want {
				if want[i] != have[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(1900, 2025)),
		gen.SliceOf(gen.Float64Range(1, 1e7)),
		gen.SliceOf(gen.Int64Range(0, 10)),
	))

	properties.TestingRun(t)
}

// canonicalKeys renders each row as a sorted canonical string so two row
// sets can be compared independent of row order.
func canonicalKeys(schema types.Schema, rows []types.Row) []string {
	keys := make([]string, len(rows))
	for i, row := range rows {
		key := ""
		for _, col := range schema.Columns {
			key += types.Format(row[col.Name]) + "|"
		}
		keys[i] = key
	}
	sort.Strings(keys)
	return keys
}
