package dataset

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	qerrors "github.com/arkilian/quarry/internal/errors"
	"github.com/arkilian/quarry/internal/storage"
	"github.com/arkilian/quarry/pkg/types"
)

func salesSchema() types.Schema {
	return types.NewSchema(
		types.ColumnDef{Name: "date", Type: types.TypeDate},
		types.ColumnDef{Name: "date_built", Type: types.TypeInt},
		types.ColumnDef{Name: "price", Type: types.TypeFloat},
		types.ColumnDef{Name: "bedrooms", Type: types.TypeInt},
	)
}

func salesRow(t *testing.T, day string, built int64, price float64, bedrooms int64) types.Row {
	t.Helper()
	d, err := time.Parse(types.DateFormat, day)
	if err != nil {
		t.Fatalf("bad test date: %v", err)
	}
	return types.Row{"date": d, "date_built": built, "price": price, "bedrooms": bedrooms}
}

func newStore(t *testing.T) storage.ObjectStorage {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return store
}

func buildSalesTable(t *testing.T, rows []types.Row) *types.Table {
	t.Helper()
	table, err := types.NewTable(salesSchema(), rows)
	if err != nil {
		t.Fatalf("failed to build table: %v", err)
	}
	return table
}

func TestWriteRead_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	table := buildSalesTable(t, []types.Row{
		salesRow(t, "2019-01-01", 2010, 300000, 3),
		salesRow(t, "2019-02-01", 2015, 450000, 4),
		salesRow(t, "2019-03-01", 2010, 310000, 2),
		salesRow(t, "2019-04-01", 2015, 470000, 5),
	})

	res, err := NewWriter(store).Write(ctx, table, "date_built", "sales", ModeOverwrite)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if len(res.Partitions) != 2 {
		t.Fatalf("expected 2 partitions for values {2010, 2015}, got %d", len(res.Partitions))
	}

	got, err := NewReader(store).Read(ctx, "sales")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if !got.Schema.Equal(table.Schema) {
		t.Errorf("schema order not restored: %v", got.Schema.Names())
	}
	if got.NumRows() != table.NumRows() {
		t.Fatalf("got %d rows, want %d", got.NumRows(), table.NumRows())
	}

	// Row-set equality after sorting both sides by the same key.
	wantRows := sortedByPrice(table.Rows)
	gotRows := sortedByPrice(got.Rows)
	for i := range wantRows {
		for _, col := range table.Schema.Names() {
			if types.Compare(gotRows[i][col], wantRows[i][col]) != 0 {
				t.Errorf("row %d column %s: got %v, want %v", i, col, gotRows[i][col], wantRows[i][col])
			}
		}
	}
}

func sortedByPrice(rows []types.Row) []types.Row {
	out := make([]types.Row, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return types.Compare(out[i]["price"], out[j]["price"]) < 0
	})
	return out
}

func TestWriteRead_PartitionDistribution(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	table := buildSalesTable(t, []types.Row{
		salesRow(t, "2019-01-01", 2010, 100, 1),
		salesRow(t, "2019-01-02", 2010, 200, 2),
		salesRow(t, "2019-01-03", 2015, 300, 3),
	})

	if _, err := NewWriter(store).Write(ctx, table, "date_built", "sales", ModeOverwrite); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := NewReader(store).Read(ctx, "sales")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	counts := map[int64]int{}
	for _, row := range got.Rows {
		counts[row["date_built"].(int64)]++
	}
	if counts[2010] != 2 || counts[2015] != 1 {
		t.Errorf("date_built distribution %v does not match input counts", counts)
	}
}

func TestWriteRead_EmptyTable(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	table := buildSalesTable(t, nil)

	res, err := NewWriter(store).Write(ctx, table, "date_built", "sales", ModeOverwrite)
	if err != nil {
		t.Fatalf("empty table write should succeed: %v", err)
	}
	if len(res.Partitions) != 0 {
		t.Errorf("expected empty dataset, got %d partitions", len(res.Partitions))
	}

	got, err := NewReader(store).Read(ctx, "sales")
	if err != nil {
		t.Fatalf("empty dataset read should succeed: %v", err)
	}
	if got.NumRows() != 0 {
		t.Errorf("expected 0 rows, got %d", got.NumRows())
	}
	if !got.Schema.Equal(table.Schema) {
		t.Error("schema not preserved for empty dataset")
	}
}

func TestWrite_PartitionValueOnlyInPath(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	table := buildSalesTable(t, []types.Row{
		salesRow(t, "2019-01-01", 2010, 100, 1),
	})

	res, err := NewWriter(store).Write(ctx, table, "date_built", "sales", ModeOverwrite)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	blob, err := store.GetObject(ctx, res.Partitions[0].ObjectPath)
	if err != nil {
		t.Fatalf("failed to read blob: %v", err)
	}

	schema, rows, err := DecodeBlob(blob)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if schema.Index("date_built") != -1 {
		t.Error("partition column must not be stored in the blob body")
	}
	if _, ok := rows[0]["date_built"]; ok {
		t.Error("partition value must come from the path, not the row")
	}
}

func TestWrite_ErrorIfExists(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	table := buildSalesTable(t, []types.Row{salesRow(t, "2019-01-01", 2010, 100, 1)})

	w := NewWriter(store)
	if _, err := w.Write(ctx, table, "date_built", "sales", ModeErrorIfExists); err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	_, err := w.Write(ctx, table, "date_built", "sales", ModeErrorIfExists)
	if qerrors.GetCode(err) != qerrors.CodeIOError {
		t.Errorf("got %v, want IO_ERROR for existing destination", err)
	}
}

func TestWrite_OverwriteClearsOldPartitions(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	w := NewWriter(store)

	first := buildSalesTable(t, []types.Row{
		salesRow(t, "2019-01-01", 1999, 100, 1),
	})
	if _, err := w.Write(ctx, first, "date_built", "sales", ModeOverwrite); err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	second := buildSalesTable(t, []types.Row{
		salesRow(t, "2019-01-01", 2020, 200, 2),
	})
	if _, err := w.Write(ctx, second, "date_built", "sales", ModeOverwrite); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	got, err := NewReader(store).Read(ctx, "sales")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.NumRows() != 1 || got.Rows[0]["date_built"] != int64(2020) {
		t.Errorf("overwrite left stale partitions: %v", got.Rows)
	}
}

func TestWrite_UnknownPartitionColumn(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	table := buildSalesTable(t, nil)

	_, err := NewWriter(store).Write(ctx, table, "nope", "sales", ModeOverwrite)
	if qerrors.GetCode(err) != qerrors.CodeColumnNotFound {
		t.Errorf("got %v, want COLUMN_NOT_FOUND", err)
	}
}

func TestRead_MissingDestination(t *testing.T) {
	store := newStore(t)

	_, err := NewReader(store).Read(context.Background(), "never-written")
	if qerrors.GetCode(err) != qerrors.CodeDatasetNotFound {
		t.Errorf("got %v, want DATASET_NOT_FOUND", err)
	}
}

func TestRead_NullPartitionValue(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	rows := []types.Row{
		salesRow(t, "2019-01-01", 2010, 100, 1),
		{"date": nil, "date_built": nil, "price": 500.0, "bedrooms": int64(2)},
	}
	table := buildSalesTable(t, rows)

	if _, err := NewWriter(store).Write(ctx, table, "date_built", "sales", ModeOverwrite); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := NewReader(store).Read(ctx, "sales")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.NumRows() != 2 {
		t.Fatalf("expected 2 rows, got %d", got.NumRows())
	}

	foundNull := false
	for _, row := range got.Rows {
		if row["date_built"] == nil {
			foundNull = true
		}
	}
	if !foundNull {
		t.Error("null partition value did not round-trip")
	}
}

func TestWriteRead_StringEdgeValues(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	schema := types.NewSchema(
		types.ColumnDef{Name: "year", Type: types.TypeInt},
		types.ColumnDef{Name: "note", Type: types.TypeString},
	)
	table, err := types.NewTable(schema, []types.Row{
		{"year": int64(2019), "note": ""},
		{"year": int64(2019), "note": types.NullToken},
		{"year": int64(2020), "note": nil},
		{"year": int64(2020), "note": "ok"},
	})
	if err != nil {
		t.Fatalf("failed to build table: %v", err)
	}

	if _, err := NewWriter(store).Write(ctx, table, "year", "sales", ModeOverwrite); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := NewReader(store).Read(ctx, "sales")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	counts := map[interface{}]int{}
	nulls := 0
	for _, row := range got.Rows {
		if row["note"] == nil {
			nulls++
			continue
		}
		counts[row["note"]]++
	}
	if counts[""] != 1 {
		t.Errorf("empty string did not round-trip: %v", got.Rows)
	}
	if counts[types.NullToken] != 1 {
		t.Errorf("literal null-token string did not round-trip: %v", got.Rows)
	}
	if nulls != 1 {
		t.Errorf("expected exactly 1 NULL note, got %d", nulls)
	}
}

func TestWriteRead_StringEdgePartitionValues(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	schema := types.NewSchema(
		types.ColumnDef{Name: "city", Type: types.TypeString},
		types.ColumnDef{Name: "price", Type: types.TypeFloat},
	)
	table, err := types.NewTable(schema, []types.Row{
		{"city": "", "price": 100.0},
		{"city": types.NullToken, "price": 200.0},
		{"city": nil, "price": 300.0},
	})
	if err != nil {
		t.Fatalf("failed to build table: %v", err)
	}

	if _, err := NewWriter(store).Write(ctx, table, "city", "sales", ModeOverwrite); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := NewReader(store).Read(ctx, "sales")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", got.NumRows())
	}

	byPrice := map[float64]interface{}{}
	for _, row := range got.Rows {
		byPrice[row["price"].(float64)] = row["city"]
	}
	if byPrice[100.0] != "" {
		t.Errorf("empty partition value came back as %#v", byPrice[100.0])
	}
	if byPrice[200.0] != types.NullToken {
		t.Errorf("literal null-token partition value came back as %#v", byPrice[200.0])
	}
	if byPrice[300.0] != nil {
		t.Errorf("NULL partition value came back as %#v", byPrice[300.0])
	}
}

func TestRead_ManifestIndexMismatch(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	table := buildSalesTable(t, []types.Row{salesRow(t, "2019-01-01", 2010, 100, 1)})
	if _, err := NewWriter(store).Write(ctx, table, "date_built", "sales", ModeOverwrite); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	data, err := store.GetObject(ctx, "sales/"+ManifestName)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("failed to decode manifest: %v", err)
	}
	m.PartitionIndex++
	mangled, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to re-encode manifest: %v", err)
	}
	if err := store.PutObject(ctx, "sales/"+ManifestName, mangled); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	_, err = NewReader(store).Read(ctx, "sales")
	if qerrors.GetCode(err) != qerrors.CodeCorruptBlob {
		t.Errorf("got %v, want CORRUPT_BLOB for inconsistent partition index", err)
	}
}

func TestWrite_IgnoresSiblingDestinations(t *testing.T) {
	// A store with S3-style key semantics: prefixes match raw key text,
	// not directory boundaries.
	ctx := context.Background()
	store := newKeyPrefixStore()
	w := NewWriter(store)

	backup := buildSalesTable(t, []types.Row{salesRow(t, "2019-01-01", 1999, 100, 1)})
	if _, err := w.Write(ctx, backup, "date_built", "sales_backup", ModeOverwrite); err != nil {
		t.Fatalf("backup write failed: %v", err)
	}

	// Writing to "sales" must neither see nor delete "sales_backup".
	table := buildSalesTable(t, []types.Row{salesRow(t, "2019-01-01", 2020, 200, 2)})
	if _, err := w.Write(ctx, table, "date_built", "sales", ModeErrorIfExists); err != nil {
		t.Fatalf("write treated a sibling as an existing dataset: %v", err)
	}
	if _, err := w.Write(ctx, table, "date_built", "sales", ModeOverwrite); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	got, err := NewReader(store).Read(ctx, "sales_backup")
	if err != nil {
		t.Fatalf("sibling dataset was damaged: %v", err)
	}
	if got.NumRows() != 1 || got.Rows[0]["date_built"] != int64(1999) {
		t.Errorf("sibling dataset rows changed: %v", got.Rows)
	}
}

func TestReadFiltered_PrunesPartitions(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	table := buildSalesTable(t, []types.Row{
		salesRow(t, "2019-01-01", 2010, 100, 1),
		salesRow(t, "2019-01-02", 2015, 200, 2),
		salesRow(t, "2019-01-03", 2020, 300, 3),
	})
	if _, err := NewWriter(store).Write(ctx, table, "date_built", "sales", ModeOverwrite); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := NewReader(store).ReadFiltered(ctx, "sales", []Predicate{
		{Column: "date_built", Value: int64(2015)},
	})
	if err != nil {
		t.Fatalf("filtered read failed: %v", err)
	}

	if got.NumRows() != 1 || got.Rows[0]["date_built"] != int64(2015) {
		t.Errorf("partition pruning returned wrong rows: %v", got.Rows)
	}
}

func TestReadFiltered_BloomPrunesBlobs(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	table := buildSalesTable(t, []types.Row{
		salesRow(t, "2019-01-01", 2010, 100, 1),
		salesRow(t, "2019-01-02", 2015, 200, 2),
	})
	if _, err := NewWriter(store).Write(ctx, table, "date_built", "sales", ModeOverwrite); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// bedrooms=1 exists only in the 2010 partition. The bloom sidecar may
	// admit false positives, so the result is a superset of matching rows,
	// but every truly matching row must survive.
	got, err := NewReader(store).ReadFiltered(ctx, "sales", []Predicate{
		{Column: "bedrooms", Value: int64(1)},
	})
	if err != nil {
		t.Fatalf("filtered read failed: %v", err)
	}

	found := false
	for _, row := range got.Rows {
		if row["bedrooms"] == int64(1) {
			found = true
		}
	}
	if !found {
		t.Error("bloom pruning dropped a matching row")
	}
}
