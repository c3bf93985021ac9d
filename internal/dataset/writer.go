package dataset

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/arkilian/quarry/internal/bloom"
	qerrors "github.com/arkilian/quarry/internal/errors"
	"github.com/arkilian/quarry/internal/storage"
	"github.com/arkilian/quarry/pkg/types"
)

// WriteMode controls behavior when the destination already holds a dataset.
type WriteMode string

const (
	// ModeOverwrite deletes any pre-existing content at the destination.
	ModeOverwrite WriteMode = "overwrite"

	// ModeErrorIfExists fails when the destination is non-empty.
	ModeErrorIfExists WriteMode = "error_if_exists"
)

// Writer persists tables as partitioned columnar datasets.
type Writer struct {
	store storage.ObjectStorage
}

// NewWriter creates a dataset writer over the given storage backend.
func NewWriter(store storage.ObjectStorage) *Writer {
	return &Writer{store: store}
}

// PartitionInfo describes one written partition blob.
type PartitionInfo struct {
	Value      string // canonical partition value, as encoded in the path
	ObjectPath string
	RowCount   int64
	SizeBytes  int64
}

// WriteResult summarizes one dataset write.
type WriteResult struct {
	WriteID    string
	Partitions []PartitionInfo
	RowCount   int64
}

// Write groups the table's rows by the distinct values of partitionColumn
// and writes one columnar blob per value under
// destination/<partitionColumn>=<value>/, with a bloom sidecar per blob.
// The partition column is removed from blob bodies; its value is carried by
// the path alone. An empty table produces an empty dataset (manifest only).
func (w *Writer) Write(ctx context.Context, table *types.Table, partitionColumn, destination string, mode WriteMode) (*WriteResult, error) {
	pcIndex := table.Schema.Index(partitionColumn)
	if pcIndex < 0 {
		return nil, qerrors.NewColumnNotFound(partitionColumn)
	}

	// The prefix is slash-terminated so a destination never matches a
	// sibling that shares its name as a prefix.
	existing, err := w.store.ListObjects(ctx, destination+"/")
	if err != nil {
		return nil, qerrors.NewIOError("failed to inspect destination "+destination, err)
	}
	if len(existing) > 0 {
		if mode != ModeOverwrite {
			return nil, qerrors.NewIOError("destination "+destination+" already exists", nil)
		}
		if err := w.store.DeletePrefix(ctx, destination+"/"); err != nil {
			return nil, qerrors.NewIOError("failed to clear destination "+destination, err)
		}
	}

	// Group rows by partition value, preserving within-group row order and
	// first-seen value order.
	groups := make(map[string][]types.Row)
	var valueOrder []string
	for _, row := range table.Rows {
		key := types.Format(row[partitionColumn])
		if _, ok := groups[key]; !ok {
			valueOrder = append(valueOrder, key)
		}
		groups[key] = append(groups[key], row)
	}

	blobSchema := table.Schema.Without(partitionColumn)

	result := &WriteResult{
		WriteID:  uuid.NewString(),
		RowCount: int64(table.NumRows()),
	}

	for _, value := range valueOrder {
		rows := groups[value]

		blob, err := EncodeBlob(blobSchema, stripColumn(rows, partitionColumn))
		if err != nil {
			return nil, err
		}

		dir := destination + "/" + partitionColumn + "=" + url.PathEscape(value)
		blobPath := dir + "/part-" + uuid.NewString() + ".qcb"

		if err := w.store.PutObject(ctx, blobPath, blob); err != nil {
			return nil, qerrors.NewIOError("failed to write partition blob "+blobPath, err)
		}
		if err := w.store.PutObject(ctx, blobPath+".bloom", buildFilter(blobSchema, rows).Marshal()); err != nil {
			return nil, qerrors.NewIOError("failed to write bloom sidecar for "+blobPath, err)
		}

		result.Partitions = append(result.Partitions, PartitionInfo{
			Value:      value,
			ObjectPath: blobPath,
			RowCount:   int64(len(rows)),
			SizeBytes:  int64(len(blob)),
		})
	}

	manifest := Manifest{
		WriteID:         result.WriteID,
		Schema:          table.Schema,
		PartitionColumn: partitionColumn,
		PartitionIndex:  pcIndex,
		CreatedAt:       time.Now().UTC(),
	}
	if err := writeManifest(ctx, w.store, destination, manifest); err != nil {
		return nil, err
	}

	return result, nil
}

// stripColumn returns copies of the rows without the named column.
func stripColumn(rows []types.Row, column string) []types.Row {
	out := make([]types.Row, len(rows))
	for i, row := range rows {
		cp := row.Clone()
		delete(cp, column)
		out[i] = cp
	}
	return out
}

// buildFilter builds a bloom filter over every column value in the blob so
// reads can skip blobs that cannot match an equality predicate.
func buildFilter(schema types.Schema, rows []types.Row) *bloom.ValueFilter {
	f := bloom.NewWithEstimates(len(rows)*len(schema.Columns)+1, 0.01)
	for _, row := range rows {
		for _, col := range schema.Columns {
			if v := row[col.Name]; v != nil {
				f.AddValue(col.Name, types.Format(v))
			}
		}
	}
	return f
}
