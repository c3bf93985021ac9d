package dataset

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/arkilian/quarry/internal/bloom"
	qerrors "github.com/arkilian/quarry/internal/errors"
	"github.com/arkilian/quarry/internal/storage"
	"github.com/arkilian/quarry/pkg/types"
)

// Reader reloads partitioned datasets into tables.
type Reader struct {
	store storage.ObjectStorage
}

// NewReader creates a dataset reader over the given storage backend.
func NewReader(store storage.ObjectStorage) *Reader {
	return &Reader{store: store}
}

// Predicate is an equality predicate used for read-time pruning. Pruning
// returns a superset of matching rows (bloom filters admit false
// positives); callers still apply their real filters after the read.
type Predicate struct {
	Column string
	Value  interface{}
}

// Read reloads the whole dataset: every partition directory is decoded,
// the partition column's value is reconstructed from the path, and the
// original schema order is restored. Order across partitions is
// unspecified; within a partition, write-time row order is preserved.
func (r *Reader) Read(ctx context.Context, destination string) (*types.Table, error) {
	return r.read(ctx, destination, nil)
}

// ReadFiltered reloads the dataset, skipping partition directories whose
// value contradicts a partition-column predicate and blobs whose bloom
// sidecar rules out an equality predicate on any other column.
func (r *Reader) ReadFiltered(ctx context.Context, destination string, predicates []Predicate) (*types.Table, error) {
	return r.read(ctx, destination, predicates)
}

func (r *Reader) read(ctx context.Context, destination string, predicates []Predicate) (*types.Table, error) {
	manifest, err := readManifest(ctx, r.store, destination)
	if err != nil {
		return nil, err
	}

	pcDef, ok := manifest.Schema.Column(manifest.PartitionColumn)
	if !ok {
		return nil, qerrors.New(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob,
			"manifest partition column missing from manifest schema")
	}
	blobSchema := manifest.Schema.Without(manifest.PartitionColumn)

	// Restore the partition column to its recorded position and check the
	// manifest against itself before trusting any blob.
	restored := blobSchema.Insert(pcDef, manifest.PartitionIndex)
	if !restored.Equal(manifest.Schema) {
		return nil, qerrors.New(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob,
			"manifest partition index does not match manifest schema")
	}

	objects, err := r.store.ListObjects(ctx, destination+"/")
	if err != nil {
		return nil, qerrors.NewIOError("failed to enumerate destination "+destination, err)
	}

	var rows []types.Row
	for _, obj := range objects {
		if !strings.HasSuffix(obj, ".qcb") {
			continue
		}

		value, err := partitionValueFromPath(obj, destination, manifest.PartitionColumn)
		if err != nil {
			return nil, err
		}

		if skip, err := r.pruned(ctx, obj, value, manifest.PartitionColumn, predicates); err != nil {
			return nil, err
		} else if skip {
			continue
		}

		data, err := r.store.GetObject(ctx, obj)
		if err != nil {
			return nil, qerrors.NewIOError("failed to read partition blob "+obj, err)
		}

		schema, blobRows, err := DecodeBlob(data)
		if err != nil {
			return nil, err
		}
		if !schema.Equal(blobSchema) {
			return nil, qerrors.New(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob,
				"blob schema does not match dataset manifest: "+obj)
		}

		pcValue, err := types.Parse(value, pcDef.Type)
		if err != nil {
			return nil, qerrors.Wrap(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob,
				"bad partition value in path "+obj, err)
		}

		for _, row := range blobRows {
			row[manifest.PartitionColumn] = pcValue
			rows = append(rows, row)
		}
	}

	return types.NewTable(restored, rows)
}

// pruned decides whether a blob can be skipped under the predicates.
func (r *Reader) pruned(ctx context.Context, blobPath, value, partitionColumn string, predicates []Predicate) (bool, error) {
	var filter *bloom.ValueFilter

	for _, p := range predicates {
		if p.Column == partitionColumn {
			if types.Format(p.Value) != value {
				return true, nil
			}
			continue
		}

		if filter == nil {
			data, err := r.store.GetObject(ctx, blobPath+".bloom")
			if errors.Is(err, storage.ErrObjectNotFound) {
				return false, nil // no sidecar, cannot prune
			}
			if err != nil {
				return false, qerrors.NewIOError("failed to read bloom sidecar for "+blobPath, err)
			}
			filter, err = bloom.Unmarshal(data)
			if err != nil {
				return false, err
			}
		}

		if !filter.MightContain(p.Column, types.Format(p.Value)) {
			return true, nil
		}
	}

	return false, nil
}

// partitionValueFromPath extracts the canonical partition value from
// destination/<partitionColumn>=<escaped value>/<blob>.
func partitionValueFromPath(objectPath, destination, partitionColumn string) (string, error) {
	rel := strings.TrimPrefix(objectPath, destination+"/")
	dir, _, ok := strings.Cut(rel, "/")
	if !ok {
		return "", qerrors.New(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob,
			"blob outside a partition directory: "+objectPath)
	}

	prefix := partitionColumn + "="
	if !strings.HasPrefix(dir, prefix) {
		return "", qerrors.New(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob,
			"unexpected partition directory "+dir)
	}

	value, err := url.PathUnescape(strings.TrimPrefix(dir, prefix))
	if err != nil {
		return "", qerrors.Wrap(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob,
			"undecodable partition value in "+dir, err)
	}
	return value, nil
}
