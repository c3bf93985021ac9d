package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	qerrors "github.com/arkilian/quarry/internal/errors"
	"github.com/arkilian/quarry/internal/storage"
	"github.com/arkilian/quarry/pkg/types"
)

// ManifestName is the object written at the dataset root.
const ManifestName = "dataset.json"

// Manifest records what a destination holds: the original pre-partition
// schema (in order), the partition column and its original position, and
// the write that produced it. The reader needs it to restore schema order.
type Manifest struct {
	WriteID         string       `json:"write_id"`
	Schema          types.Schema `json:"schema"`
	PartitionColumn string       `json:"partition_column"`
	PartitionIndex  int          `json:"partition_index"`
	CreatedAt       time.Time    `json:"created_at"`
}

func writeManifest(ctx context.Context, store storage.ObjectStorage, destination string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return qerrors.NewInternalError("failed to encode dataset manifest", err)
	}
	if err := store.PutObject(ctx, destination+"/"+ManifestName, data); err != nil {
		return qerrors.NewIOError("failed to write dataset manifest", err)
	}
	return nil
}

func readManifest(ctx context.Context, store storage.ObjectStorage, destination string) (Manifest, error) {
	var m Manifest

	data, err := store.GetObject(ctx, destination+"/"+ManifestName)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return m, qerrors.New(qerrors.ErrCategoryDataset, qerrors.CodeDatasetNotFound,
				"no dataset at destination "+destination)
		}
		return m, qerrors.NewIOError("failed to read dataset manifest", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, qerrors.Wrap(qerrors.ErrCategoryDataset, qerrors.CodeCorruptBlob,
			"malformed dataset manifest", err)
	}
	return m, nil
}
