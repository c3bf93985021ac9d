// Package storage provides object storage abstractions for dataset blobs.
package storage

import (
	"context"
	"errors"
)

// Common errors for storage operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
)

// ObjectStorage abstracts the backend that holds partitioned dataset blobs.
// Implementations include S3 and local filesystem. Object paths use forward
// slashes regardless of backend.
type ObjectStorage interface {
	// PutObject writes data under objectPath, creating parents as needed
	// and replacing any existing object.
	PutObject(ctx context.Context, objectPath string, data []byte) error

	// GetObject reads the full content of an object.
	// Returns ErrObjectNotFound if the object does not exist.
	GetObject(ctx context.Context, objectPath string) ([]byte, error)

	// Delete removes a single object. Deleting a missing object is not an
	// error, matching S3 semantics.
	Delete(ctx context.Context, objectPath string) error

	// DeletePrefix removes every object under the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Exists checks whether an object exists.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// ListObjects returns all object paths under the given prefix.
	// A missing prefix yields an empty list, not an error.
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}
