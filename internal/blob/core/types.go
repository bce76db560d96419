// Package core holds the blob storage contract: snapshots are read from a
// Store at load time and the blob result repository archives analysis
// results in one.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver names a Store implementation.
type Driver string

// Drivers selectable through configuration.
const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

var (
	// ErrNotFound is wrapped by every driver when a key does not exist.
	ErrNotFound = errors.New("blobstore: not found")
	// ErrExists is returned by Put when the key exists and Overwrite is unset.
	ErrExists = errors.New("blobstore: already exists")
)

// PutOptions tune a single write.
type PutOptions struct {
	ContentType string
	// Metadata is small flat user metadata stored next to the content.
	Metadata map[string]string
	// Overwrite replaces an existing blob instead of failing with ErrExists.
	Overwrite bool
}

// Info describes a stored blob. ETag is a driver specific content checksum.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is a flat key/value object store with slash separated keys.
type Store interface {
	// Put writes r under key. It fails with ErrExists unless opts.Overwrite.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get opens key for reading; the caller closes the body.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete reports whether key existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns the blobs whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}
