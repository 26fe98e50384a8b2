// Package core defines the storage contract for archived projection run
// artifacts.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"path"
	"strings"
	"time"
)

// Driver identifies a concrete archive backend implementation.
type Driver string

const (
	// DriverFilesystem keeps artifacts under a local directory.
	DriverFilesystem Driver = "fs"
	// DriverS3 writes artifacts to an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps artifacts in process memory.
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string // small, flat key-value pairs
}

// Info describes a stored artifact.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is a write-once object store keyed by slash separated paths.
type Store interface {
	// Put stores a new object. It fails with ErrExists when key is taken.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns the object and its metadata, or ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete reports whether the object existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns objects under prefix ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

var (
	// ErrExists is returned by Put when the key is already stored.
	ErrExists = errors.New("archive: object already exists")
	// ErrNotFound is returned when a key is not stored.
	ErrNotFound = errors.New("archive: object not found")
	// ErrInvalidKey is returned for empty, absolute or escaping keys.
	ErrInvalidKey = errors.New("archive: invalid key")
)

// CleanKey validates key and returns its normalised form.
func CleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	key = strings.ReplaceAll(key, "\\", "/")
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q leaves the archive", ErrInvalidKey, key)
		}
	}
	return path.Clean(key), nil
}

// CloneMetadata copies m; nil stays nil.
func CloneMetadata(m map[string]string) map[string]string {
	return maps.Clone(m)
}
