package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get when nothing is stored at a path
var ErrNotFound = errors.New("object not found")

// Adapter defines the interface for raw book storage backends
type Adapter interface {
	// Put stores data at the given path, replacing any previous object
	Put(ctx context.Context, path string, data io.Reader) error

	// Get retrieves data from the given path. Missing objects yield ErrNotFound.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes data at the given path. Missing objects are not an error.
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)

	// List returns paths matching the given prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Close cleans up any resources
	Close() error
}

// ReadAll fetches a whole object
func ReadAll(ctx context.Context, a Adapter, path string) ([]byte, error) {
	rc, err := a.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
