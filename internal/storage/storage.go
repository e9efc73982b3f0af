// Package storage provides scratch space for uploads and videos being
// decoded, and optional S3 persistence for generated thumbnails.
package storage

import (
	"context"
	"io"
)

// Storage defines temporary file handling and object persistence.
type Storage interface {
	// SaveTemp writes data to a new temporary file and returns its path.
	// The name parameter is used as a prefix for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// LoadTemp opens a temporary file for reading.
	// The caller is responsible for closing the returned ReadCloser.
	LoadTemp(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error

	// Upload stores data under key and returns its public URL.
	// Returns ErrS3NotConfigured if object storage is not configured.
	Upload(ctx context.Context, key, contentType string, data io.Reader) (url string, err error)

	// Remove deletes the object stored under key.
	// Returns ErrS3NotConfigured if object storage is not configured.
	Remove(ctx context.Context, key string) error
}
