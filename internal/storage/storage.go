// Package storage provides blob storage for uploaded document files.
package storage

import "context"

// System defines the storage operations interface for blob storage.
// Implementations handle the underlying storage mechanism (filesystem, cloud, etc.)
// while providing a consistent API for storing and retrieving binary data.
type System interface {
	// Store saves data at the specified key. If the key already exists,
	// its contents are overwritten. Parent directories are created as needed.
	// Returns ErrInvalidKey if the key is empty or contains path traversal.
	Store(ctx context.Context, key string, data []byte) error

	// Retrieve returns the data stored at the specified key.
	// Returns ErrNotFound if the key does not exist.
	Retrieve(ctx context.Context, key string) ([]byte, error)

	// Delete deletes the data at the specified key.
	// Returns nil if the key does not exist (idempotent).
	Delete(ctx context.Context, key string) error

	// Validate checks if a key exists and is accessible.
	Validate(ctx context.Context, key string) (bool, error)
}
