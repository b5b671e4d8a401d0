// Package documents manages uploaded source documents: metadata rows in the
// database paired with the original file in blob storage. Page counts are
// extracted from PDF uploads so the annotation surface knows its bounds.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// Document is a stored source document with metadata.
type Document struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	PageCount   *int      `json:"page_count,omitempty"`
	StorageKey  string    `json:"storage_key"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCommand contains the data required to create a document.
// Data holds the raw file bytes to be stored.
type CreateCommand struct {
	Name        string
	Filename    string
	ContentType string
	SizeBytes   int64
	PageCount   *int
	Data        []byte
}

// UpdateCommand contains the fields that can be modified on an existing
// document. Only the display name can change; the stored file is immutable.
type UpdateCommand struct {
	Name string
}
