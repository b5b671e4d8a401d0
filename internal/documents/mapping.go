package documents

import (
	"github.com/annostudio/annostudio/pkg/query"
	"github.com/annostudio/annostudio/pkg/repository"
)

var projection = query.NewProjectionMap("public", "documents", "d").
	Project("id", "Id").
	Project("name", "Name").
	Project("filename", "Filename").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("storage_key", "StorageKey").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "CreatedAt", Descending: true}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.Name,
		&d.Filename,
		&d.ContentType,
		&d.SizeBytes,
		&d.PageCount,
		&d.StorageKey,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}
