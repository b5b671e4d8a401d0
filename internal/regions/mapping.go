package regions

import (
	"github.com/annostudio/annostudio/pkg/query"
	"github.com/annostudio/annostudio/pkg/repository"
)

var projection = query.NewProjectionMap("public", "regions", "r").
	Project("id", "Id").
	Project("document_id", "DocumentId").
	Project("page", "Page").
	Project("x", "X").
	Project("y", "Y").
	Project("width", "Width").
	Project("height", "Height").
	Project("type", "Type").
	Project("name", "Name").
	Project("description", "Description").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "Name"}

func scanRegion(s repository.Scanner) (Region, error) {
	var r Region
	err := s.Scan(
		&r.ID,
		&r.DocumentID,
		&r.Page,
		&r.X,
		&r.Y,
		&r.Width,
		&r.Height,
		&r.Type,
		&r.Name,
		&r.Description,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}
