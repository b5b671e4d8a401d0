// Package regions manages the spatial regions drawn over rendered document
// pages. Regions are owned by the hosting page; the assignment engine only
// reads their id, page, and name, and requests description updates through
// the DescriptionUpdater capability.
package regions

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies the shape of a region.
type Type string

// Region shape constants.
const (
	TypeArea    Type = "area"
	TypePolygon Type = "polygon"
	TypeCircle  Type = "circle"
)

// Valid reports whether the type is a known region shape.
func (t Type) Valid() bool {
	switch t {
	case TypeArea, TypePolygon, TypeCircle:
		return true
	}
	return false
}

// Region is a spatially bounded, page-scoped area on a document page that
// can receive an assigned text description.
//
// Name follows the "<page>_<index>" convention set by the hosting page;
// Description mirrors the assigned text content for display.
type Region struct {
	ID          uuid.UUID `json:"id"`
	DocumentID  uuid.UUID `json:"document_id"`
	Page        int       `json:"page"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	Type        Type      `json:"type"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCommand contains the data required to create a region.
type CreateCommand struct {
	DocumentID uuid.UUID `json:"document_id"`
	Page       int       `json:"page"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Width      float64   `json:"width"`
	Height     float64   `json:"height"`
	Type       Type      `json:"type"`
	Name       string    `json:"name"`
}

// UpdateCommand contains the fields that can be modified on an existing region.
type UpdateCommand struct {
	Page   int     `json:"page"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Name   string  `json:"name"`
}
