// Package assignments implements the region-to-text assignment engine:
// parsed text sections are held per document, linked to spatial regions,
// and durably persisted per actor through the Gateway.
package assignments

import "github.com/google/uuid"

// TitledText is a stored content unit: a titled section placed on a
// document page, optionally linked to one region.
type TitledText struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Content          string     `json:"content"`
	Page             int        `json:"page"`
	AssignedRegionID *uuid.UUID `json:"assigned_region_id,omitempty"`
}

// Assigned reports whether the text is linked to a region.
func (t *TitledText) Assigned() bool {
	return t.AssignedRegionID != nil
}

// AssignedTo reports whether the text is linked to the given region.
func (t *TitledText) AssignedTo(regionID uuid.UUID) bool {
	return t.AssignedRegionID != nil && *t.AssignedRegionID == regionID
}
