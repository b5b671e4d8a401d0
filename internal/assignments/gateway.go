package assignments

import (
	"context"

	"github.com/google/uuid"
)

// AssignmentRecord is a durable linkage row between one text and one region
// within one document.
//
// TextID is the primary join key. Title and Content are carried alongside it
// for display and for reconciling rows written before texts had durable ids,
// which are joined by exact (title, content) match instead.
type AssignmentRecord struct {
	DocumentID uuid.UUID
	RegionID   uuid.UUID
	TextID     uuid.UUID
	Title      string
	Content    string
}

// Gateway is the persistence boundary for document texts and
// text-to-region assignments, scoped per actor.
type Gateway interface {
	// LoadTexts returns a document's texts ordered by creation time
	// ascending. Pages are corrected to be at least 1.
	LoadTexts(ctx context.Context, actor, documentID uuid.UUID) ([]TitledText, error)

	// SaveTexts replaces the full text set for (actor, document): existing
	// rows are deleted and the given set inserted. Texts missing a title or
	// content are filtered out (counted and logged, never an error), and
	// pages below 1 are corrected to 1 before writing.
	SaveTexts(ctx context.Context, actor, documentID uuid.UUID, texts []TitledText) error

	// DeleteText removes a single text row by its durable id.
	DeleteText(ctx context.Context, actor, documentID, textID uuid.UUID) error

	// DeleteAllTexts removes all text rows for one document, or for the
	// whole actor when documentID is nil.
	DeleteAllTexts(ctx context.Context, actor uuid.UUID, documentID *uuid.UUID) error

	// LoadAssignments returns every assignment row for the actor, across
	// all documents.
	LoadAssignments(ctx context.Context, actor uuid.UUID) ([]AssignmentRecord, error)

	// SaveAssignment upserts the linkage row keyed by
	// (actor, document, region). Last write wins.
	SaveAssignment(ctx context.Context, actor uuid.UUID, rec AssignmentRecord) error

	// DeleteAssignment removes the linkage row for (actor, document, region).
	// Deleting a missing row is not an error.
	DeleteAssignment(ctx context.Context, actor, documentID, regionID uuid.UUID) error

	// DeleteAllAssignments removes all linkage rows for one document, or for
	// the whole actor when documentID is nil.
	DeleteAllAssignments(ctx context.Context, actor uuid.UUID, documentID *uuid.UUID) error
}
