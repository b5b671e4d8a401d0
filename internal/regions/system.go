package regions

import (
	"context"

	"github.com/google/uuid"
)

// DescriptionUpdater is the capability handed to the assignment engine:
// it requests that a region's displayed description change without giving
// the engine write access to region records themselves.
type DescriptionUpdater interface {
	UpdateDescription(ctx context.Context, id uuid.UUID, description *string) error
}

// System defines the region management operations.
type System interface {
	DescriptionUpdater

	ForDocument(ctx context.Context, documentID uuid.UUID) ([]Region, error)
	ForPage(ctx context.Context, documentID uuid.UUID, page int) ([]Region, error)
	Find(ctx context.Context, id uuid.UUID) (*Region, error)
	Create(ctx context.Context, cmd CreateCommand) (*Region, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Region, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
