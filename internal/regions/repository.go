package regions

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/annostudio/annostudio/pkg/query"
	"github.com/annostudio/annostudio/pkg/repository"
	"github.com/google/uuid"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a region repository.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "regions"),
	}
}

func (r *repo) ForDocument(ctx context.Context, documentID uuid.UUID) ([]Region, error) {
	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("DocumentId", documentID).
		Build()

	return repository.QueryMany(ctx, r.db, q, args, scanRegion)
}

func (r *repo) ForPage(ctx context.Context, documentID uuid.UUID, page int) ([]Region, error) {
	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("DocumentId", documentID).
		WhereEquals("Page", page).
		Build()

	return repository.QueryMany(ctx, r.db, q, args, scanRegion)
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Region, error) {
	q, args := query.
		NewBuilder(projection, defaultSort).
		BuildSingle("Id", id)

	region, err := repository.QueryOne(ctx, r.db, q, args, scanRegion)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &region, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Region, error) {
	if !cmd.Type.Valid() {
		return nil, ErrInvalidType
	}
	if cmd.Page < 1 {
		return nil, ErrInvalidPage
	}

	q := `INSERT INTO regions(id, document_id, page, x, y, width, height, type, name)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, document_id, page, x, y, width, height, type, name, description, created_at, updated_at`

	region, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Region, error) {
		return repository.QueryOne(ctx, tx, q, []any{
			uuid.New(), cmd.DocumentID, cmd.Page, cmd.X, cmd.Y, cmd.Width, cmd.Height, cmd.Type, cmd.Name,
		}, scanRegion)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("region created", "id", region.ID, "document", region.DocumentID, "name", region.Name)
	return &region, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Region, error) {
	if cmd.Page < 1 {
		return nil, ErrInvalidPage
	}

	q := `UPDATE regions SET page = $1, x = $2, y = $3, width = $4, height = $5, name = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING id, document_id, page, x, y, width, height, type, name, description, created_at, updated_at`

	region, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Region, error) {
		return repository.QueryOne(ctx, tx, q, []any{
			cmd.Page, cmd.X, cmd.Y, cmd.Width, cmd.Height, cmd.Name, id,
		}, scanRegion)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	return &region, nil
}

func (r *repo) UpdateDescription(ctx context.Context, id uuid.UUID, description *string) error {
	q := `UPDATE regions SET description = $1, updated_at = NOW() WHERE id = $2`

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, q, description, id)
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	q := `DELETE FROM regions WHERE id = $1`

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, q, id)
	})

	if err != nil {
		if repository.MapError(err, ErrNotFound, ErrDuplicate) == ErrNotFound {
			return nil
		}
		return err
	}

	r.logger.Info("region deleted", "id", id)
	return nil
}
