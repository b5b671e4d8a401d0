package assignments

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/annostudio/annostudio/pkg/repository"
	"github.com/google/uuid"
)

type postgresGateway struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresGateway creates the Postgres-backed persistence gateway for
// texts and assignments.
func NewPostgresGateway(db *sql.DB, logger *slog.Logger) Gateway {
	return &postgresGateway{
		db:     db,
		logger: logger.With("system", "assignments", "gateway", "postgres"),
	}
}

func (g *postgresGateway) LoadTexts(ctx context.Context, actor, documentID uuid.UUID) ([]TitledText, error) {
	q := `SELECT id, title, content, page FROM document_texts
		WHERE user_id = $1 AND document_id = $2
		ORDER BY created_at ASC`

	texts, err := repository.QueryMany(ctx, g.db, q, []any{actor, documentID}, scanText)
	if err != nil {
		return nil, fmt.Errorf("load texts: %w", err)
	}

	for i := range texts {
		if texts[i].Page < 1 {
			texts[i].Page = 1
		}
	}
	return texts, nil
}

func (g *postgresGateway) SaveTexts(ctx context.Context, actor, documentID uuid.UUID, texts []TitledText) error {
	valid := make([]TitledText, 0, len(texts))
	skipped := 0
	for _, t := range texts {
		if t.Title == "" || t.Content == "" {
			skipped++
			continue
		}
		if t.Page < 1 {
			t.Page = 1
		}
		valid = append(valid, t)
	}
	if skipped > 0 {
		g.logger.Warn("skipping invalid texts on save", "document", documentID, "skipped", skipped)
	}

	_, err := repository.WithTx(ctx, g.db, func(tx *sql.Tx) (struct{}, error) {
		del := `DELETE FROM document_texts WHERE user_id = $1 AND document_id = $2`
		if _, err := tx.ExecContext(ctx, del, actor, documentID); err != nil {
			return struct{}{}, err
		}

		ins := `INSERT INTO document_texts(id, user_id, document_id, title, content, page)
			VALUES($1, $2, $3, $4, $5, $6)`
		for _, t := range valid {
			id := t.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			if _, err := tx.ExecContext(ctx, ins, id, actor, documentID, t.Title, t.Content, t.Page); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})

	if err != nil {
		return fmt.Errorf("save texts: %w", err)
	}

	g.logger.Info("texts saved", "document", documentID, "count", len(valid))
	return nil
}

func (g *postgresGateway) DeleteText(ctx context.Context, actor, documentID, textID uuid.UUID) error {
	q := `DELETE FROM document_texts WHERE user_id = $1 AND document_id = $2 AND id = $3`

	if _, err := g.db.ExecContext(ctx, q, actor, documentID, textID); err != nil {
		return fmt.Errorf("delete text: %w", err)
	}
	return nil
}

func (g *postgresGateway) DeleteAllTexts(ctx context.Context, actor uuid.UUID, documentID *uuid.UUID) error {
	if documentID != nil {
		q := `DELETE FROM document_texts WHERE user_id = $1 AND document_id = $2`
		if _, err := g.db.ExecContext(ctx, q, actor, *documentID); err != nil {
			return fmt.Errorf("delete texts: %w", err)
		}
		return nil
	}

	q := `DELETE FROM document_texts WHERE user_id = $1`
	if _, err := g.db.ExecContext(ctx, q, actor); err != nil {
		return fmt.Errorf("delete texts: %w", err)
	}
	return nil
}

func (g *postgresGateway) LoadAssignments(ctx context.Context, actor uuid.UUID) ([]AssignmentRecord, error) {
	q := `SELECT document_id, region_id, text_id, text_title, text_content FROM text_assignments
		WHERE user_id = $1`

	records, err := repository.QueryMany(ctx, g.db, q, []any{actor}, scanAssignment)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	return records, nil
}

func (g *postgresGateway) SaveAssignment(ctx context.Context, actor uuid.UUID, rec AssignmentRecord) error {
	q := `INSERT INTO text_assignments(id, user_id, document_id, region_id, text_id, text_title, text_content)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, document_id, region_id)
		DO UPDATE SET text_id = EXCLUDED.text_id,
			text_title = EXCLUDED.text_title,
			text_content = EXCLUDED.text_content,
			updated_at = NOW()`

	var textID any
	if rec.TextID != uuid.Nil {
		textID = rec.TextID
	}

	if _, err := g.db.ExecContext(ctx, q, uuid.New(), actor, rec.DocumentID, rec.RegionID, textID, rec.Title, rec.Content); err != nil {
		return fmt.Errorf("save assignment: %w", err)
	}
	return nil
}

func (g *postgresGateway) DeleteAssignment(ctx context.Context, actor, documentID, regionID uuid.UUID) error {
	q := `DELETE FROM text_assignments WHERE user_id = $1 AND document_id = $2 AND region_id = $3`

	if _, err := g.db.ExecContext(ctx, q, actor, documentID, regionID); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}

func (g *postgresGateway) DeleteAllAssignments(ctx context.Context, actor uuid.UUID, documentID *uuid.UUID) error {
	if documentID != nil {
		q := `DELETE FROM text_assignments WHERE user_id = $1 AND document_id = $2`
		if _, err := g.db.ExecContext(ctx, q, actor, *documentID); err != nil {
			return fmt.Errorf("delete assignments: %w", err)
		}
		return nil
	}

	q := `DELETE FROM text_assignments WHERE user_id = $1`
	if _, err := g.db.ExecContext(ctx, q, actor); err != nil {
		return fmt.Errorf("delete assignments: %w", err)
	}
	return nil
}

func scanText(s repository.Scanner) (TitledText, error) {
	var t TitledText
	err := s.Scan(&t.ID, &t.Title, &t.Content, &t.Page)
	return t, err
}

func scanAssignment(s repository.Scanner) (AssignmentRecord, error) {
	var rec AssignmentRecord
	var textID sql.Null[uuid.UUID]

	err := s.Scan(&rec.DocumentID, &rec.RegionID, &textID, &rec.Title, &rec.Content)
	if err != nil {
		return rec, err
	}

	if textID.Valid {
		rec.TextID = textID.V
	}
	return rec, nil
}
