package assignments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// MigrateLegacySnapshot imports an actor's local sqlite snapshot from an
// earlier desktop build into the gateway, then removes the snapshot file.
// The old schema embedded the assigned region directly on each text row;
// the import splits that into text rows and separate assignment records.
//
// Snapshot rows are added to whatever the actor already has remotely:
// SaveTexts replaces the full remote set, so the existing remote texts are
// loaded first and the snapshot rows appended before saving. Rows missing
// a title or content never reach the remote store (SaveTexts filters them),
// so their embedded assignments are skipped to avoid orphan linkage rows.
//
// Absence of a snapshot is a no-op. The snapshot is deleted only after
// every document imported cleanly, so a failed import is retried on the
// next startup.
func MigrateLegacySnapshot(ctx context.Context, dir string, actor uuid.UUID, gateway Gateway, logger *slog.Logger) error {
	path := filepath.Join(dir, actor.String()+".db")

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat legacy snapshot: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open legacy snapshot: %w", err)
	}
	defer db.Close()

	docs, err := readLegacyTexts(ctx, db)
	if err != nil {
		return fmt.Errorf("read legacy snapshot: %w", err)
	}

	for documentID, texts := range docs {
		existing, err := gateway.LoadTexts(ctx, actor, documentID)
		if err != nil {
			return fmt.Errorf("load remote texts for %s: %w", documentID, err)
		}

		merged := make([]TitledText, 0, len(existing)+len(texts))
		merged = append(merged, existing...)
		merged = append(merged, texts...)

		if err := gateway.SaveTexts(ctx, actor, documentID, merged); err != nil {
			return fmt.Errorf("import legacy texts for %s: %w", documentID, err)
		}

		for _, t := range texts {
			if !t.Assigned() || t.Title == "" || t.Content == "" {
				continue
			}
			rec := AssignmentRecord{
				DocumentID: documentID,
				RegionID:   *t.AssignedRegionID,
				TextID:     t.ID,
				Title:      t.Title,
				Content:    t.Content,
			}
			if err := gateway.SaveAssignment(ctx, actor, rec); err != nil {
				return fmt.Errorf("import legacy assignment for %s: %w", documentID, err)
			}
		}
	}

	db.Close()
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove legacy snapshot: %w", err)
	}

	logger.Info("legacy snapshot migrated", "actor", actor, "documents", len(docs))
	return nil
}

func readLegacyTexts(ctx context.Context, db *sql.DB) (map[uuid.UUID][]TitledText, error) {
	q := `SELECT document_id, title, content, page, assigned_region_id FROM document_texts`

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make(map[uuid.UUID][]TitledText)
	for rows.Next() {
		var (
			docRaw    string
			t         TitledText
			regionRaw sql.NullString
		)
		if err := rows.Scan(&docRaw, &t.Title, &t.Content, &t.Page, &regionRaw); err != nil {
			return nil, err
		}

		documentID, err := uuid.Parse(docRaw)
		if err != nil {
			continue
		}
		if regionRaw.Valid {
			if regionID, err := uuid.Parse(regionRaw.String); err == nil {
				t.AssignedRegionID = &regionID
			}
		}

		t.ID = uuid.New()
		if t.Page < 1 {
			t.Page = 1
		}
		docs[documentID] = append(docs[documentID], t)
	}
	return docs, rows.Err()
}
