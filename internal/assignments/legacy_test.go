package assignments

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func writeLegacySnapshot(t *testing.T, dir string, actor uuid.UUID, documentID uuid.UUID, regionID *uuid.UUID) string {
	t.Helper()

	path := filepath.Join(dir, actor.String()+".db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer db.Close()

	schema := `CREATE TABLE document_texts (
		document_id TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		page INTEGER NOT NULL,
		assigned_region_id TEXT
	)`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create snapshot schema: %v", err)
	}

	var region any
	if regionID != nil {
		region = regionID.String()
	}
	_, err = db.Exec(
		`INSERT INTO document_texts (document_id, title, content, page, assigned_region_id) VALUES (?, ?, ?, ?, ?)`,
		documentID.String(), "Intro", "welcome", 1, region,
	)
	if err != nil {
		t.Fatalf("insert snapshot row: %v", err)
	}

	return path
}

func TestMigrateLegacySnapshot(t *testing.T) {
	dir := t.TempDir()
	actor := uuid.New()
	documentID := uuid.New()
	regionID := uuid.New()

	path := writeLegacySnapshot(t, dir, actor, documentID, &regionID)

	gateway := newFakeGateway()
	err := MigrateLegacySnapshot(context.Background(), dir, actor, gateway, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("MigrateLegacySnapshot() error = %v", err)
	}

	texts := gateway.texts[documentID]
	if len(texts) != 1 {
		t.Fatalf("imported texts = %d, want 1", len(texts))
	}
	if texts[0].Title != "Intro" || texts[0].Page != 1 {
		t.Errorf("imported text = %+v, want Intro on page 1", texts[0])
	}

	rec, ok := gateway.assignments[regionID]
	if !ok {
		t.Fatal("embedded assignment not split into a record")
	}
	if rec.TextID != texts[0].ID || rec.DocumentID != documentID {
		t.Errorf("assignment record = %+v, want text %v in document %v", rec, texts[0].ID, documentID)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("snapshot file not removed after import")
	}
}

func TestMigrateLegacySnapshot_UnassignedText(t *testing.T) {
	dir := t.TempDir()
	actor := uuid.New()
	documentID := uuid.New()

	writeLegacySnapshot(t, dir, actor, documentID, nil)

	gateway := newFakeGateway()
	err := MigrateLegacySnapshot(context.Background(), dir, actor, gateway, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("MigrateLegacySnapshot() error = %v", err)
	}

	if len(gateway.texts[documentID]) != 1 {
		t.Fatalf("imported texts = %d, want 1", len(gateway.texts[documentID]))
	}
	if len(gateway.assignments) != 0 {
		t.Errorf("assignments = %d, want 0 for unassigned text", len(gateway.assignments))
	}
}

func TestMigrateLegacySnapshot_PreservesRemoteTexts(t *testing.T) {
	dir := t.TempDir()
	actor := uuid.New()
	documentID := uuid.New()
	regionID := uuid.New()

	writeLegacySnapshot(t, dir, actor, documentID, &regionID)

	gateway := newFakeGateway()
	remote := TitledText{ID: uuid.New(), Title: "RemoteOnly", Content: "kept", Page: 2}
	gateway.texts[documentID] = []TitledText{remote}

	err := MigrateLegacySnapshot(context.Background(), dir, actor, gateway, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("MigrateLegacySnapshot() error = %v", err)
	}

	texts := gateway.texts[documentID]
	if len(texts) != 2 {
		t.Fatalf("remote texts after migration = %d, want 2", len(texts))
	}

	titles := map[string]bool{}
	for _, text := range texts {
		titles[text.Title] = true
	}
	if !titles["RemoteOnly"] {
		t.Error("remote-only text deleted by migration, want it preserved")
	}
	if !titles["Intro"] {
		t.Error("snapshot text not imported alongside remote texts")
	}
}

func TestMigrateLegacySnapshot_SkipsAssignmentForInvalidText(t *testing.T) {
	dir := t.TempDir()
	actor := uuid.New()
	documentID := uuid.New()
	regionID := uuid.New()

	path := filepath.Join(dir, actor.String()+".db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}

	schema := `CREATE TABLE document_texts (
		document_id TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		page INTEGER NOT NULL,
		assigned_region_id TEXT
	)`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create snapshot schema: %v", err)
	}

	// content-less row with an embedded assignment: the text never reaches
	// the remote store, so no linkage row may be written for it
	_, err = db.Exec(
		`INSERT INTO document_texts (document_id, title, content, page, assigned_region_id) VALUES (?, ?, ?, ?, ?)`,
		documentID.String(), "Orphan", "", 1, regionID.String(),
	)
	if err != nil {
		t.Fatalf("insert snapshot row: %v", err)
	}
	db.Close()

	gateway := newFakeGateway()
	err = MigrateLegacySnapshot(context.Background(), dir, actor, gateway, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("MigrateLegacySnapshot() error = %v", err)
	}

	if _, ok := gateway.assignments[regionID]; ok {
		t.Error("assignment written for a text the save filters out, want it skipped")
	}
}

func TestMigrateLegacySnapshot_MissingIsNoop(t *testing.T) {
	gateway := newFakeGateway()
	err := MigrateLegacySnapshot(context.Background(), t.TempDir(), uuid.New(), gateway, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("MigrateLegacySnapshot() error = %v, want nil for missing snapshot", err)
	}
	if gateway.saveTextsCalls != 0 {
		t.Errorf("saveTextsCalls = %d, want 0", gateway.saveTextsCalls)
	}
}
