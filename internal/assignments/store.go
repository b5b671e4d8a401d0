package assignments

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/annostudio/annostudio/internal/notify"
	"github.com/annostudio/annostudio/internal/regions"
	"github.com/annostudio/annostudio/internal/sections"
	"github.com/annostudio/annostudio/pkg/retry"
	"github.com/google/uuid"
)

type docState int

const (
	docUninitialized docState = iota
	docLoading
	docReady
)

type document struct {
	// mu serializes mutations and loads for one document, making them
	// single-flight. It is held across gateway calls; in-memory reads
	// and writes are guarded by Store.mu instead.
	mu sync.Mutex

	state docState
	texts []*TitledText

	// originalTexts captures each region's description as it was before
	// its first assignment. Undo clears descriptions rather than restoring
	// these, but the capture is kept for bookkeeping.
	originalTexts map[uuid.UUID]*string
}

// Store is the per-actor assignment engine. Each document moves through
// Uninitialized -> Loading -> Ready on first access; queries against a
// document that is not Ready return empty results rather than blocking.
//
// A Store is constructed for one authenticated actor and discarded when
// that actor signs out.
type Store struct {
	actor      uuid.UUID
	gateway    Gateway
	updater    regions.DescriptionUpdater
	notifier   notify.Notifier
	logger     *slog.Logger
	savePolicy retry.Policy

	mu   sync.RWMutex
	docs map[uuid.UUID]*document
}

// NewStore creates an assignment store for one actor. savePolicy bounds the
// retried region-linkage save; all other mutations are single-attempt.
func NewStore(
	actor uuid.UUID,
	gateway Gateway,
	updater regions.DescriptionUpdater,
	notifier notify.Notifier,
	logger *slog.Logger,
	savePolicy retry.Policy,
) *Store {
	return &Store{
		actor:      actor,
		gateway:    gateway,
		updater:    updater,
		notifier:   notifier,
		logger:     logger.With("system", "assignments", "actor", actor),
		savePolicy: savePolicy,
		docs:       make(map[uuid.UUID]*document),
	}
}

// Actor returns the actor this store is scoped to.
func (s *Store) Actor() uuid.UUID {
	return s.actor
}

// IsLoading reports whether the document's initial load is in flight.
func (s *Store) IsLoading(documentID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[documentID]
	return ok && d.state == docLoading
}

// IsReady reports whether the document's texts are loaded and queryable.
func (s *Store) IsReady(documentID uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[documentID]
	return ok && d.state == docReady
}

// Load brings a document to Ready. It is a no-op for documents that are
// already Ready; a failed remote load degrades to an empty Ready state
// with a logged warning rather than an error.
func (s *Store) Load(ctx context.Context, documentID uuid.UUID) {
	d := s.doc(documentID)

	d.mu.Lock()
	defer d.mu.Unlock()

	s.mu.Lock()
	if d.state == docReady {
		s.mu.Unlock()
		return
	}
	d.state = docLoading
	s.mu.Unlock()

	s.load(ctx, documentID, d)
}

// Refresh reloads one document from the gateway without disturbing the
// Ready state of any other document.
func (s *Store) Refresh(ctx context.Context, documentID uuid.UUID) {
	d := s.doc(documentID)

	d.mu.Lock()
	defer d.mu.Unlock()

	s.mu.Lock()
	d.state = docLoading
	s.mu.Unlock()

	s.load(ctx, documentID, d)
}

// load performs the gateway reads and transitions the document to Ready.
// The caller must hold d.mu.
func (s *Store) load(ctx context.Context, documentID uuid.UUID, d *document) {
	texts, err := s.gateway.LoadTexts(ctx, s.actor, documentID)
	if err != nil {
		s.logger.Warn("text load failed, starting empty", "document", documentID, "error", err)
		texts = nil
	}

	records, err := s.gateway.LoadAssignments(ctx, s.actor)
	if err != nil {
		s.logger.Warn("assignment load failed", "document", documentID, "error", err)
		records = nil
	}

	loaded := make([]*TitledText, len(texts))
	for i := range texts {
		t := texts[i]
		loaded[i] = &t
	}
	reconcile(loaded, records, documentID)

	s.mu.Lock()
	d.texts = loaded
	d.state = docReady
	s.mu.Unlock()
}

// reconcile applies the document's assignment records to the loaded texts.
// Records are joined by text id; records written before texts carried ids
// fall back to exact (title, content) match, claiming the first unassigned
// candidate.
func reconcile(texts []*TitledText, records []AssignmentRecord, documentID uuid.UUID) {
	for _, rec := range records {
		if rec.DocumentID != documentID {
			continue
		}

		if rec.TextID != uuid.Nil {
			if t := findByID(texts, rec.TextID); t != nil {
				region := rec.RegionID
				t.AssignedRegionID = &region
				continue
			}
		}

		for _, t := range texts {
			if !t.Assigned() && t.Title == rec.Title && t.Content == rec.Content {
				region := rec.RegionID
				t.AssignedRegionID = &region
				break
			}
		}
	}
}

// TextsForDocument returns all texts for the document. Documents that are
// not Ready yield an empty result.
func (s *Store) TextsForDocument(documentID uuid.UUID) []TitledText {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[documentID]
	if !ok || d.state != docReady {
		return nil
	}

	out := make([]TitledText, len(d.texts))
	for i, t := range d.texts {
		out[i] = *t
	}
	return out
}

// TextsForPage returns the document's texts with an exact page match.
func (s *Store) TextsForPage(documentID uuid.UUID, page int) []TitledText {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[documentID]
	if !ok || d.state != docReady {
		return nil
	}

	var out []TitledText
	for _, t := range d.texts {
		if t.Page == page {
			out = append(out, *t)
		}
	}
	return out
}

// MergeContentForPage parses raw text into titled sections, stamps them with
// the given page, and merges them into the document's existing text set.
//
// Despite operating on one page, this is a merge with the whole-document
// set, not a page-scoped replace: sections from earlier calls survive, which
// is how repeated generation passes accumulate. The full merged set is
// persisted as one unit; on success only the newly created sections are
// returned (for caller-side auto-assignment), and on failure the in-memory
// state is left untouched and an empty result is returned with the error.
func (s *Store) MergeContentForPage(ctx context.Context, raw string, documentID uuid.UUID, page int) ([]TitledText, error) {
	parsed := sections.Parse(raw)
	if len(parsed) == 0 {
		return nil, nil
	}

	d := s.doc(documentID)
	d.mu.Lock()
	defer d.mu.Unlock()

	s.ensureLoaded(ctx, documentID, d)

	created := make([]*TitledText, len(parsed))
	for i, sec := range parsed {
		created[i] = &TitledText{
			ID:      uuid.New(),
			Title:   sec.Title,
			Content: sec.Content,
			Page:    page,
		}
	}

	s.mu.RLock()
	merged := make([]*TitledText, 0, len(d.texts)+len(created))
	merged = append(merged, d.texts...)
	merged = append(merged, created...)
	snapshot := make([]TitledText, len(merged))
	for i, t := range merged {
		snapshot[i] = *t
	}
	s.mu.RUnlock()

	if err := s.gateway.SaveTexts(ctx, s.actor, documentID, snapshot); err != nil {
		s.logger.Error("text save failed", "document", documentID, "error", err)
		s.notifier.Notify(s.actor, notify.LevelError, "Saving texts failed")
		return nil, fmt.Errorf("save texts: %w", err)
	}

	s.mu.Lock()
	d.texts = merged
	s.mu.Unlock()

	out := make([]TitledText, len(created))
	for i, t := range created {
		out[i] = *t
	}

	s.notifier.Notify(s.actor, notify.LevelSuccess, fmt.Sprintf("Added %d sections", len(out)))
	return out, nil
}

// AssignTextsToRegions is the manual-entry counterpart of
// MergeContentForPage with identical merge and persistence mechanics.
func (s *Store) AssignTextsToRegions(ctx context.Context, raw string, documentID uuid.UUID, page int) ([]TitledText, error) {
	return s.MergeContentForPage(ctx, raw, documentID, page)
}

// AssignTextToRegion durably links a text to a region and updates the
// in-memory view. The save is retried per the store's save policy before
// giving up. The region must belong to currentPage; on success any other
// text claiming the region is unassigned, and the region's displayed
// description is updated to the text content. A failed save leaves the
// prior assignment state untouched.
func (s *Store) AssignTextToRegion(ctx context.Context, documentID, textID uuid.UUID, region regions.Region, currentPage int) error {
	d := s.doc(documentID)
	d.mu.Lock()
	defer d.mu.Unlock()

	s.ensureLoaded(ctx, documentID, d)

	if region.Page != currentPage {
		s.notifier.Notify(s.actor, notify.LevelError, "Region belongs to a different page")
		return ErrPageMismatch
	}

	s.mu.RLock()
	target := findByID(d.texts, textID)
	var text TitledText
	if target != nil {
		text = *target
	}
	s.mu.RUnlock()

	if target == nil {
		s.notifier.Notify(s.actor, notify.LevelError, "Text not found")
		return ErrTextNotFound
	}

	rec := AssignmentRecord{
		DocumentID: documentID,
		RegionID:   region.ID,
		TextID:     text.ID,
		Title:      text.Title,
		Content:    text.Content,
	}

	err := s.savePolicy.Do(ctx, func(ctx context.Context) error {
		return s.gateway.SaveAssignment(ctx, s.actor, rec)
	})
	if err != nil {
		s.logger.Error("assignment save failed", "document", documentID, "region", region.ID, "error", err)
		s.notifier.Notify(s.actor, notify.LevelError, "Assigning text failed")
		return fmt.Errorf("save assignment: %w", err)
	}

	s.mu.Lock()
	if _, captured := d.originalTexts[region.ID]; !captured {
		d.originalTexts[region.ID] = region.Description
	}
	for _, t := range d.texts {
		if t.AssignedTo(region.ID) {
			t.AssignedRegionID = nil
		}
	}
	regionID := region.ID
	target.AssignedRegionID = &regionID
	s.mu.Unlock()

	if err := s.updater.UpdateDescription(ctx, region.ID, &text.Content); err != nil {
		s.logger.Warn("region description update failed", "region", region.ID, "error", err)
	}

	s.notifier.Notify(s.actor, notify.LevelSuccess, "Text assigned")
	return nil
}

// UndoRegionAssignment deletes the region's durable linkage and clears the
// assignment from any in-memory text that held it. The text itself is kept.
// The region's displayed description is cleared rather than restored to its
// captured pre-assignment value.
func (s *Store) UndoRegionAssignment(ctx context.Context, documentID uuid.UUID, region regions.Region, currentPage int) error {
	d := s.doc(documentID)
	d.mu.Lock()
	defer d.mu.Unlock()

	s.ensureLoaded(ctx, documentID, d)

	if region.Page != currentPage {
		s.notifier.Notify(s.actor, notify.LevelError, "Region belongs to a different page")
		return ErrPageMismatch
	}

	if err := s.gateway.DeleteAssignment(ctx, s.actor, documentID, region.ID); err != nil {
		s.logger.Error("assignment delete failed", "document", documentID, "region", region.ID, "error", err)
		s.notifier.Notify(s.actor, notify.LevelError, "Undo failed")
		return fmt.Errorf("delete assignment: %w", err)
	}

	s.mu.Lock()
	for _, t := range d.texts {
		if t.AssignedTo(region.ID) {
			t.AssignedRegionID = nil
		}
	}
	delete(d.originalTexts, region.ID)
	s.mu.Unlock()

	if err := s.updater.UpdateDescription(ctx, region.ID, nil); err != nil {
		s.logger.Warn("region description clear failed", "region", region.ID, "error", err)
	}

	s.notifier.Notify(s.actor, notify.LevelSuccess, "Assignment removed")
	return nil
}

// UndoAllAssignments deletes every durable linkage for the document and
// clears the assignment on every in-memory text. Texts are kept. Region
// description resets are left to the caller, which typically pairs this
// with a page-scoped reset.
func (s *Store) UndoAllAssignments(ctx context.Context, documentID uuid.UUID) error {
	d := s.doc(documentID)
	d.mu.Lock()
	defer d.mu.Unlock()

	s.ensureLoaded(ctx, documentID, d)

	if err := s.gateway.DeleteAllAssignments(ctx, s.actor, &documentID); err != nil {
		s.logger.Error("assignment reset failed", "document", documentID, "error", err)
		s.notifier.Notify(s.actor, notify.LevelError, "Removing assignments failed")
		return fmt.Errorf("delete assignments: %w", err)
	}

	s.mu.Lock()
	for _, t := range d.texts {
		t.AssignedRegionID = nil
	}
	d.originalTexts = make(map[uuid.UUID]*string)
	s.mu.Unlock()

	s.notifier.Notify(s.actor, notify.LevelSuccess, "All assignments removed")
	return nil
}

// IsRegionAssigned reports whether any text of the document claims the region.
func (s *Store) IsRegionAssigned(documentID, regionID uuid.UUID) bool {
	_, ok := s.AssignedText(documentID, regionID)
	return ok
}

// AssignedText returns the content of the text assigned to the region.
func (s *Store) AssignedText(documentID, regionID uuid.UUID) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[documentID]
	if !ok || d.state != docReady {
		return "", false
	}

	for _, t := range d.texts {
		if t.AssignedTo(regionID) {
			return t.Content, true
		}
	}
	return "", false
}

// ResetDocument deletes all durable texts and assignments for one document
// and clears its in-memory aggregate. Other documents are untouched.
func (s *Store) ResetDocument(ctx context.Context, documentID uuid.UUID) error {
	d := s.doc(documentID)
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := s.reset(ctx, &documentID); err != nil {
		return err
	}

	s.mu.Lock()
	d.texts = nil
	d.originalTexts = make(map[uuid.UUID]*string)
	d.state = docReady
	s.mu.Unlock()

	s.notifier.Notify(s.actor, notify.LevelSuccess, "Document texts reset")
	return nil
}

// ResetAll deletes all durable texts and assignments for the entire actor
// and clears every in-memory aggregate.
func (s *Store) ResetAll(ctx context.Context) error {
	if err := s.reset(ctx, nil); err != nil {
		return err
	}

	s.mu.Lock()
	s.docs = make(map[uuid.UUID]*document)
	s.mu.Unlock()

	s.notifier.Notify(s.actor, notify.LevelSuccess, "All texts reset")
	return nil
}

func (s *Store) reset(ctx context.Context, documentID *uuid.UUID) error {
	if err := s.gateway.DeleteAllAssignments(ctx, s.actor, documentID); err != nil {
		s.notifier.Notify(s.actor, notify.LevelError, "Reset failed")
		return fmt.Errorf("delete assignments: %w", err)
	}
	if err := s.gateway.DeleteAllTexts(ctx, s.actor, documentID); err != nil {
		s.notifier.Notify(s.actor, notify.LevelError, "Reset failed")
		return fmt.Errorf("delete texts: %w", err)
	}
	return nil
}

// DeleteText removes a single text by its durable id, from both the remote
// store and the in-memory aggregate, whether or not it was assigned.
func (s *Store) DeleteText(ctx context.Context, documentID, textID uuid.UUID) error {
	d := s.doc(documentID)
	d.mu.Lock()
	defer d.mu.Unlock()

	s.ensureLoaded(ctx, documentID, d)

	if err := s.gateway.DeleteText(ctx, s.actor, documentID, textID); err != nil {
		s.logger.Error("text delete failed", "document", documentID, "text", textID, "error", err)
		s.notifier.Notify(s.actor, notify.LevelError, "Deleting text failed")
		return fmt.Errorf("delete text: %w", err)
	}

	s.mu.Lock()
	kept := d.texts[:0]
	for _, t := range d.texts {
		if t.ID != textID {
			kept = append(kept, t)
		}
	}
	d.texts = kept
	s.mu.Unlock()

	s.notifier.Notify(s.actor, notify.LevelSuccess, "Text deleted")
	return nil
}

// UnassignedRegionsByPage returns the given regions that sit on the page and
// have no current assignment, in auto-assignment order.
func (s *Store) UnassignedRegionsByPage(regs []regions.Region, page int, documentID uuid.UUID) []regions.Region {
	var filtered []regions.Region
	for _, r := range regions.SortForAssignment(regs) {
		if r.Page == page && !s.IsRegionAssigned(documentID, r.ID) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// AutoAssign parses and merges raw content for the page, then distributes
// the newly created sections across the page's unassigned regions in
// auto-assignment order, one section per region, stopping when either runs
// out. Returns the created sections.
func (s *Store) AutoAssign(ctx context.Context, raw string, regs []regions.Region, documentID uuid.UUID, page int) ([]TitledText, error) {
	created, err := s.MergeContentForPage(ctx, raw, documentID, page)
	if err != nil || len(created) == 0 {
		return created, err
	}

	targets := s.UnassignedRegionsByPage(regs, page, documentID)
	for i, region := range targets {
		if i >= len(created) {
			break
		}
		if err := s.AssignTextToRegion(ctx, documentID, created[i].ID, region, page); err != nil {
			return created, err
		}
	}

	return created, nil
}

// doc returns the state holder for a document, creating it on first access.
func (s *Store) doc(documentID uuid.UUID) *document {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.docs[documentID]
	if !ok {
		d = &document{originalTexts: make(map[uuid.UUID]*string)}
		s.docs[documentID] = d
	}
	return d
}

// ensureLoaded performs the initial load for documents that have not been
// accessed yet. The caller must hold d.mu.
func (s *Store) ensureLoaded(ctx context.Context, documentID uuid.UUID, d *document) {
	s.mu.Lock()
	if d.state == docReady {
		s.mu.Unlock()
		return
	}
	d.state = docLoading
	s.mu.Unlock()

	s.load(ctx, documentID, d)
}

func findByID(texts []*TitledText, id uuid.UUID) *TitledText {
	for _, t := range texts {
		if t.ID == id {
			return t
		}
	}
	return nil
}
