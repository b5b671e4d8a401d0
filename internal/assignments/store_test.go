package assignments

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/annostudio/annostudio/internal/notify"
	"github.com/annostudio/annostudio/internal/regions"
	"github.com/annostudio/annostudio/pkg/retry"
	"github.com/google/uuid"
)

type fakeGateway struct {
	mu sync.Mutex

	texts       map[uuid.UUID][]TitledText
	assignments map[uuid.UUID]AssignmentRecord

	saveAssignmentCalls int
	saveTextsCalls      int

	failSaveTexts      error
	failSaveAssignment error
	failLoadTexts      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		texts:       make(map[uuid.UUID][]TitledText),
		assignments: make(map[uuid.UUID]AssignmentRecord),
	}
}

func (g *fakeGateway) LoadTexts(_ context.Context, _, documentID uuid.UUID) ([]TitledText, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failLoadTexts != nil {
		return nil, g.failLoadTexts
	}
	return append([]TitledText(nil), g.texts[documentID]...), nil
}

func (g *fakeGateway) SaveTexts(_ context.Context, _, documentID uuid.UUID, texts []TitledText) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saveTextsCalls++
	if g.failSaveTexts != nil {
		return g.failSaveTexts
	}
	g.texts[documentID] = append([]TitledText(nil), texts...)
	return nil
}

func (g *fakeGateway) DeleteText(_ context.Context, _, documentID, textID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.texts[documentID][:0]
	for _, t := range g.texts[documentID] {
		if t.ID != textID {
			kept = append(kept, t)
		}
	}
	g.texts[documentID] = kept
	return nil
}

func (g *fakeGateway) DeleteAllTexts(_ context.Context, _ uuid.UUID, documentID *uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if documentID != nil {
		delete(g.texts, *documentID)
		return nil
	}
	g.texts = make(map[uuid.UUID][]TitledText)
	return nil
}

func (g *fakeGateway) LoadAssignments(_ context.Context, _ uuid.UUID) ([]AssignmentRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []AssignmentRecord
	for _, rec := range g.assignments {
		out = append(out, rec)
	}
	return out, nil
}

func (g *fakeGateway) SaveAssignment(_ context.Context, _ uuid.UUID, rec AssignmentRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saveAssignmentCalls++
	if g.failSaveAssignment != nil {
		return g.failSaveAssignment
	}
	g.assignments[rec.RegionID] = rec
	return nil
}

func (g *fakeGateway) DeleteAssignment(_ context.Context, _, _, regionID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.assignments, regionID)
	return nil
}

func (g *fakeGateway) DeleteAllAssignments(_ context.Context, _ uuid.UUID, documentID *uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, rec := range g.assignments {
		if documentID == nil || rec.DocumentID == *documentID {
			delete(g.assignments, id)
		}
	}
	return nil
}

type fakeUpdater struct {
	mu           sync.Mutex
	descriptions map[uuid.UUID]*string
}

func newFakeUpdater() *fakeUpdater {
	return &fakeUpdater{descriptions: make(map[uuid.UUID]*string)}
}

func (u *fakeUpdater) UpdateDescription(_ context.Context, id uuid.UUID, description *string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.descriptions[id] = description
	return nil
}

func newTestStore(gateway Gateway, updater regions.DescriptionUpdater) *Store {
	return NewStore(
		uuid.New(),
		gateway,
		updater,
		notify.Discard{},
		slog.New(slog.DiscardHandler),
		retry.Policy{Attempts: 3, Backoff: time.Millisecond},
	)
}

func testRegion(page int, name string) regions.Region {
	return regions.Region{
		ID:   uuid.New(),
		Page: page,
		Name: name,
		Type: regions.TypeArea,
	}
}

func TestMergeContentForPage(t *testing.T) {
	gateway := newFakeGateway()
	store := newTestStore(gateway, newFakeUpdater())
	ctx := context.Background()
	doc := uuid.New()

	first, err := store.MergeContentForPage(ctx, "**Intro**\nwelcome", doc, 1)
	if err != nil {
		t.Fatalf("MergeContentForPage() error = %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("created = %d, want 1", len(first))
	}
	if first[0].Title != "Intro" || first[0].Page != 1 {
		t.Errorf("created[0] = %+v, want title Intro on page 1", first[0])
	}

	// a second pass merges with the existing set instead of replacing it
	second, err := store.MergeContentForPage(ctx, "**Details**\nmore", doc, 2)
	if err != nil {
		t.Fatalf("MergeContentForPage() error = %v", err)
	}
	if len(second) != 1 || second[0].Title != "Details" {
		t.Fatalf("second pass created = %+v, want one Details section", second)
	}

	all := store.TextsForDocument(doc)
	if len(all) != 2 {
		t.Errorf("TextsForDocument() = %d texts, want 2", len(all))
	}
	if len(gateway.texts[doc]) != 2 {
		t.Errorf("persisted texts = %d, want 2", len(gateway.texts[doc]))
	}
}

func TestMergeContentForPageSaveFailure(t *testing.T) {
	gateway := newFakeGateway()
	store := newTestStore(gateway, newFakeUpdater())
	ctx := context.Background()
	doc := uuid.New()

	if _, err := store.MergeContentForPage(ctx, "**Kept**\nsafe", doc, 1); err != nil {
		t.Fatalf("seed merge error = %v", err)
	}

	gateway.failSaveTexts = errors.New("connection reset")
	created, err := store.MergeContentForPage(ctx, "**Lost**\ngone", doc, 1)
	if err == nil {
		t.Fatal("MergeContentForPage() error = nil, want save failure")
	}
	if len(created) != 0 {
		t.Errorf("created = %d texts on failure, want 0", len(created))
	}

	texts := store.TextsForDocument(doc)
	if len(texts) != 1 || texts[0].Title != "Kept" {
		t.Errorf("in-memory texts after failed save = %+v, want only Kept", texts)
	}
}

func TestMergeContentForPageNoSections(t *testing.T) {
	gateway := newFakeGateway()
	store := newTestStore(gateway, newFakeUpdater())

	created, err := store.MergeContentForPage(context.Background(), "no markers here", uuid.New(), 1)
	if err != nil {
		t.Fatalf("MergeContentForPage() error = %v", err)
	}
	if len(created) != 0 {
		t.Errorf("created = %d, want 0", len(created))
	}
	if gateway.saveTextsCalls != 0 {
		t.Errorf("saveTextsCalls = %d, want 0", gateway.saveTextsCalls)
	}
}

func TestAssignTextToRegion(t *testing.T) {
	gateway := newFakeGateway()
	updater := newFakeUpdater()
	store := newTestStore(gateway, updater)
	ctx := context.Background()
	doc := uuid.New()

	created, err := store.MergeContentForPage(ctx, "**Intro**\nwelcome", doc, 1)
	if err != nil {
		t.Fatalf("seed merge error = %v", err)
	}

	region := testRegion(1, "1_0")
	if err := store.AssignTextToRegion(ctx, doc, created[0].ID, region, 1); err != nil {
		t.Fatalf("AssignTextToRegion() error = %v", err)
	}

	if !store.IsRegionAssigned(doc, region.ID) {
		t.Error("IsRegionAssigned() = false, want true")
	}
	content, ok := store.AssignedText(doc, region.ID)
	if !ok || content != "welcome" {
		t.Errorf("AssignedText() = %q, %v, want welcome, true", content, ok)
	}

	rec, ok := gateway.assignments[region.ID]
	if !ok {
		t.Fatal("assignment not persisted")
	}
	if rec.TextID != created[0].ID {
		t.Errorf("persisted TextID = %v, want %v", rec.TextID, created[0].ID)
	}

	desc, ok := updater.descriptions[region.ID]
	if !ok || desc == nil || *desc != "welcome" {
		t.Errorf("region description = %v, want welcome", desc)
	}
}

func TestAssignTextToRegionReplacesPriorClaimant(t *testing.T) {
	gateway := newFakeGateway()
	store := newTestStore(gateway, newFakeUpdater())
	ctx := context.Background()
	doc := uuid.New()

	created, err := store.MergeContentForPage(ctx, "**A**\nfirst\n**B**\nsecond", doc, 1)
	if err != nil {
		t.Fatalf("seed merge error = %v", err)
	}

	region := testRegion(1, "1_0")
	if err := store.AssignTextToRegion(ctx, doc, created[0].ID, region, 1); err != nil {
		t.Fatalf("first assign error = %v", err)
	}
	if err := store.AssignTextToRegion(ctx, doc, created[1].ID, region, 1); err != nil {
		t.Fatalf("second assign error = %v", err)
	}

	content, ok := store.AssignedText(doc, region.ID)
	if !ok || content != "second" {
		t.Errorf("AssignedText() = %q, want second", content)
	}

	assigned := 0
	for _, text := range store.TextsForDocument(doc) {
		if text.AssignedTo(region.ID) {
			assigned++
		}
	}
	if assigned != 1 {
		t.Errorf("texts claiming region = %d, want 1", assigned)
	}
}

func TestAssignTextToRegionPageMismatch(t *testing.T) {
	gateway := newFakeGateway()
	store := newTestStore(gateway, newFakeUpdater())
	ctx := context.Background()
	doc := uuid.New()

	created, err := store.MergeContentForPage(ctx, "**Intro**\nwelcome", doc, 1)
	if err != nil {
		t.Fatalf("seed merge error = %v", err)
	}

	region := testRegion(2, "2_0")
	err = store.AssignTextToRegion(ctx, doc, created[0].ID, region, 1)
	if !errors.Is(err, ErrPageMismatch) {
		t.Fatalf("AssignTextToRegion() error = %v, want ErrPageMismatch", err)
	}
	if gateway.saveAssignmentCalls != 0 {
		t.Errorf("saveAssignmentCalls = %d, want 0", gateway.saveAssignmentCalls)
	}
}

func TestAssignTextToRegionRetriesThenFails(t *testing.T) {
	gateway := newFakeGateway()
	store := newTestStore(gateway, newFakeUpdater())
	ctx := context.Background()
	doc := uuid.New()

	created, err := store.MergeContentForPage(ctx, "**Intro**\nwelcome", doc, 1)
	if err != nil {
		t.Fatalf("seed merge error = %v", err)
	}

	gateway.failSaveAssignment = errors.New("connection reset")
	region := testRegion(1, "1_0")

	err = store.AssignTextToRegion(ctx, doc, created[0].ID, region, 1)
	if err == nil {
		t.Fatal("AssignTextToRegion() error = nil, want failure after retries")
	}
	if gateway.saveAssignmentCalls != 3 {
		t.Errorf("saveAssignmentCalls = %d, want 3", gateway.saveAssignmentCalls)
	}
	if store.IsRegionAssigned(doc, region.ID) {
		t.Error("IsRegionAssigned() = true after failed save, want false")
	}
}

func TestUndoRegionAssignment(t *testing.T) {
	gateway := newFakeGateway()
	updater := newFakeUpdater()
	store := newTestStore(gateway, updater)
	ctx := context.Background()
	doc := uuid.New()

	created, err := store.MergeContentForPage(ctx, "**Intro**\nwelcome", doc, 1)
	if err != nil {
		t.Fatalf("seed merge error = %v", err)
	}

	region := testRegion(1, "1_0")
	if err := store.AssignTextToRegion(ctx, doc, created[0].ID, region, 1); err != nil {
		t.Fatalf("assign error = %v", err)
	}
	if err := store.UndoRegionAssignment(ctx, doc, region, 1); err != nil {
		t.Fatalf("UndoRegionAssignment() error = %v", err)
	}

	if store.IsRegionAssigned(doc, region.ID) {
		t.Error("IsRegionAssigned() = true after undo, want false")
	}
	if _, ok := gateway.assignments[region.ID]; ok {
		t.Error("assignment row survived undo")
	}
	if desc := updater.descriptions[region.ID]; desc != nil {
		t.Errorf("region description after undo = %q, want nil", *desc)
	}

	// the text survives the undo
	texts := store.TextsForDocument(doc)
	if len(texts) != 1 || texts[0].Assigned() {
		t.Errorf("texts after undo = %+v, want one unassigned text", texts)
	}
}

func TestUndoAllAssignments(t *testing.T) {
	gateway := newFakeGateway()
	store := newTestStore(gateway, newFakeUpdater())
	ctx := context.Background()
	doc := uuid.New()

	created, err := store.MergeContentForPage(ctx, "**A**\nfirst\n**B**\nsecond", doc, 1)
	if err != nil {
		t.Fatalf("seed merge error = %v", err)
	}

	r1, r2 := testRegion(1, "1_0"), testRegion(1, "1_1")
	if err := store.AssignTextToRegion(ctx, doc, created[0].ID, r1, 1); err != nil {
		t.Fatalf("assign error = %v", err)
	}
	if err := store.AssignTextToRegion(ctx, doc, created[1].ID, r2, 1); err != nil {
		t.Fatalf("assign error = %v", err)
	}

	if err := store.UndoAllAssignments(ctx, doc); err != nil {
		t.Fatalf("UndoAllAssignments() error = %v", err)
	}

	if len(gateway.assignments) != 0 {
		t.Errorf("persisted assignments = %d, want 0", len(gateway.assignments))
	}
	for _, text := range store.TextsForDocument(doc) {
		if text.Assigned() {
			t.Errorf("text %q still assigned after undo all", text.Title)
		}
	}
	if len(store.TextsForDocument(doc)) != 2 {
		t.Error("texts deleted by undo all, want them kept")
	}
}

func TestResetDocumentScoping(t *testing.T) {
	gateway := newFakeGateway()
	store := newTestStore(gateway, newFakeUpdater())
	ctx := context.Background()
	docA, docB := uuid.New(), uuid.New()

	if _, err := store.MergeContentForPage(ctx, "**A**\none", docA, 1); err != nil {
		t.Fatalf("seed merge error = %v", err)
	}
	if _, err := store.MergeContentForPage(ctx, "**B**\ntwo", docB, 1); err != nil {
		t.Fatalf("seed merge error = %v", err)
	}

	if err := store.ResetDocument(ctx, docA); err != nil {
		t.Fatalf("ResetDocument() error = %v", err)
	}

	if n := len(store.TextsForDocument(docA)); n != 0 {
		t.Errorf("docA texts after reset = %d, want 0", n)
	}
	if n := len(store.TextsForDocument(docB)); n != 1 {
		t.Errorf("docB texts after docA reset = %d, want 1", n)
	}

	if err := store.ResetAll(ctx); err != nil {
		t.Fatalf("ResetAll() error = %v", err)
	}
	if len(gateway.texts) != 0 {
		t.Errorf("persisted texts after ResetAll = %d documents, want 0", len(gateway.texts))
	}
}

func TestLoadReconcilesAssignments(t *testing.T) {
	gateway := newFakeGateway()
	store := newTestStore(gateway, newFakeUpdater())
	ctx := context.Background()
	doc := uuid.New()
	region := testRegion(1, "1_0")

	textID := uuid.New()
	gateway.texts[doc] = []TitledText{
		{ID: textID, Title: "Intro", Content: "welcome", Page: 1},
	}
	gateway.assignments[region.ID] = AssignmentRecord{
		DocumentID: doc,
		RegionID:   region.ID,
		TextID:     textID,
		Title:      "Intro",
		Content:    "welcome",
	}

	store.Load(ctx, doc)

	if !store.IsReady(doc) {
		t.Fatal("IsReady() = false after Load")
	}
	if !store.IsRegionAssigned(doc, region.ID) {
		t.Error("assignment not reconciled on load")
	}
}

func TestLoadReconcilesLegacyRecordsByTitleContent(t *testing.T) {
	gateway := newFakeGateway()
	store := newTestStore(gateway, newFakeUpdater())
	ctx := context.Background()
	doc := uuid.New()
	region := testRegion(1, "1_0")

	gateway.texts[doc] = []TitledText{
		{ID: uuid.New(), Title: "Intro", Content: "welcome", Page: 1},
	}
	gateway.assignments[region.ID] = AssignmentRecord{
		DocumentID: doc,
		RegionID:   region.ID,
		Title:      "Intro",
		Content:    "welcome",
	}

	store.Load(ctx, doc)

	if !store.IsRegionAssigned(doc, region.ID) {
		t.Error("legacy record not reconciled by title and content")
	}
}

func TestLoadFailureDegradesToEmpty(t *testing.T) {
	gateway := newFakeGateway()
	store := newTestStore(gateway, newFakeUpdater())
	ctx := context.Background()
	doc := uuid.New()

	gateway.failLoadTexts = errors.New("connection reset")
	store.Load(ctx, doc)

	if !store.IsReady(doc) {
		t.Error("IsReady() = false after degraded load, want true")
	}
	if n := len(store.TextsForDocument(doc)); n != 0 {
		t.Errorf("texts after degraded load = %d, want 0", n)
	}
}

func TestQueriesBeforeLoadReturnEmpty(t *testing.T) {
	store := newTestStore(newFakeGateway(), newFakeUpdater())
	doc := uuid.New()

	if texts := store.TextsForDocument(doc); texts != nil {
		t.Errorf("TextsForDocument() before load = %v, want nil", texts)
	}
	if texts := store.TextsForPage(doc, 1); texts != nil {
		t.Errorf("TextsForPage() before load = %v, want nil", texts)
	}
	if store.IsRegionAssigned(doc, uuid.New()) {
		t.Error("IsRegionAssigned() before load = true, want false")
	}
}

func TestDeleteText(t *testing.T) {
	gateway := newFakeGateway()
	store := newTestStore(gateway, newFakeUpdater())
	ctx := context.Background()
	doc := uuid.New()

	created, err := store.MergeContentForPage(ctx, "**A**\nfirst\n**B**\nsecond", doc, 1)
	if err != nil {
		t.Fatalf("seed merge error = %v", err)
	}

	if err := store.DeleteText(ctx, doc, created[0].ID); err != nil {
		t.Fatalf("DeleteText() error = %v", err)
	}

	texts := store.TextsForDocument(doc)
	if len(texts) != 1 || texts[0].Title != "B" {
		t.Errorf("texts after delete = %+v, want only B", texts)
	}
	if len(gateway.texts[doc]) != 1 {
		t.Errorf("persisted texts after delete = %d, want 1", len(gateway.texts[doc]))
	}
}

func TestUnassignedRegionsByPage(t *testing.T) {
	gateway := newFakeGateway()
	store := newTestStore(gateway, newFakeUpdater())
	ctx := context.Background()
	doc := uuid.New()

	created, err := store.MergeContentForPage(ctx, "**Intro**\nwelcome", doc, 1)
	if err != nil {
		t.Fatalf("seed merge error = %v", err)
	}

	assigned := testRegion(1, "1_0")
	open1 := testRegion(1, "1_10")
	open2 := testRegion(1, "1_2")
	otherPage := testRegion(2, "2_0")

	if err := store.AssignTextToRegion(ctx, doc, created[0].ID, assigned, 1); err != nil {
		t.Fatalf("assign error = %v", err)
	}

	got := store.UnassignedRegionsByPage([]regions.Region{open1, assigned, otherPage, open2}, 1, doc)
	if len(got) != 2 {
		t.Fatalf("UnassignedRegionsByPage() = %d regions, want 2", len(got))
	}
	// numeric order: 1_2 before 1_10
	if got[0].Name != "1_2" || got[1].Name != "1_10" {
		t.Errorf("order = [%s %s], want [1_2 1_10]", got[0].Name, got[1].Name)
	}
}

func TestAutoAssign(t *testing.T) {
	gateway := newFakeGateway()
	updater := newFakeUpdater()
	store := newTestStore(gateway, updater)
	ctx := context.Background()
	doc := uuid.New()

	r0 := testRegion(1, "1_0")
	r1 := testRegion(1, "1_1")
	regs := []regions.Region{r1, r0}

	created, err := store.AutoAssign(ctx, "**A**\nfirst\n**B**\nsecond\n**C**\nthird", regs, doc, 1)
	if err != nil {
		t.Fatalf("AutoAssign() error = %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created = %d sections, want 3", len(created))
	}

	// sections pair with regions in name order; the third has no region
	if content, _ := store.AssignedText(doc, r0.ID); content != "first" {
		t.Errorf("region 1_0 content = %q, want first", content)
	}
	if content, _ := store.AssignedText(doc, r1.ID); content != "second" {
		t.Errorf("region 1_1 content = %q, want second", content)
	}

	unassigned := 0
	for _, text := range store.TextsForDocument(doc) {
		if !text.Assigned() {
			unassigned++
		}
	}
	if unassigned != 1 {
		t.Errorf("unassigned texts = %d, want 1", unassigned)
	}
}
