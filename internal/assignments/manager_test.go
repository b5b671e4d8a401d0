package assignments

import (
	"context"
	"log/slog"
	"testing"

	"github.com/annostudio/annostudio/internal/config"
	"github.com/annostudio/annostudio/internal/notify"
	"github.com/google/uuid"
)

func newTestManager(gateway Gateway) *Manager {
	cfg := config.AssignmentsConfig{
		SaveAttempts: 3,
		SaveBackoff:  "1ms",
		LegacyPath:   ".does-not-exist",
	}
	return NewManager(&cfg, gateway, newFakeUpdater(), notify.Discard{}, slog.New(slog.DiscardHandler))
}

func TestManager_StoreIsPerActor(t *testing.T) {
	m := newTestManager(newFakeGateway())
	ctx := context.Background()

	alice, bob := uuid.New(), uuid.New()

	a1 := m.Store(ctx, alice)
	a2 := m.Store(ctx, alice)
	b := m.Store(ctx, bob)

	if a1 != a2 {
		t.Error("Store() returned different instances for the same actor")
	}
	if a1 == b {
		t.Error("Store() shared an instance across actors")
	}
	if a1.Actor() != alice {
		t.Errorf("Actor() = %v, want %v", a1.Actor(), alice)
	}
}

func TestManager_StoresAreIsolated(t *testing.T) {
	m := newTestManager(newFakeGateway())
	ctx := context.Background()
	doc := uuid.New()

	alice := m.Store(ctx, uuid.New())
	bob := m.Store(ctx, uuid.New())

	if _, err := alice.MergeContentForPage(ctx, "**Intro**\nwelcome", doc, 1); err != nil {
		t.Fatalf("merge error = %v", err)
	}

	if n := len(bob.TextsForDocument(doc)); n != 0 {
		t.Errorf("other actor sees %d texts, want 0", n)
	}
}

func TestManager_EvictDropsStore(t *testing.T) {
	m := newTestManager(newFakeGateway())
	ctx := context.Background()
	actor := uuid.New()

	before := m.Store(ctx, actor)
	m.Evict(actor)
	after := m.Store(ctx, actor)

	if before == after {
		t.Error("Store() after Evict returned the evicted instance")
	}
}
