package assignments

import (
	"context"
	"log/slog"
	"sync"

	"github.com/annostudio/annostudio/internal/config"
	"github.com/annostudio/annostudio/internal/notify"
	"github.com/annostudio/annostudio/internal/regions"
	"github.com/annostudio/annostudio/pkg/retry"
	"github.com/google/uuid"
)

// Manager hands out per-actor assignment stores, creating each store
// lazily on first use. A freshly created store first imports the actor's
// legacy local snapshot, if one exists.
type Manager struct {
	gateway    Gateway
	updater    regions.DescriptionUpdater
	notifier   notify.Notifier
	logger     *slog.Logger
	savePolicy retry.Policy
	legacyPath string

	mu     sync.Mutex
	stores map[uuid.UUID]*Store
}

// NewManager creates the store registry.
func NewManager(
	cfg *config.AssignmentsConfig,
	gateway Gateway,
	updater regions.DescriptionUpdater,
	notifier notify.Notifier,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		gateway:  gateway,
		updater:  updater,
		notifier: notifier,
		logger:   logger,
		savePolicy: retry.Policy{
			Attempts: cfg.SaveAttempts,
			Backoff:  cfg.SaveBackoffDuration(),
		},
		legacyPath: cfg.LegacyPath,
		stores:     make(map[uuid.UUID]*Store),
	}
}

// Store returns the actor's assignment store, creating it on first access.
func (m *Manager) Store(ctx context.Context, actor uuid.UUID) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stores[actor]
	if ok {
		return s
	}

	if err := MigrateLegacySnapshot(ctx, m.legacyPath, actor, m.gateway, m.logger); err != nil {
		m.logger.Warn("legacy snapshot migration failed", "actor", actor, "error", err)
	}

	s = NewStore(actor, m.gateway, m.updater, m.notifier, m.logger, m.savePolicy)
	m.stores[actor] = s
	return s
}

// Evict discards the actor's store, typically on sign-out. The next access
// creates a fresh store that reloads from the gateway.
func (m *Manager) Evict(actor uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, actor)
}
