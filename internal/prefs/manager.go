package prefs

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/fabriclens/fabriclens/internal/eventbus"
)

// DefaultIdleTimeout is how long a session may stay untouched before the
// reaper discards it. Zero disables expiry.
const DefaultIdleTimeout = 30 * time.Minute

// reapInterval is how often the reaper scans for idle sessions.
const reapInterval = time.Minute

// Defaults carries the admin-tunable seed values applied to every new Store.
type Defaults struct {
	PageSize   int
	Timezone   string
	FabricName string
}

// SessionInfo describes one live session for listings.
type SessionInfo struct {
	ID         string
	CreatedAt  time.Time
	LastAccess time.Time
}

type entry struct {
	store      *Store
	createdAt  time.Time
	lastAccess time.Time
}

// Manager owns the set of live preference stores, keyed by session ID.
// Acquire is identity-stable: every caller asking for the same session ID
// gets the same *Store until the session is removed or expires.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*entry

	defaults    Defaults
	idleTimeout time.Duration
	bus         *eventbus.Bus
	logger      *log.Logger
}

// NewManager constructs a Manager with no sessions.
func NewManager() *Manager {
	return &Manager{
		entries:     make(map[string]*entry),
		defaults:    Defaults{PageSize: DefaultPageSize, Timezone: "UTC"},
		idleTimeout: DefaultIdleTimeout,
		logger:      log.Default(),
	}
}

// UseEventBus attaches the event bus used for lifecycle notifications.
// A nil bus disables publishing.
func (m *Manager) UseEventBus(bus *eventbus.Bus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bus = bus
}

// SetDefaults replaces the seed values used for new sessions. Existing
// sessions are not touched.
func (m *Manager) SetDefaults(d Defaults) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.PageSize <= 0 {
		d.PageSize = DefaultPageSize
	}
	m.defaults = d
}

// Defaults returns the current seed values.
func (m *Manager) Defaults() Defaults {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaults
}

// SetIdleTimeout changes how long sessions survive without access.
// Zero disables expiry entirely.
func (m *Manager) SetIdleTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idleTimeout = d
}

// Acquire returns the Store for the given session, creating it on first
// use. The boolean reports whether a new session was created. Access time
// is refreshed on every call.
func (m *Manager) Acquire(ctx context.Context, sessionID string) (*Store, bool) {
	now := time.Now()

	m.mu.Lock()
	if e, ok := m.entries[sessionID]; ok {
		e.lastAccess = now
		store := e.store
		m.mu.Unlock()
		return store, false
	}

	store := NewStore()
	d := m.defaults
	if d.PageSize > 0 {
		store.SetPageSize(d.PageSize)
	}
	if d.Timezone != "" {
		fs := store.FabricSettings()
		fs.Timezone = d.Timezone
		store.SetFabricSettings(fs)
	}
	if d.FabricName != "" {
		f := store.Fabric()
		f.Name = d.FabricName
		store.SetFabric(f)
	}

	m.entries[sessionID] = &entry{
		store:      store,
		createdAt:  now,
		lastAccess: now,
	}
	bus := m.bus
	m.mu.Unlock()

	eventbus.Publish(ctx, bus, eventbus.Sessions.Lifecycle, eventbus.SourcePrefsManager, eventbus.SessionLifecycleEvent{
		SessionID: sessionID,
		State:     eventbus.SessionStateCreated,
	})
	return store, true
}

// Lookup returns the Store for a session without creating it.
func (m *Manager) Lookup(sessionID string) (*Store, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return nil, false
	}
	return e.store, true
}

// Touch refreshes a session's access time. It reports whether the session
// exists.
func (m *Manager) Touch(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return false
	}
	e.lastAccess = time.Now()
	return true
}

// Remove discards a session and publishes a lifecycle event. Removing an
// unknown session is a no-op and returns false.
func (m *Manager) Remove(ctx context.Context, sessionID string) bool {
	m.mu.Lock()
	_, ok := m.entries[sessionID]
	if ok {
		delete(m.entries, sessionID)
	}
	bus := m.bus
	m.mu.Unlock()

	if !ok {
		return false
	}
	eventbus.Publish(ctx, bus, eventbus.Sessions.Lifecycle, eventbus.SourcePrefsManager, eventbus.SessionLifecycleEvent{
		SessionID: sessionID,
		State:     eventbus.SessionStateRemoved,
	})
	return true
}

// Sessions lists live sessions ordered by creation time.
func (m *Manager) Sessions() []SessionInfo {
	m.mu.RLock()
	infos := make([]SessionInfo, 0, len(m.entries))
	for id, e := range m.entries {
		infos = append(infos, SessionInfo{
			ID:         id,
			CreatedAt:  e.createdAt,
			LastAccess: e.lastAccess,
		})
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// SessionCount returns the number of live sessions.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// BackdateAccess rewinds a session's access time. Test helper for exercising
// the reaper without sleeping.
func (m *Manager) BackdateAccess(sessionID string, d time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return false
	}
	e.lastAccess = e.lastAccess.Add(-d)
	return true
}

// RunReaper periodically discards sessions idle past the timeout. It blocks
// until ctx is cancelled; callers run it in a goroutine.
func (m *Manager) RunReaper(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.ReapIdle(ctx)
		}
	}
}

// ReapIdle removes every session idle past the timeout and returns the IDs
// it removed.
func (m *Manager) ReapIdle(ctx context.Context) []string {
	m.mu.Lock()
	timeout := m.idleTimeout
	if timeout <= 0 {
		m.mu.Unlock()
		return nil
	}

	cutoff := time.Now().Add(-timeout)
	var expired []string
	for id, e := range m.entries {
		if e.lastAccess.Before(cutoff) {
			expired = append(expired, id)
			delete(m.entries, id)
		}
	}
	bus := m.bus
	m.mu.Unlock()

	for _, id := range expired {
		m.logger.Printf("[PrefsManager] expired idle session %s", id)
		eventbus.Publish(ctx, bus, eventbus.Sessions.Lifecycle, eventbus.SourcePrefsManager, eventbus.SessionLifecycleEvent{
			SessionID: id,
			State:     eventbus.SessionStateRemoved,
			Reason:    eventbus.SessionReasonExpired,
		})
	}
	return expired
}
