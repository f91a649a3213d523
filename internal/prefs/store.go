// Package prefs holds per-session UI preference state for connected clients.
// A Store carries one session's preferences; the Manager owns the set of
// live stores and their lifecycle.
package prefs

import (
	"maps"
	"sync"

	"github.com/fabriclens/fabriclens/internal/fabric"
)

// DefaultPageSize is the initial page size for object browser tables.
const DefaultPageSize = 10

// Store is the per-session preference container. All accessors are safe for
// concurrent use; writes take effect immediately for every reader holding
// the same Store.
type Store struct {
	mu sync.RWMutex

	pageSize            int
	endpointDetails     any
	selectedEndpoint    map[string]string
	fabricSettings      fabric.Settings
	fabric              fabric.Fabric
	checkedThreadStatus bool
}

// NewStore returns a Store populated with defaults. The selected endpoint
// starts as an empty mapping and endpoint details start unset (nil).
func NewStore() *Store {
	return &Store{
		pageSize:         DefaultPageSize,
		selectedEndpoint: map[string]string{},
		fabricSettings:   fabric.NewSettings(),
		fabric:           fabric.NewFabric(),
	}
}

// PageSize returns the current table page size.
func (s *Store) PageSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pageSize
}

// SetPageSize replaces the table page size. Values are stored verbatim;
// callers decide what counts as sensible.
func (s *Store) SetPageSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = size
}

// EndpointDetails returns the cached endpoint details object, or nil when
// no endpoint details have been stored yet.
func (s *Store) EndpointDetails() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.endpointDetails
}

// SetEndpointDetails replaces the cached endpoint details object. Passing
// nil clears it back to the unset state.
func (s *Store) SetEndpointDetails(details any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpointDetails = details
}

// SelectedEndpoint returns a copy of the selected endpoint mapping. The
// result is never nil; an empty map means no endpoint is selected.
func (s *Store) SelectedEndpoint() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.selectedEndpoint))
	maps.Copy(out, s.selectedEndpoint)
	return out
}

// SetSelectedEndpoint replaces the selected endpoint mapping. A nil argument
// is normalised to an empty map so readers never observe nil.
func (s *Store) SetSelectedEndpoint(sel map[string]string) {
	cp := make(map[string]string, len(sel))
	maps.Copy(cp, sel)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedEndpoint = cp
}

// FabricSettings returns the current fabric settings value.
func (s *Store) FabricSettings() fabric.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fabricSettings
}

// SetFabricSettings replaces the fabric settings value.
func (s *Store) SetFabricSettings(settings fabric.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fabricSettings = settings
}

// Fabric returns the current fabric value.
func (s *Store) Fabric() fabric.Fabric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fabric
}

// SetFabric replaces the fabric value.
func (s *Store) SetFabric(f fabric.Fabric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fabric = f
}

// CheckedThreadStatus reports whether the session has already run its
// background worker health check.
func (s *Store) CheckedThreadStatus() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkedThreadStatus
}

// SetCheckedThreadStatus records whether the worker health check ran.
func (s *Store) SetCheckedThreadStatus(checked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkedThreadStatus = checked
}

// Snapshot is a point-in-time copy of every preference field.
type Snapshot struct {
	PageSize            int
	EndpointDetails     any
	SelectedEndpoint    map[string]string
	FabricSettings      fabric.Settings
	Fabric              fabric.Fabric
	CheckedThreadStatus bool
}

// Snapshot returns a consistent copy of all fields taken under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sel := make(map[string]string, len(s.selectedEndpoint))
	maps.Copy(sel, s.selectedEndpoint)

	return Snapshot{
		PageSize:            s.pageSize,
		EndpointDetails:     s.endpointDetails,
		SelectedEndpoint:    sel,
		FabricSettings:      s.fabricSettings,
		Fabric:              s.fabric,
		CheckedThreadStatus: s.checkedThreadStatus,
	}
}
