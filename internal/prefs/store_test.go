package prefs

import (
	"testing"

	"github.com/fabriclens/fabriclens/internal/fabric"
)

func TestNewStoreDefaults(t *testing.T) {
	t.Parallel()

	s := NewStore()

	if got := s.PageSize(); got != DefaultPageSize {
		t.Errorf("expected page size %d, got %d", DefaultPageSize, got)
	}
	if s.EndpointDetails() != nil {
		t.Error("expected endpoint details to start unset")
	}
	sel := s.SelectedEndpoint()
	if sel == nil {
		t.Fatal("selected endpoint must never be nil")
	}
	if len(sel) != 0 {
		t.Errorf("expected empty selected endpoint, got %v", sel)
	}
	if s.FabricSettings() == (fabric.Settings{}) {
		t.Error("fabric settings must start with constructed defaults, not the zero value")
	}
	if s.Fabric() == (fabric.Fabric{}) {
		t.Error("fabric must start with constructed defaults, not the zero value")
	}
	if s.CheckedThreadStatus() {
		t.Error("expected checked thread status to start false")
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewStore()

	s.SetPageSize(25)
	if got := s.PageSize(); got != 25 {
		t.Errorf("expected page size 25, got %d", got)
	}

	s.SetSelectedEndpoint(map[string]string{"id": "ep-1"})
	if got := s.SelectedEndpoint(); got["id"] != "ep-1" {
		t.Errorf("expected selected endpoint ep-1, got %v", got)
	}

	details := map[string]any{"mac": "00:50:56:01:02:03", "vnid": 15302400}
	s.SetEndpointDetails(details)
	got, ok := s.EndpointDetails().(map[string]any)
	if !ok || got["mac"] != "00:50:56:01:02:03" {
		t.Errorf("expected stored endpoint details, got %v", s.EndpointDetails())
	}

	s.SetCheckedThreadStatus(true)
	if !s.CheckedThreadStatus() {
		t.Error("expected checked thread status true after set")
	}

	f := s.Fabric()
	f.Name = "fab1"
	s.SetFabric(f)
	if s.Fabric().Name != "fab1" {
		t.Errorf("expected fabric name fab1, got %q", s.Fabric().Name)
	}
}

func TestWritesVisibleThroughSharedReference(t *testing.T) {
	t.Parallel()

	s := NewStore()
	same := s // two handles, one store

	same.SetPageSize(50)
	if got := s.PageSize(); got != 50 {
		t.Errorf("expected write via one handle visible via the other, got %d", got)
	}
}

func TestFieldIndependence(t *testing.T) {
	t.Parallel()

	s := NewStore()
	before := s.Snapshot()

	s.SetPageSize(100)

	after := s.Snapshot()
	if after.CheckedThreadStatus != before.CheckedThreadStatus {
		t.Error("page size write must not touch checked thread status")
	}
	if len(after.SelectedEndpoint) != len(before.SelectedEndpoint) {
		t.Error("page size write must not touch selected endpoint")
	}
	if after.FabricSettings != before.FabricSettings {
		t.Error("page size write must not touch fabric settings")
	}
	if after.Fabric != before.Fabric {
		t.Error("page size write must not touch fabric")
	}
}

func TestSetSelectedEndpointNilNormalisedToEmpty(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.SetSelectedEndpoint(map[string]string{"id": "ep-1"})
	s.SetSelectedEndpoint(nil)

	sel := s.SelectedEndpoint()
	if sel == nil {
		t.Fatal("expected non-nil map after nil set")
	}
	if len(sel) != 0 {
		t.Errorf("expected cleared selection, got %v", sel)
	}
}

func TestSelectedEndpointCopyIsolation(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.SetSelectedEndpoint(map[string]string{"id": "ep-1"})

	got := s.SelectedEndpoint()
	got["id"] = "mutated"

	if s.SelectedEndpoint()["id"] != "ep-1" {
		t.Error("mutating a returned map must not affect the store")
	}
}

func TestClearEndpointDetails(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.SetEndpointDetails("anything")
	s.SetEndpointDetails(nil)

	if s.EndpointDetails() != nil {
		t.Errorf("expected cleared endpoint details, got %v", s.EndpointDetails())
	}
}

func TestSnapshotConsistency(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.SetPageSize(25)
	s.SetSelectedEndpoint(map[string]string{"id": "ep-9"})
	s.SetCheckedThreadStatus(true)

	snap := s.Snapshot()
	if snap.PageSize != 25 {
		t.Errorf("expected snapshot page size 25, got %d", snap.PageSize)
	}
	if snap.SelectedEndpoint["id"] != "ep-9" {
		t.Errorf("expected snapshot selection ep-9, got %v", snap.SelectedEndpoint)
	}
	if !snap.CheckedThreadStatus {
		t.Error("expected snapshot checked thread status true")
	}
}
