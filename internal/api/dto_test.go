package api

import (
	"encoding/json"
	"testing"

	"github.com/fabriclens/fabriclens/internal/prefs"
)

func TestPreferencesPatchApply(t *testing.T) {
	t.Parallel()

	store := prefs.NewStore()

	var patch PreferencesPatch
	if err := json.Unmarshal([]byte(`{
		"page_size": 25,
		"selected_endpoint": {"id": "ep-1"},
		"checked_thread_status": true
	}`), &patch); err != nil {
		t.Fatalf("decode patch: %v", err)
	}

	changed, err := patch.Apply(store)
	if err != nil {
		t.Fatalf("apply patch: %v", err)
	}
	if len(changed) != 3 {
		t.Errorf("expected 3 changed fields, got %v", changed)
	}
	if store.PageSize() != 25 {
		t.Errorf("expected page size 25, got %d", store.PageSize())
	}
	if store.SelectedEndpoint()["id"] != "ep-1" {
		t.Errorf("unexpected selection: %v", store.SelectedEndpoint())
	}
	if !store.CheckedThreadStatus() {
		t.Error("expected checked thread status true")
	}
	// Untouched fields keep their defaults.
	if store.EndpointDetails() != nil {
		t.Error("endpoint details must stay unset for a patch that omits them")
	}
}

func TestPreferencesPatchEndpointDetailsStates(t *testing.T) {
	t.Parallel()

	store := prefs.NewStore()

	// Set a value.
	var setPatch PreferencesPatch
	if err := json.Unmarshal([]byte(`{"endpoint_details": {"mac": "aa:bb"}}`), &setPatch); err != nil {
		t.Fatalf("decode set patch: %v", err)
	}
	if _, err := setPatch.Apply(store); err != nil {
		t.Fatalf("apply set patch: %v", err)
	}
	details, ok := store.EndpointDetails().(map[string]any)
	if !ok || details["mac"] != "aa:bb" {
		t.Fatalf("unexpected endpoint details: %v", store.EndpointDetails())
	}

	// Absent key leaves the value alone.
	var noopPatch PreferencesPatch
	if err := json.Unmarshal([]byte(`{"page_size": 15}`), &noopPatch); err != nil {
		t.Fatalf("decode noop patch: %v", err)
	}
	if _, err := noopPatch.Apply(store); err != nil {
		t.Fatalf("apply noop patch: %v", err)
	}
	if store.EndpointDetails() == nil {
		t.Fatal("absent endpoint_details must not clear the stored value")
	}

	// Explicit null clears.
	var clearPatch PreferencesPatch
	if err := json.Unmarshal([]byte(`{"endpoint_details": null}`), &clearPatch); err != nil {
		t.Fatalf("decode clear patch: %v", err)
	}
	if clearPatch.EndpointDetails == nil {
		t.Fatal("JSON null must survive decoding as a raw message")
	}
	changed, err := clearPatch.Apply(store)
	if err != nil {
		t.Fatalf("apply clear patch: %v", err)
	}
	if len(changed) != 1 || changed[0] != "endpoint_details" {
		t.Errorf("unexpected changed fields: %v", changed)
	}
	if store.EndpointDetails() != nil {
		t.Errorf("expected cleared endpoint details, got %v", store.EndpointDetails())
	}
}

func TestPreferencesPatchIsEmpty(t *testing.T) {
	t.Parallel()

	if !(PreferencesPatch{}).IsEmpty() {
		t.Error("zero patch must be empty")
	}

	size := 20
	if (PreferencesPatch{PageSize: &size}).IsEmpty() {
		t.Error("patch with page size must not be empty")
	}
}

func TestPreferencesFromSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	store := prefs.NewStore()
	store.SetPageSize(25)
	store.SetSelectedEndpoint(map[string]string{"id": "ep-7"})

	dto := PreferencesFromSnapshot("sess-1", store.Snapshot())

	data, err := json.Marshal(dto)
	if err != nil {
		t.Fatalf("marshal dto: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal dto: %v", err)
	}
	if decoded["session_id"] != "sess-1" {
		t.Errorf("unexpected session_id: %v", decoded["session_id"])
	}
	if decoded["page_size"] != float64(25) {
		t.Errorf("unexpected page_size: %v", decoded["page_size"])
	}
	if _, present := decoded["endpoint_details"]; present {
		t.Error("unset endpoint details must be omitted from JSON")
	}
	if _, present := decoded["selected_endpoint"]; !present {
		t.Error("selected_endpoint must always be present")
	}
}
