// Package api defines the wire types shared by the daemon's HTTP handlers
// and the Go client.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fabriclens/fabriclens/internal/fabric"
	"github.com/fabriclens/fabriclens/internal/prefs"
)

// PreferencesDTO is the wire representation of one session's preferences.
type PreferencesDTO struct {
	SessionID           string            `json:"session_id"`
	PageSize            int               `json:"page_size"`
	EndpointDetails     any               `json:"endpoint_details,omitempty"`
	SelectedEndpoint    map[string]string `json:"selected_endpoint"`
	FabricSettings      fabric.Settings   `json:"fabric_settings"`
	Fabric              fabric.Fabric     `json:"fabric"`
	CheckedThreadStatus bool              `json:"checked_thread_status"`
}

// PreferencesFromSnapshot converts an internal snapshot to its wire form.
func PreferencesFromSnapshot(sessionID string, snap prefs.Snapshot) PreferencesDTO {
	return PreferencesDTO{
		SessionID:           sessionID,
		PageSize:            snap.PageSize,
		EndpointDetails:     snap.EndpointDetails,
		SelectedEndpoint:    snap.SelectedEndpoint,
		FabricSettings:      snap.FabricSettings,
		Fabric:              snap.Fabric,
		CheckedThreadStatus: snap.CheckedThreadStatus,
	}
}

// PreferencesPatch carries a partial preferences update. Pointer fields left
// nil are not touched. EndpointDetails distinguishes three states: absent
// (untouched), JSON null (cleared) and any other JSON value (replaced).
type PreferencesPatch struct {
	PageSize            *int               `json:"page_size,omitempty"`
	EndpointDetails     json.RawMessage    `json:"endpoint_details,omitempty"`
	SelectedEndpoint    *map[string]string `json:"selected_endpoint,omitempty"`
	FabricSettings      *fabric.Settings   `json:"fabric_settings,omitempty"`
	Fabric              *fabric.Fabric     `json:"fabric,omitempty"`
	CheckedThreadStatus *bool              `json:"checked_thread_status,omitempty"`
}

// IsEmpty reports whether the patch touches no field at all.
func (p PreferencesPatch) IsEmpty() bool {
	return p.PageSize == nil &&
		p.EndpointDetails == nil &&
		p.SelectedEndpoint == nil &&
		p.FabricSettings == nil &&
		p.Fabric == nil &&
		p.CheckedThreadStatus == nil
}

// Apply writes the patch onto the store and returns the names of the fields
// it changed, in a fixed order.
func (p PreferencesPatch) Apply(store *prefs.Store) ([]string, error) {
	var changed []string

	if p.PageSize != nil {
		store.SetPageSize(*p.PageSize)
		changed = append(changed, "page_size")
	}

	if p.EndpointDetails != nil {
		if bytes.Equal(bytes.TrimSpace(p.EndpointDetails), []byte("null")) {
			store.SetEndpointDetails(nil)
		} else {
			var details any
			if err := json.Unmarshal(p.EndpointDetails, &details); err != nil {
				return changed, fmt.Errorf("api: decode endpoint_details: %w", err)
			}
			store.SetEndpointDetails(details)
		}
		changed = append(changed, "endpoint_details")
	}

	if p.SelectedEndpoint != nil {
		store.SetSelectedEndpoint(*p.SelectedEndpoint)
		changed = append(changed, "selected_endpoint")
	}

	if p.FabricSettings != nil {
		store.SetFabricSettings(*p.FabricSettings)
		changed = append(changed, "fabric_settings")
	}

	if p.Fabric != nil {
		store.SetFabric(*p.Fabric)
		changed = append(changed, "fabric")
	}

	if p.CheckedThreadStatus != nil {
		store.SetCheckedThreadStatus(*p.CheckedThreadStatus)
		changed = append(changed, "checked_thread_status")
	}

	return changed, nil
}

// SessionDTO describes one live session.
type SessionDTO struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
}

// SessionsFromInfos converts manager listings to their wire form.
func SessionsFromInfos(infos []prefs.SessionInfo) []SessionDTO {
	out := make([]SessionDTO, 0, len(infos))
	for _, info := range infos {
		out = append(out, SessionDTO{
			ID:         info.ID,
			CreatedAt:  info.CreatedAt,
			LastAccess: info.LastAccess,
		})
	}
	return out
}

// DefaultsDTO is the wire representation of the preference seed values.
type DefaultsDTO struct {
	PageSize           int    `json:"page_size"`
	Timezone           string `json:"timezone"`
	FabricName         string `json:"fabric_name"`
	SessionIdleTimeout string `json:"session_idle_timeout"`
}

// StatusDTO summarises daemon health for GET /status.
type StatusDTO struct {
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
	Sessions  int       `json:"sessions"`
	WSClients int       `json:"ws_clients"`
	Port      int       `json:"port"`
}

// EventDTO is the WebSocket message envelope pushed to connected clients.
type EventDTO struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
