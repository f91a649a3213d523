package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fabriclens/fabriclens/internal/api"
	"github.com/fabriclens/fabriclens/internal/eventbus"
)

// handleSessionsRoot serves /sessions (list and create).
func (s *APIServer) handleSessionsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, api.SessionsFromInfos(s.prefsManager.Sessions()))

	case http.MethodPost:
		var req struct {
			SessionID string `json:"session_id"`
		}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		sessionID := strings.TrimSpace(req.SessionID)
		if sessionID == "" {
			sessionID = uuid.NewString()[:8]
		}

		store, created := s.prefsManager.Acquire(r.Context(), sessionID)
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, api.PreferencesFromSnapshot(sessionID, store.Snapshot()))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSessionSubroutes serves /sessions/{id} and /sessions/{id}/preferences.
func (s *APIServer) handleSessionSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	sessionID := parts[0]
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id required")
		return
	}

	switch {
	case len(parts) == 1:
		s.handleSession(w, r, sessionID)
	case len(parts) == 2 && parts[1] == "preferences":
		s.handleSessionPreferences(w, r, sessionID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *APIServer) handleSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	switch r.Method {
	case http.MethodGet:
		for _, info := range s.prefsManager.Sessions() {
			if info.ID == sessionID {
				s.prefsManager.Touch(sessionID)
				writeJSON(w, http.StatusOK, api.SessionDTO{
					ID:         info.ID,
					CreatedAt:  info.CreatedAt,
					LastAccess: info.LastAccess,
				})
				return
			}
		}
		writeError(w, http.StatusNotFound, "session not found")

	case http.MethodDelete:
		if !s.prefsManager.Remove(r.Context(), sessionID) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSessionPreferences serves GET/PUT /sessions/{id}/preferences.
// Both verbs acquire the session, creating it on first use.
func (s *APIServer) handleSessionPreferences(w http.ResponseWriter, r *http.Request, sessionID string) {
	switch r.Method {
	case http.MethodGet:
		store, _ := s.prefsManager.Acquire(r.Context(), sessionID)
		writeJSON(w, http.StatusOK, api.PreferencesFromSnapshot(sessionID, store.Snapshot()))

	case http.MethodPut, http.MethodPatch:
		var patch api.PreferencesPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		store, _ := s.prefsManager.Acquire(r.Context(), sessionID)
		changed, err := patch.Apply(store)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		snap := store.Snapshot()
		dto := api.PreferencesFromSnapshot(sessionID, snap)
		for _, field := range changed {
			eventbus.Publish(r.Context(), s.eventBus, eventbus.Prefs.Changed, eventbus.SourceAPIServer, eventbus.PreferenceChangedEvent{
				SessionID: sessionID,
				Field:     field,
				Value:     fieldValue(dto, field),
			})
		}

		writeJSON(w, http.StatusOK, dto)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func fieldValue(dto api.PreferencesDTO, field string) any {
	switch field {
	case "page_size":
		return dto.PageSize
	case "endpoint_details":
		return dto.EndpointDetails
	case "selected_endpoint":
		return dto.SelectedEndpoint
	case "fabric_settings":
		return dto.FabricSettings
	case "fabric":
		return dto.Fabric
	case "checked_thread_status":
		return dto.CheckedThreadStatus
	default:
		return nil
	}
}
