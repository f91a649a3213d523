package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fabriclens/fabriclens/internal/api"
	configstore "github.com/fabriclens/fabriclens/internal/config/store"
	"github.com/fabriclens/fabriclens/internal/eventbus"
	"github.com/fabriclens/fabriclens/internal/prefs"
)

// handleDefaults serves GET/PUT /defaults, the admin-tunable seed values
// applied to new sessions.
func (s *APIServer) handleDefaults(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		dto, err := s.currentDefaults(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, dto)

	case http.MethodPut:
		var req api.DefaultsDTO
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.PageSize <= 0 {
			writeError(w, http.StatusBadRequest, "page_size must be positive")
			return
		}

		var idle time.Duration
		if req.SessionIdleTimeout != "" {
			parsed, err := time.ParseDuration(req.SessionIdleTimeout)
			if err != nil || parsed < 0 {
				writeError(w, http.StatusBadRequest, "invalid session_idle_timeout")
				return
			}
			idle = parsed
		}

		if s.configStore != nil {
			err := s.configStore.SavePreferenceDefaults(r.Context(), configstore.PreferenceDefaults{
				PageSize:           req.PageSize,
				Timezone:           req.Timezone,
				FabricName:         req.FabricName,
				SessionIdleTimeout: idle,
			})
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
		}

		s.prefsManager.SetDefaults(prefs.Defaults{
			PageSize:   req.PageSize,
			Timezone:   req.Timezone,
			FabricName: req.FabricName,
		})
		if idle > 0 {
			s.prefsManager.SetIdleTimeout(idle)
		}

		eventbus.Publish(r.Context(), s.eventBus, eventbus.Defaults.Changed, eventbus.SourceAPIServer, eventbus.DefaultsChangedEvent{
			PageSize: req.PageSize,
		})

		dto, err := s.currentDefaults(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, dto)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *APIServer) currentDefaults(ctx context.Context) (api.DefaultsDTO, error) {
	if s.configStore != nil {
		stored, err := s.configStore.GetPreferenceDefaults(ctx)
		if err != nil {
			return api.DefaultsDTO{}, err
		}
		return api.DefaultsDTO{
			PageSize:           stored.PageSize,
			Timezone:           stored.Timezone,
			FabricName:         stored.FabricName,
			SessionIdleTimeout: stored.SessionIdleTimeout.String(),
		}, nil
	}

	current := s.prefsManager.Defaults()
	return api.DefaultsDTO{
		PageSize:   current.PageSize,
		Timezone:   current.Timezone,
		FabricName: current.FabricName,
	}, nil
}
