package store

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// PreferenceDefaults are the seed values applied to every newly created
// preferences session.
type PreferenceDefaults struct {
	PageSize           int
	Timezone           string
	FabricName         string
	SessionIdleTimeout time.Duration
}

// GetPreferenceDefaults loads the preference seed values for the active profile.
func (s *Store) GetPreferenceDefaults(ctx context.Context) (PreferenceDefaults, error) {
	settings, err := s.LoadSettings(ctx,
		"prefs.default_page_size",
		"prefs.default_timezone",
		"prefs.default_fabric",
		"prefs.session_idle_timeout",
	)
	if err != nil {
		return PreferenceDefaults{}, err
	}

	defaults := PreferenceDefaults{
		PageSize: 10,
		Timezone: "UTC",
	}

	if sizeStr := settings["prefs.default_page_size"]; sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			return PreferenceDefaults{}, fmt.Errorf("config: parse prefs.default_page_size: %w", err)
		}
		defaults.PageSize = size
	}

	if tz := settings["prefs.default_timezone"]; tz != "" {
		defaults.Timezone = tz
	}
	defaults.FabricName = settings["prefs.default_fabric"]

	if idleStr := settings["prefs.session_idle_timeout"]; idleStr != "" {
		idle, err := time.ParseDuration(idleStr)
		if err != nil {
			return PreferenceDefaults{}, fmt.Errorf("config: parse prefs.session_idle_timeout: %w", err)
		}
		defaults.SessionIdleTimeout = idle
	}

	return defaults, nil
}

// SavePreferenceDefaults persists the preference seed values.
func (s *Store) SavePreferenceDefaults(ctx context.Context, defaults PreferenceDefaults) error {
	values := map[string]string{
		"prefs.default_page_size":    strconv.Itoa(defaults.PageSize),
		"prefs.default_timezone":     defaults.Timezone,
		"prefs.default_fabric":       defaults.FabricName,
		"prefs.session_idle_timeout": defaults.SessionIdleTimeout.String(),
	}

	return s.SaveSettings(ctx, values)
}
