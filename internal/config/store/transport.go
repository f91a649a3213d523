package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// TransportConfig describes how the daemon exposes its HTTP/WebSocket API.
type TransportConfig struct {
	Port           int
	Binding        string // "loopback" or "all"
	AllowedOrigins []string
}

// GetTransportConfig loads transport-related settings for the active profile.
func (s *Store) GetTransportConfig(ctx context.Context) (TransportConfig, error) {
	settings, err := s.LoadSettings(ctx,
		"transport.http_port",
		"transport.binding",
		"transport.allowed_origins",
	)
	if err != nil {
		return TransportConfig{}, err
	}

	cfg := TransportConfig{
		Binding:        "loopback",
		AllowedOrigins: []string{},
	}

	if portStr := settings["transport.http_port"]; portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return TransportConfig{}, fmt.Errorf("config: parse transport.http_port: %w", err)
		}
		cfg.Port = port
	}

	if binding := settings["transport.binding"]; binding != "" {
		cfg.Binding = binding
	}

	if originsJSON, ok := settings["transport.allowed_origins"]; ok && originsJSON != "" {
		origins, err := DecodeJSON[[]string](sql.NullString{String: originsJSON, Valid: true})
		if err != nil {
			return TransportConfig{}, fmt.Errorf("config: parse transport.allowed_origins: %w", err)
		}
		cfg.AllowedOrigins = origins
	}

	return cfg, nil
}

// SaveTransportConfig persists the provided transport configuration.
func (s *Store) SaveTransportConfig(ctx context.Context, cfg TransportConfig) error {
	originsArg, err := encodeJSON(cfg.AllowedOrigins, nullWhenEmptySlice[string])
	if err != nil {
		return fmt.Errorf("config: marshal transport.allowed_origins: %w", err)
	}
	originsJSON := ""
	if originsArg != nil {
		originsJSON = originsArg.(string)
	}

	values := map[string]string{
		"transport.http_port":       strconv.Itoa(cfg.Port),
		"transport.binding":         cfg.Binding,
		"transport.allowed_origins": originsJSON,
	}

	return s.SaveSettings(ctx, values)
}
