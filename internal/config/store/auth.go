package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// AuthConfig describes API authentication for the active profile.
type AuthConfig struct {
	Required bool
	Tokens   []string
}

// GetAuthConfig loads authentication settings.
func (s *Store) GetAuthConfig(ctx context.Context) (AuthConfig, error) {
	settings, err := s.LoadSettings(ctx, "auth.required", "auth.tokens")
	if err != nil {
		return AuthConfig{}, err
	}

	cfg := AuthConfig{Tokens: []string{}}

	if requiredStr := settings["auth.required"]; requiredStr != "" {
		required, err := strconv.ParseBool(requiredStr)
		if err != nil {
			return AuthConfig{}, fmt.Errorf("config: parse auth.required: %w", err)
		}
		cfg.Required = required
	}

	if tokensJSON, ok := settings["auth.tokens"]; ok && tokensJSON != "" {
		tokens, err := DecodeJSON[[]string](sql.NullString{String: tokensJSON, Valid: true})
		if err != nil {
			return AuthConfig{}, fmt.Errorf("config: parse auth.tokens: %w", err)
		}
		cfg.Tokens = tokens
	}

	return cfg, nil
}

// SaveAuthConfig persists authentication settings.
func (s *Store) SaveAuthConfig(ctx context.Context, cfg AuthConfig) error {
	tokensArg, err := encodeJSON(cfg.Tokens, nullWhenEmptySlice[string])
	if err != nil {
		return fmt.Errorf("config: marshal auth.tokens: %w", err)
	}
	tokensJSON := ""
	if tokensArg != nil {
		tokensJSON = tokensArg.(string)
	}

	values := map[string]string{
		"auth.required": strconv.FormatBool(cfg.Required),
		"auth.tokens":   tokensJSON,
	}

	return s.SaveSettings(ctx, values)
}
