// Package client implements the Go client for the fabriclensd HTTP and
// WebSocket API. The CLI is its primary consumer.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fabriclens/fabriclens/internal/api"
	configstore "github.com/fabriclens/fabriclens/internal/config/store"
)

const (
	defaultHTTPTimeout        = 30 * time.Second
	websocketHandshakeTimeout = 10 * time.Second
)

// Client communicates with the daemon using HTTP and WebSocket transports.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	dialer     *websocket.Dialer
}

// NewInitialisedClient constructs a client from explicit parameters.
func NewInitialisedClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		token:      strings.TrimSpace(token),
		dialer: &websocket.Dialer{
			Proxy:             http.ProxyFromEnvironment,
			HandshakeTimeout:  websocketHandshakeTimeout,
			EnableCompression: true,
		},
	}
}

// New initialises a client bound to the default instance/profile. The
// FABRICLENS_BASE_URL and FABRICLENS_API_TOKEN environment variables take
// precedence over the configuration store.
func New() (*Client, error) {
	token := strings.TrimSpace(os.Getenv("FABRICLENS_API_TOKEN"))

	if base := strings.TrimSpace(os.Getenv("FABRICLENS_BASE_URL")); base != "" {
		return NewInitialisedClient(base, token), nil
	}

	store, err := configstore.Open(configstore.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("client: open config store: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := store.GetTransportConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("client: daemon HTTP port not configured; is fabriclensd running?")
	}

	if token == "" {
		authCfg, err := store.GetAuthConfig(ctx)
		if err != nil {
			return nil, err
		}
		if len(authCfg.Tokens) > 0 {
			token = authCfg.Tokens[0]
		}
	}

	base := fmt.Sprintf("http://127.0.0.1:%d", cfg.Port)
	return NewInitialisedClient(base, token), nil
}

// doJSON performs an HTTP request with optional JSON body and decodes the
// JSON response into out (when out is non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("client: %s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("client: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

// Status fetches daemon status.
func (c *Client) Status(ctx context.Context) (api.StatusDTO, error) {
	var status api.StatusDTO
	err := c.doJSON(ctx, http.MethodGet, "/status", nil, &status)
	return status, err
}

// CreateSession creates (or reuses) a session and returns its preferences.
// An empty sessionID lets the daemon pick one.
func (c *Client) CreateSession(ctx context.Context, sessionID string) (api.PreferencesDTO, error) {
	req := map[string]string{"session_id": sessionID}
	var dto api.PreferencesDTO
	err := c.doJSON(ctx, http.MethodPost, "/sessions", req, &dto)
	return dto, err
}

// ListSessions lists live sessions.
func (c *Client) ListSessions(ctx context.Context) ([]api.SessionDTO, error) {
	var sessions []api.SessionDTO
	err := c.doJSON(ctx, http.MethodGet, "/sessions", nil, &sessions)
	return sessions, err
}

// RemoveSession discards a session and its preferences.
func (c *Client) RemoveSession(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(sessionID), nil, nil)
}

// GetPreferences fetches a session's preferences, creating the session on
// first use.
func (c *Client) GetPreferences(ctx context.Context, sessionID string) (api.PreferencesDTO, error) {
	var dto api.PreferencesDTO
	err := c.doJSON(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID)+"/preferences", nil, &dto)
	return dto, err
}

// UpdatePreferences applies a partial update and returns the new preferences.
func (c *Client) UpdatePreferences(ctx context.Context, sessionID string, patch api.PreferencesPatch) (api.PreferencesDTO, error) {
	var dto api.PreferencesDTO
	err := c.doJSON(ctx, http.MethodPut, "/sessions/"+url.PathEscape(sessionID)+"/preferences", patch, &dto)
	return dto, err
}

// GetDefaults fetches the seed values applied to new sessions.
func (c *Client) GetDefaults(ctx context.Context) (api.DefaultsDTO, error) {
	var dto api.DefaultsDTO
	err := c.doJSON(ctx, http.MethodGet, "/defaults", nil, &dto)
	return dto, err
}

// SetDefaults replaces the seed values applied to new sessions.
func (c *Client) SetDefaults(ctx context.Context, defaults api.DefaultsDTO) (api.DefaultsDTO, error) {
	var dto api.DefaultsDTO
	err := c.doJSON(ctx, http.MethodPut, "/defaults", defaults, &dto)
	return dto, err
}

// WatchEvents opens the event stream and invokes fn for every event until
// ctx is cancelled or the connection drops.
func (c *Client) WatchEvents(ctx context.Context, fn func(api.EventDTO)) error {
	wsURL, err := c.websocketURL()
	if err != nil {
		return err
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("client: websocket dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("client: websocket dial: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var event api.EventDTO
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("client: read event: %w", err)
		}
		fn(event)
	}
}

func (c *Client) websocketURL() (string, error) {
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("client: parse base URL: %w", err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("client: unsupported scheme %q", parsed.Scheme)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/ws"
	return parsed.String(), nil
}
