package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fabriclens/fabriclens/internal/api"
	configstore "github.com/fabriclens/fabriclens/internal/config/store"
	"github.com/fabriclens/fabriclens/internal/eventbus"
	"github.com/fabriclens/fabriclens/internal/prefs"
	fabriclensversion "github.com/fabriclens/fabriclens/internal/version"
)

// PrefsManager defines the session preference operations the API needs.
type PrefsManager interface {
	Acquire(ctx context.Context, sessionID string) (*prefs.Store, bool)
	Lookup(sessionID string) (*prefs.Store, bool)
	Remove(ctx context.Context, sessionID string) bool
	Touch(sessionID string) bool
	Sessions() []prefs.SessionInfo
	SessionCount() int
	SetDefaults(prefs.Defaults)
	Defaults() prefs.Defaults
	SetIdleTimeout(time.Duration)
}

// ConfigStore defines the persistence operations the API needs.
type ConfigStore interface {
	GetTransportConfig(ctx context.Context) (configstore.TransportConfig, error)
	SaveTransportConfig(ctx context.Context, cfg configstore.TransportConfig) error
	GetAuthConfig(ctx context.Context) (configstore.AuthConfig, error)
	SaveAuthConfig(ctx context.Context, cfg configstore.AuthConfig) error
	GetPreferenceDefaults(ctx context.Context) (configstore.PreferenceDefaults, error)
	SavePreferenceDefaults(ctx context.Context, defaults configstore.PreferenceDefaults) error
}

// RuntimeInfoProvider defines methods required to expose runtime metadata.
type RuntimeInfoProvider interface {
	Port() int
	StartTime() time.Time
}

// authState groups authentication tokens and settings protected by a single
// read-write mutex.
type authState struct {
	authMu       sync.RWMutex
	authTokens   map[string]struct{}
	authRequired bool
}

func (a *authState) validateToken(token string) bool {
	if token == "" {
		return false
	}
	a.authMu.RLock()
	defer a.authMu.RUnlock()
	_, ok := a.authTokens[token]
	return ok
}

func (a *authState) isAuthRequired() bool {
	a.authMu.RLock()
	defer a.authMu.RUnlock()
	return a.authRequired
}

func (a *authState) setAuthTokens(tokens []string, required bool) {
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		trimmed := strings.TrimSpace(token)
		if trimmed == "" {
			continue
		}
		tokenSet[trimmed] = struct{}{}
	}

	a.authMu.Lock()
	a.authTokens = tokenSet
	a.authRequired = required
	a.authMu.Unlock()
}

// PreparedTransport holds transport parameters resolved by Prepare().
type PreparedTransport struct {
	Host string
	Port int
}

// APIServer provides the HTTP/WebSocket surface of the FabricLens daemon.
type APIServer struct {
	prefsManager PrefsManager
	configStore  ConfigStore
	runtime      RuntimeInfoProvider
	eventBus     *eventbus.Bus
	wsServer     *WSServer

	authState

	httpMu     sync.Mutex
	httpServer *http.Server
}

// NewAPIServer creates a new API server.
func NewAPIServer(prefsManager PrefsManager, configStore ConfigStore, runtime RuntimeInfoProvider) (*APIServer, error) {
	if prefsManager == nil {
		return nil, fmt.Errorf("server: preferences manager is required")
	}

	return &APIServer{
		prefsManager: prefsManager,
		configStore:  configStore,
		runtime:      runtime,
	}, nil
}

// SetEventBus wires the event bus.
func (s *APIServer) SetEventBus(bus *eventbus.Bus) {
	s.eventBus = bus
}

// WSServer exposes the WebSocket hub, initialised during Prepare.
func (s *APIServer) WSServer() *WSServer {
	return s.wsServer
}

// AuthRequired reports whether token-based authentication is enforced.
func (s *APIServer) AuthRequired() bool {
	return s.isAuthRequired()
}

// Prepare resolves transport and auth configuration from the store and
// applies the persisted preference defaults to the manager.
func (s *APIServer) Prepare(ctx context.Context) (*PreparedTransport, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := configstore.TransportConfig{Binding: "loopback"}
	if s.configStore != nil {
		storedCfg, err := s.configStore.GetTransportConfig(ctx)
		if err != nil {
			return nil, err
		}
		cfg = storedCfg
	}

	binding := normalizeBinding(cfg.Binding)
	host, err := resolveBindingHost(binding)
	if err != nil {
		return nil, err
	}

	// Non-loopback bindings always enforce authentication.
	authRequired := binding != "loopback"
	if s.configStore != nil {
		authCfg, err := s.configStore.GetAuthConfig(ctx)
		if err != nil {
			return nil, err
		}
		authRequired = authRequired || authCfg.Required
	}

	if err := s.ensureAuthTokens(ctx, authRequired); err != nil {
		return nil, err
	}

	if s.configStore != nil {
		defaults, err := s.configStore.GetPreferenceDefaults(ctx)
		if err != nil {
			return nil, err
		}
		s.prefsManager.SetDefaults(prefs.Defaults{
			PageSize:   defaults.PageSize,
			Timezone:   defaults.Timezone,
			FabricName: defaults.FabricName,
		})
		if defaults.SessionIdleTimeout > 0 {
			s.prefsManager.SetIdleTimeout(defaults.SessionIdleTimeout)
		}
	}

	s.wsServer = NewWSServer(s.prefsManager, originMatcher(cfg.AllowedOrigins))

	return &PreparedTransport{Host: host, Port: cfg.Port}, nil
}

// ensureAuthTokens loads persisted tokens, generating and storing one when
// authentication is required but no token exists yet.
func (s *APIServer) ensureAuthTokens(ctx context.Context, required bool) error {
	if !required {
		s.setAuthTokens(nil, false)
		return nil
	}

	var tokens []string
	if s.configStore != nil {
		authCfg, err := s.configStore.GetAuthConfig(ctx)
		if err != nil {
			return err
		}
		tokens = authCfg.Tokens

		if len(tokens) == 0 {
			token := uuid.NewString()
			tokens = []string{token}
			authCfg.Required = true
			authCfg.Tokens = tokens
			if err := s.configStore.SaveAuthConfig(ctx, authCfg); err != nil {
				return err
			}
			log.Printf("[APIServer] generated API token %s", maskToken(token))
		}
	}

	s.setAuthTokens(tokens, true)
	return nil
}

// Handler builds the HTTP routing table.
func (s *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/status", s.requireAuth(s.handleStatus))
	mux.HandleFunc("/sessions", s.requireAuth(s.handleSessionsRoot))
	mux.HandleFunc("/sessions/", s.requireAuth(s.handleSessionSubroutes))
	mux.HandleFunc("/defaults", s.requireAuth(s.handleDefaults))
	if s.wsServer != nil {
		mux.HandleFunc("/ws", s.requireAuth(s.wsServer.HandleWebSocket))
	}

	return mux
}

// Start begins serving HTTP on the prepared transport. It returns the
// effective port (useful when the configured port is 0).
func (s *APIServer) Start(ctx context.Context, transport *PreparedTransport) (int, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", transport.Host, transport.Port))
	if err != nil {
		return 0, fmt.Errorf("server: listen: %w", err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.httpMu.Lock()
	s.httpServer = srv
	s.httpMu.Unlock()

	port := listener.Addr().(*net.TCPAddr).Port
	log.Printf("[APIServer] listening on %s:%d", transport.Host, port)

	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("[APIServer] serve error: %v", err)
		}
	}()

	return port, nil
}

// UpdateActualPort persists the effective HTTP port back into the
// configuration store so clients can discover it, which matters when the
// configured port is 0 and the listener picked an ephemeral one.
func (s *APIServer) UpdateActualPort(ctx context.Context, port int) {
	if s.configStore == nil || port <= 0 {
		return
	}

	cfg, err := s.configStore.GetTransportConfig(ctx)
	if err != nil {
		log.Printf("[APIServer] failed to load transport config: %v", err)
		return
	}
	if cfg.Port == port {
		return
	}
	cfg.Port = port
	if err := s.configStore.SaveTransportConfig(ctx, cfg); err != nil {
		log.Printf("[APIServer] failed to persist transport port: %v", err)
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.httpMu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.httpMu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// requireAuth wraps a handler with bearer token validation.
func (s *APIServer) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.isAuthRequired() {
			next(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			// WebSocket clients from browsers cannot set headers on upgrade.
			token = r.URL.Query().Get("token")
		}
		if !s.validateToken(token) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// handleStatus serves GET /status.
func (s *APIServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := api.StatusDTO{
		Version:  fabriclensversion.String(),
		Sessions: s.prefsManager.SessionCount(),
	}
	if s.wsServer != nil {
		status.WSClients = s.wsServer.GetClientCount()
	}
	if s.runtime != nil {
		status.StartedAt = s.runtime.StartTime()
		status.Port = s.runtime.Port()
	}

	writeJSON(w, http.StatusOK, status)
}

func normalizeBinding(binding string) string {
	b := strings.TrimSpace(strings.ToLower(binding))
	if b == "" {
		return "loopback"
	}
	return b
}

func resolveBindingHost(binding string) (string, error) {
	switch binding {
	case "loopback":
		return "127.0.0.1", nil
	case "lan", "public", "all":
		return "0.0.0.0", nil
	default:
		return "", fmt.Errorf("server: unknown binding %q", binding)
	}
}

// originMatcher builds the Origin validation function used on WebSocket
// upgrades. An empty allowlist restricts upgrades to local origins.
func originMatcher(allowed []string) func(string) bool {
	allowSet := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			allowSet[trimmed] = struct{}{}
		}
	}

	return func(origin string) bool {
		if _, ok := allowSet[origin]; ok {
			return true
		}
		return isLocalOrigin(origin)
	}
}

func isLocalOrigin(origin string) bool {
	for _, prefix := range []string{"http://localhost", "https://localhost", "http://127.0.0.1", "https://127.0.0.1"} {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
