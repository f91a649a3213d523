package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "config.db")
	s, err := Open(Options{
		InstanceName: "test",
		ProfileName:  "default",
		DBPath:       dbPath,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenSeedsDefaults(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	defaults, err := s.GetPreferenceDefaults(ctx)
	if err != nil {
		t.Fatalf("get preference defaults: %v", err)
	}
	if defaults.PageSize != 10 {
		t.Errorf("expected seeded page size 10, got %d", defaults.PageSize)
	}
	if defaults.Timezone != "UTC" {
		t.Errorf("expected seeded timezone UTC, got %q", defaults.Timezone)
	}
	if defaults.SessionIdleTimeout != 30*time.Minute {
		t.Errorf("expected seeded idle timeout 30m, got %v", defaults.SessionIdleTimeout)
	}

	transport, err := s.GetTransportConfig(ctx)
	if err != nil {
		t.Fatalf("get transport config: %v", err)
	}
	if transport.Port != 8787 {
		t.Errorf("expected seeded port 8787, got %d", transport.Port)
	}
	if transport.Binding != "loopback" {
		t.Errorf("expected seeded binding loopback, got %q", transport.Binding)
	}

	auth, err := s.GetAuthConfig(ctx)
	if err != nil {
		t.Fatalf("get auth config: %v", err)
	}
	if auth.Required {
		t.Error("expected auth disabled by default")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	if err := s.SaveSettings(ctx, map[string]string{"custom.key": "value1"}); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	got, err := s.GetSetting(ctx, "custom.key")
	if err != nil {
		t.Fatalf("get setting: %v", err)
	}
	if got != "value1" {
		t.Errorf("expected value1, got %q", got)
	}

	// Upsert overwrites.
	if err := s.SaveSettings(ctx, map[string]string{"custom.key": "value2"}); err != nil {
		t.Fatalf("save settings (update): %v", err)
	}
	got, err = s.GetSetting(ctx, "custom.key")
	if err != nil {
		t.Fatalf("get setting after update: %v", err)
	}
	if got != "value2" {
		t.Errorf("expected value2, got %q", got)
	}
}

func TestGetSettingNotFound(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)

	_, err := s.GetSetting(context.Background(), "does.not.exist")
	if err == nil {
		t.Fatal("expected error for missing setting")
	}
	if !IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestNotFoundError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  NotFoundError
		want string
	}{
		{"with key", NotFoundError{Entity: "setting", Key: "x"}, "setting x not found"},
		{"without key", NotFoundError{Entity: "profile"}, "profile not found"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.err.Error(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestPreferenceDefaultsPersistAcrossReopen(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "config.db")
	ctx := context.Background()

	first, err := Open(Options{InstanceName: "persist", DBPath: dbPath})
	if err != nil {
		t.Fatalf("first open: %v", err)
	}

	want := PreferenceDefaults{
		PageSize:           25,
		Timezone:           "Europe/Berlin",
		FabricName:         "fab1",
		SessionIdleTimeout: time.Hour,
	}
	if err := first.SavePreferenceDefaults(ctx, want); err != nil {
		t.Fatalf("save preference defaults: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second, err := Open(Options{InstanceName: "persist", DBPath: dbPath})
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer second.Close()

	got, err := second.GetPreferenceDefaults(ctx)
	if err != nil {
		t.Fatalf("get preference defaults after reopen: %v", err)
	}
	if got != want {
		t.Errorf("defaults mismatch after reopen:\n got %+v\nwant %+v", got, want)
	}
}

func TestTransportConfigRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	cfg := TransportConfig{
		Port:           9090,
		Binding:        "all",
		AllowedOrigins: []string{"https://ui.example.com"},
	}
	if err := s.SaveTransportConfig(ctx, cfg); err != nil {
		t.Fatalf("save transport config: %v", err)
	}

	got, err := s.GetTransportConfig(ctx)
	if err != nil {
		t.Fatalf("get transport config: %v", err)
	}
	if got.Port != 9090 || got.Binding != "all" {
		t.Errorf("unexpected transport config: %+v", got)
	}
	if len(got.AllowedOrigins) != 1 || got.AllowedOrigins[0] != "https://ui.example.com" {
		t.Errorf("unexpected allowed origins: %v", got.AllowedOrigins)
	}
}

func TestAuthConfigRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	cfg := AuthConfig{Required: true, Tokens: []string{"tok-1", "tok-2"}}
	if err := s.SaveAuthConfig(ctx, cfg); err != nil {
		t.Fatalf("save auth config: %v", err)
	}

	got, err := s.GetAuthConfig(ctx)
	if err != nil {
		t.Fatalf("get auth config: %v", err)
	}
	if !got.Required {
		t.Error("expected auth required")
	}
	if len(got.Tokens) != 2 {
		t.Errorf("expected 2 tokens, got %v", got.Tokens)
	}
}

func TestReadOnlyStoreRejectsWrites(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "config.db")

	rw, err := Open(Options{InstanceName: "ro", DBPath: dbPath})
	if err != nil {
		t.Fatalf("open rw: %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("close rw: %v", err)
	}

	ro, err := Open(Options{InstanceName: "ro", DBPath: dbPath, ReadOnly: true})
	if err != nil {
		t.Fatalf("open ro: %v", err)
	}
	defer ro.Close()

	err = ro.SaveSettings(context.Background(), map[string]string{"k": "v"})
	if err == nil {
		t.Fatal("expected write to fail on read-only store")
	}
}
