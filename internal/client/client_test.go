package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/fabriclens/fabriclens/internal/api"
	"github.com/fabriclens/fabriclens/internal/eventbus"
	"github.com/fabriclens/fabriclens/internal/prefs"
	"github.com/fabriclens/fabriclens/internal/server"
)

func newTestDaemon(t *testing.T) *Client {
	t.Helper()

	manager := prefs.NewManager()
	bus := eventbus.New()
	t.Cleanup(bus.Shutdown)
	manager.UseEventBus(bus)

	apiServer, err := server.NewAPIServer(manager, nil, nil)
	if err != nil {
		t.Fatalf("new api server: %v", err)
	}
	apiServer.SetEventBus(bus)

	ts := httptest.NewServer(apiServer.Handler())
	t.Cleanup(ts.Close)

	return NewInitialisedClient(ts.URL, "")
}

func TestClientSessionLifecycle(t *testing.T) {
	t.Parallel()

	c := newTestDaemon(t)
	ctx := context.Background()

	created, err := c.CreateSession(ctx, "cli-1")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if created.SessionID != "cli-1" {
		t.Errorf("expected session cli-1, got %q", created.SessionID)
	}
	if created.PageSize != prefs.DefaultPageSize {
		t.Errorf("expected default page size, got %d", created.PageSize)
	}

	sessions, err := c.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "cli-1" {
		t.Errorf("unexpected sessions: %+v", sessions)
	}

	if err := c.RemoveSession(ctx, "cli-1"); err != nil {
		t.Fatalf("remove session: %v", err)
	}

	sessions, err = c.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list sessions after remove: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected no sessions, got %+v", sessions)
	}
}

func TestClientPreferencesRoundTrip(t *testing.T) {
	t.Parallel()

	c := newTestDaemon(t)
	ctx := context.Background()

	size := 25
	checked := true
	sel := map[string]string{"id": "ep-1"}

	updated, err := c.UpdatePreferences(ctx, "cli-2", api.PreferencesPatch{
		PageSize:            &size,
		SelectedEndpoint:    &sel,
		CheckedThreadStatus: &checked,
	})
	if err != nil {
		t.Fatalf("update preferences: %v", err)
	}
	if updated.PageSize != 25 {
		t.Errorf("expected page size 25, got %d", updated.PageSize)
	}
	if !updated.CheckedThreadStatus {
		t.Error("expected checked thread status true")
	}

	fetched, err := c.GetPreferences(ctx, "cli-2")
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if fetched.PageSize != 25 || fetched.SelectedEndpoint["id"] != "ep-1" {
		t.Errorf("unexpected preferences: %+v", fetched)
	}
}

func TestClientDefaults(t *testing.T) {
	t.Parallel()

	c := newTestDaemon(t)
	ctx := context.Background()

	updated, err := c.SetDefaults(ctx, api.DefaultsDTO{PageSize: 100, Timezone: "UTC"})
	if err != nil {
		t.Fatalf("set defaults: %v", err)
	}
	if updated.PageSize != 100 {
		t.Errorf("expected page size 100, got %d", updated.PageSize)
	}

	fresh, err := c.GetPreferences(ctx, "after-defaults")
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if fresh.PageSize != 100 {
		t.Errorf("expected new session to inherit defaults, got %d", fresh.PageSize)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	t.Parallel()

	c := newTestDaemon(t)

	err := c.RemoveSession(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error removing missing session")
	}
}

func TestClientStatus(t *testing.T) {
	t.Parallel()

	c := newTestDaemon(t)

	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Version == "" {
		t.Error("expected version in status response")
	}
}

func TestClientRejectsUnreachableDaemon(t *testing.T) {
	t.Parallel()

	c := NewInitialisedClient("http://127.0.0.1:1", "")
	if _, err := c.Status(context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
}
