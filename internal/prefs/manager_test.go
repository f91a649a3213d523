package prefs

import (
	"context"
	"testing"
	"time"

	"github.com/fabriclens/fabriclens/internal/eventbus"
)

func TestAcquireIsIdentityStable(t *testing.T) {
	t.Parallel()

	m := NewManager()
	ctx := context.Background()

	first, created := m.Acquire(ctx, "sess-1")
	if !created {
		t.Fatal("expected first acquire to create the session")
	}
	second, created := m.Acquire(ctx, "sess-1")
	if created {
		t.Fatal("expected second acquire to reuse the session")
	}
	if first != second {
		t.Fatal("expected the same store instance for the same session")
	}

	first.SetPageSize(25)
	if got := second.PageSize(); got != 25 {
		t.Errorf("expected shared state across handles, got page size %d", got)
	}
}

func TestAcquireAppliesDefaults(t *testing.T) {
	t.Parallel()

	m := NewManager()
	m.SetDefaults(Defaults{PageSize: 50, Timezone: "Europe/Berlin", FabricName: "fab1"})

	store, _ := m.Acquire(context.Background(), "sess-d")
	if got := store.PageSize(); got != 50 {
		t.Errorf("expected seeded page size 50, got %d", got)
	}
	if got := store.FabricSettings().Timezone; got != "Europe/Berlin" {
		t.Errorf("expected seeded timezone, got %q", got)
	}
	if got := store.Fabric().Name; got != "fab1" {
		t.Errorf("expected seeded fabric name, got %q", got)
	}
}

func TestDefaultsDoNotTouchExistingSessions(t *testing.T) {
	t.Parallel()

	m := NewManager()
	ctx := context.Background()

	existing, _ := m.Acquire(ctx, "old")
	m.SetDefaults(Defaults{PageSize: 99})

	if got := existing.PageSize(); got != DefaultPageSize {
		t.Errorf("existing session changed by defaults update: page size %d", got)
	}

	fresh, _ := m.Acquire(ctx, "new")
	if got := fresh.PageSize(); got != 99 {
		t.Errorf("expected new session to pick up defaults, got %d", got)
	}
}

func TestRemoveDiscardsSession(t *testing.T) {
	t.Parallel()

	m := NewManager()
	ctx := context.Background()

	store, _ := m.Acquire(ctx, "gone")
	store.SetPageSize(42)

	if !m.Remove(ctx, "gone") {
		t.Fatal("expected remove to succeed")
	}
	if m.Remove(ctx, "gone") {
		t.Fatal("expected second remove to report missing session")
	}

	replacement, created := m.Acquire(ctx, "gone")
	if !created {
		t.Fatal("expected a fresh session after removal")
	}
	if got := replacement.PageSize(); got != DefaultPageSize {
		t.Errorf("expected fresh defaults after removal, got page size %d", got)
	}
}

func TestLifecycleEventsPublished(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	defer bus.Shutdown()

	m := NewManager()
	m.UseEventBus(bus)

	sub := eventbus.SubscribeTo(bus, eventbus.Sessions.Lifecycle)
	defer sub.Close()

	ctx := context.Background()
	m.Acquire(ctx, "evt")
	m.Remove(ctx, "evt")

	states := []eventbus.SessionState{}
	timeout := time.After(time.Second)
	for len(states) < 2 {
		select {
		case env := <-sub.C():
			if env.Payload.SessionID != "evt" {
				t.Errorf("unexpected session id %q", env.Payload.SessionID)
			}
			states = append(states, env.Payload.State)
		case <-timeout:
			t.Fatalf("timed out, saw states %v", states)
		}
	}
	if states[0] != eventbus.SessionStateCreated || states[1] != eventbus.SessionStateRemoved {
		t.Errorf("unexpected lifecycle order: %v", states)
	}
}

func TestReapIdleRemovesStaleSessions(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	defer bus.Shutdown()

	m := NewManager()
	m.UseEventBus(bus)
	m.SetIdleTimeout(10 * time.Minute)

	ctx := context.Background()
	m.Acquire(ctx, "stale")
	m.Acquire(ctx, "fresh")
	if !m.BackdateAccess("stale", time.Hour) {
		t.Fatal("backdate failed")
	}

	sub := eventbus.SubscribeTo(bus, eventbus.Sessions.Lifecycle)
	defer sub.Close()

	expired := m.ReapIdle(ctx)
	if len(expired) != 1 || expired[0] != "stale" {
		t.Fatalf("expected only the stale session reaped, got %v", expired)
	}
	if _, ok := m.Lookup("stale"); ok {
		t.Error("stale session still present after reap")
	}
	if _, ok := m.Lookup("fresh"); !ok {
		t.Error("fresh session reaped by mistake")
	}

	select {
	case env := <-sub.C():
		if env.Payload.Reason != eventbus.SessionReasonExpired {
			t.Errorf("expected expiry reason, got %q", env.Payload.Reason)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for expiry event")
	}
}

func TestReapIdleDisabledWithZeroTimeout(t *testing.T) {
	t.Parallel()

	m := NewManager()
	m.SetIdleTimeout(0)

	ctx := context.Background()
	m.Acquire(ctx, "kept")
	m.BackdateAccess("kept", 24*time.Hour)

	if expired := m.ReapIdle(ctx); len(expired) != 0 {
		t.Fatalf("expected no expiry with zero timeout, got %v", expired)
	}
}

func TestTouchRefreshesAccess(t *testing.T) {
	t.Parallel()

	m := NewManager()
	m.SetIdleTimeout(10 * time.Minute)

	ctx := context.Background()
	m.Acquire(ctx, "touched")
	m.BackdateAccess("touched", time.Hour)

	if !m.Touch("touched") {
		t.Fatal("expected touch to find the session")
	}
	if expired := m.ReapIdle(ctx); len(expired) != 0 {
		t.Fatalf("touched session expired anyway: %v", expired)
	}
	if m.Touch("missing") {
		t.Error("expected touch on unknown session to report false")
	}
}

func TestSessionsOrderedByCreation(t *testing.T) {
	t.Parallel()

	m := NewManager()
	ctx := context.Background()

	m.Acquire(ctx, "b")
	m.Acquire(ctx, "a")

	infos := m.Sessions()
	if len(infos) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(infos))
	}
	if m.SessionCount() != 2 {
		t.Errorf("expected session count 2, got %d", m.SessionCount())
	}
	if infos[0].CreatedAt.After(infos[1].CreatedAt) {
		t.Error("sessions not ordered by creation time")
	}
}
