package server

import (
	"context"
	"testing"
	"time"
)

func TestHubShutdownReleasesDetachingClients(t *testing.T) {
	t.Parallel()

	ws := NewWSServer(nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		ws.Run(ctx)
		close(hubDone)
	}()

	client := &Client{server: ws, send: make(chan []byte, 1)}
	select {
	case ws.register <- client:
	case <-time.After(time.Second):
		t.Fatal("hub did not accept registration")
	}

	deadline := time.Now().Add(time.Second)
	for ws.GetClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 1 registered client, got %d", ws.GetClientCount())
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case <-hubDone:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop on context cancellation")
	}

	// A client whose read loop ends after the hub stopped must still be
	// able to detach instead of blocking on the unregister channel.
	released := make(chan struct{})
	go func() {
		ws.unregisterClient(client)
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("client detach blocked after hub stop")
	}
}
