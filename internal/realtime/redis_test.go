package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupBroadcaster(t *testing.T) (*RedisBroadcaster, *Hub) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	hub := NewHub()
	broadcaster := NewRedisBroadcasterWithClient(client, hub)
	t.Cleanup(func() { _ = broadcaster.Close() })
	return broadcaster, hub
}

func TestRedisBroadcasterRoundTrip(t *testing.T) {
	broadcaster, hub := setupBroadcaster(t)
	events := hub.Join("list-1", "conn-1")

	// The pattern subscription registers asynchronously.
	time.Sleep(50 * time.Millisecond)

	broadcaster.Notify(context.Background(), KindShareRevoked, "list-1", map[string]string{
		"message": "Share link has been revoked",
	})

	select {
	case event := <-events:
		if event.Kind != KindShareRevoked {
			t.Errorf("expected %s, got %s", KindShareRevoked, event.Kind)
		}
		if event.ListID != "list-1" {
			t.Errorf("expected list-1, got %s", event.ListID)
		}
		raw, ok := event.Payload.(json.RawMessage)
		if !ok {
			t.Fatalf("expected raw payload, got %T", event.Payload)
		}
		var payload map[string]string
		if err := json.Unmarshal(raw, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload["message"] != "Share link has been revoked" {
			t.Errorf("unexpected payload: %v", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected event via redis bridge")
	}
}

func TestRedisBroadcasterScopesByList(t *testing.T) {
	broadcaster, hub := setupBroadcaster(t)
	other := hub.Join("list-2", "conn-2")

	time.Sleep(50 * time.Millisecond)

	broadcaster.Notify(context.Background(), KindListUpdated, "list-1", nil)

	select {
	case event := <-other:
		t.Fatalf("unexpected event in list-2 room: %+v", event)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestNewRedisBroadcasterRejectsBadURL(t *testing.T) {
	if _, err := NewRedisBroadcaster("::not-a-url::", NewHub()); err == nil {
		t.Fatal("expected error for malformed redis url")
	}
}
