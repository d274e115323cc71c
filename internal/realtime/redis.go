package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "list_"

// RedisBroadcaster bridges the in-process hub over Redis pub/sub so that
// every API instance delivers events raised on any instance. Notify
// publishes; a background pump re-delivers into the local hub.
type RedisBroadcaster struct {
	hub    *Hub
	client *redis.Client
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisBroadcaster(redisURL string, hub *Hub) (*RedisBroadcaster, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisBroadcasterWithClient(client, hub), nil
}

// NewRedisBroadcasterWithClient wires an existing client, used by tests.
func NewRedisBroadcasterWithClient(client *redis.Client, hub *Hub) *RedisBroadcaster {
	b := &RedisBroadcaster{
		hub:    hub,
		client: client,
		pubsub: client.PSubscribe(context.Background(), channelPrefix+"*"),
		done:   make(chan struct{}),
	}
	go b.pump()
	return b
}

type envelope struct {
	Kind    string          `json:"event"`
	Payload json.RawMessage `json:"data"`
}

// Notify publishes the event to the list's channel. Publish failures are
// logged and swallowed: event delivery must never fail the mutation.
func (b *RedisBroadcaster) Notify(ctx context.Context, kind, listID string, payload any) {
	body, err := json.Marshal(envelope{Kind: kind, Payload: mustMarshal(payload)})
	if err != nil {
		log.Printf("realtime: marshal event %s for list %s: %v", kind, listID, err)
		return
	}
	if err := b.client.Publish(ctx, channelPrefix+listID, body).Err(); err != nil {
		log.Printf("realtime: publish event %s for list %s: %v", kind, listID, err)
	}
}

func (b *RedisBroadcaster) pump() {
	defer close(b.done)
	for msg := range b.pubsub.Channel() {
		listID := strings.TrimPrefix(msg.Channel, channelPrefix)
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Printf("realtime: bad event on %s: %v", msg.Channel, err)
			continue
		}
		b.hub.dispatch(Event{Kind: env.Kind, ListID: listID, Payload: env.Payload})
	}
}

func (b *RedisBroadcaster) Close() error {
	if err := b.pubsub.Close(); err != nil {
		return err
	}
	<-b.done
	return b.client.Close()
}

func mustMarshal(payload any) json.RawMessage {
	body, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return body
}
