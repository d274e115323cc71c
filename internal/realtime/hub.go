// Package realtime fans mutation events out to subscribers grouped by list.
package realtime

import (
	"context"
	"sync"
)

// Event kinds pushed to subscribed clients.
const (
	KindListUpdated   = "list.updated"
	KindItemUpdated   = "item.updated"
	KindListCompleted = "list.completed"
	KindShareRevoked  = "share.revoked"
)

type Event struct {
	Kind    string `json:"event"`
	ListID  string `json:"listId"`
	Payload any    `json:"data"`
}

// subscriberBuffer bounds each subscriber channel. Delivery is
// fire-and-forget: a full buffer drops the event rather than blocking the
// mutation that produced it.
const subscriberBuffer = 16

// Hub is an in-process room registry. Rooms are keyed by list id and carry
// no authorization: anyone who knows a list id can join its room.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[string]chan Event
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[string]chan Event)}
}

// Join subscribes a connection to the room for listID and returns the
// channel events arrive on.
func (h *Hub) Join(listID, connID string) <-chan Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[listID]
	if !ok {
		room = make(map[string]chan Event)
		h.rooms[listID] = room
	}
	ch := make(chan Event, subscriberBuffer)
	room[connID] = ch
	return ch
}

// Leave removes a connection from the room and closes its channel. Leaving
// a room the connection never joined is a no-op.
func (h *Hub) Leave(listID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[listID]
	if !ok {
		return
	}
	ch, ok := room[connID]
	if !ok {
		return
	}
	delete(room, connID)
	close(ch)
	if len(room) == 0 {
		delete(h.rooms, listID)
	}
}

// Notify delivers the event to every current subscriber of the list's room.
// It never blocks and never fails the caller.
func (h *Hub) Notify(_ context.Context, kind, listID string, payload any) {
	h.dispatch(Event{Kind: kind, ListID: listID, Payload: payload})
}

func (h *Hub) dispatch(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.rooms[event.ListID] {
		select {
		case ch <- event:
		default:
			// Slow subscriber; drop.
		}
	}
}
