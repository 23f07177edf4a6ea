package websocket

import (
	"context"
	"sync"
)

// Hub tracks live connections by room. Rooms are keyed by conversation for
// admins and by user for clients that may not have a conversation yet.
type Hub struct {
	Rooms      map[string]*Room
	Register   chan *WSClient
	Unregister chan *WSClient

	mu      sync.RWMutex
	stopped chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]*Room),
		Register:   make(chan *WSClient),
		Unregister: make(chan *WSClient),
		stopped:    make(chan struct{}),
	}
}

// Run owns room membership until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			h.mu.Lock()
			room, ok := h.Rooms[client.RoomID]
			if !ok {
				room = &Room{ID: client.RoomID, Clients: make(map[string]*WSClient)}
				h.Rooms[client.RoomID] = room
			}
			room.Clients[client.ID] = client
			setRooms(len(h.Rooms))
			h.mu.Unlock()
			incConnections()

		case client := <-h.Unregister:
			h.mu.Lock()
			room, ok := h.Rooms[client.RoomID]
			if ok {
				if _, ok := room.Clients[client.ID]; ok {
					delete(room.Clients, client.ID)
					decConnections()
				}
				if len(room.Clients) == 0 {
					delete(h.Rooms, client.RoomID)
				}
			}
			setRooms(len(h.Rooms))
			h.mu.Unlock()
		}
	}
}

func (h *Hub) register(cl *WSClient) bool {
	select {
	case h.Register <- cl:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) unregister(cl *WSClient) {
	select {
	case h.Unregister <- cl:
	case <-h.stopped:
	}
}

// Snapshot lists rooms and their connection counts.
func (h *Hub) Snapshot() []RoomRes {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make([]RoomRes, 0, len(h.Rooms))
	for _, room := range h.Rooms {
		rooms = append(rooms, RoomRes{ID: room.ID, Clients: len(room.Clients)})
	}
	return rooms
}

func (h *Hub) ClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.Rooms[roomID]
	if !ok {
		return 0
	}
	return len(room.Clients)
}

func clientRoom(userID string) string {
	return "user:" + userID
}

func conversationRoom(conversationID string) string {
	return "conversation:" + conversationID
}
