package realtime

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishSync/internal/metrics"
)

// Hub maintains the rooms: the set of live connections per wishlist. A
// single Hub goroutine serializes membership changes through the register
// and unregister channels; broadcasts read the table under a read lock.
type Hub struct {
	logger *logrus.Logger

	register   chan *Client
	unregister chan *Client
	// done is closed when Run stops, so Join and Leave never block a
	// connection goroutine once nobody is receiving.
	done chan struct{}

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewHub creates a Hub with initialized channels and an empty room table.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger:     logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
	}
}

// Run processes membership events until the context is cancelled. It should
// be launched in its own goroutine before any connection is accepted.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[client.roomID]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[client.roomID] = room
			}
			room[client] = struct{}{}
			h.mu.Unlock()
			h.logger.WithFields(logrus.Fields{
				"room": client.roomID,
				"user": client.user.Name,
			}).Info("Client joined room")

		case client := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.roomID]; ok {
				if _, joined := room[client]; joined {
					delete(room, client)
					client.close()
					if len(room) == 0 {
						delete(h.rooms, client.roomID)
					}
				}
			}
			h.mu.Unlock()
			h.logger.WithFields(logrus.Fields{
				"room": client.roomID,
				"user": client.user.Name,
			}).Info("Client left room")

		case <-ctx.Done():
			h.mu.Lock()
			for roomID, room := range h.rooms {
				for client := range room {
					client.close()
				}
				delete(h.rooms, roomID)
			}
			h.mu.Unlock()
			close(h.done)
			h.logger.Info("Hub stopped")
			return
		}
	}
}

// Join registers the client in its room. After shutdown the client is closed
// instead of registered.
func (h *Hub) Join(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Leave removes the client from its room and shuts it down. Safe to call
// after shutdown, when the room table is already gone.
func (h *Hub) Leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.close()
	}
}

// Broadcast fans a message out to every connection in the room, the sender
// included. Fire-and-forget: a client whose queue is full misses the
// message and is left to the liveness timeout.
func (h *Hub) Broadcast(roomID string, msg Outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.rooms[roomID]
	for client := range room {
		if !client.enqueue(msg) {
			h.logger.WithFields(logrus.Fields{
				"room": roomID,
				"user": client.user.Name,
			}).Warn("Dropping broadcast for slow client")
		}
	}
	metrics.BroadcastSent()
}

// RoomSize returns the number of connections in the room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
