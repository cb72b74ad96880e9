package ws_room

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/planpoker/core/internal/model"
	usecase_room "github.com/planpoker/core/internal/usecase/room"
)

const (
	EventRoomUpdate = "ROOM_UPDATE"
	EventError      = "ERROR"
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan Event
	user   model.User
	roomID int64
}

// Hub pushes fresh room snapshots to watching clients after every
// mutation. Snapshots are built per client, each watcher only ever sees
// what the polling API would show it.
type Hub struct {
	usecase    *usecase_room.Usecase
	logger     *slog.Logger
	rooms      map[int64]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	updated    chan int64
	mu         sync.RWMutex
}

func NewHub(usecase *usecase_room.Usecase) *Hub {
	return &Hub{
		usecase:    usecase,
		logger:     slog.Default(),
		rooms:      make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		updated:    make(chan int64, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case roomID := <-h.updated:
			h.pushSnapshots(roomID)
		}
	}
}

// NotifyRoomUpdated is fire and forget, a full watcher queue never
// blocks the mutating request.
func (h *Hub) NotifyRoomUpdated(roomID int64) {
	select {
	case h.updated <- roomID:
	default:
		h.logger.Warn("room update dropped", slog.Int64("room_id", roomID))
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	if _, exists := h.rooms[client.roomID]; !exists {
		h.rooms[client.roomID] = make(map[*Client]bool)
	}
	h.rooms[client.roomID][client] = true
	h.mu.Unlock()

	h.logger.Info("watcher registered",
		slog.Int64("user_id", client.user.ID),
		slog.Int64("room_id", client.roomID))

	h.pushSnapshots(client.roomID)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if roomClients, exists := h.rooms[client.roomID]; exists {
		if _, ok := roomClients[client]; ok {
			delete(roomClients, client)
			close(client.send)
			if len(roomClients) == 0 {
				delete(h.rooms, client.roomID)
			}
		}
	}

	h.logger.Info("watcher unregistered",
		slog.Int64("user_id", client.user.ID),
		slog.Int64("room_id", client.roomID))
}

func (h *Hub) pushSnapshots(roomID int64) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[roomID]))
	for client := range h.rooms[roomID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		roomInfo, err := h.usecase.Get(context.Background(), client.user, roomID)
		if err != nil {
			h.logger.Warn("snapshot push failed",
				slog.Int64("room_id", roomID),
				slog.Int64("user_id", client.user.ID),
				slog.String("error", err.Error()))
			client.trySend(Event{Type: EventError})
			continue
		}
		client.trySend(Event{Type: EventRoomUpdate, Payload: roomInfo})
	}
}

func (c *Client) trySend(event Event) {
	select {
	case c.send <- event:
	default:
		// Slow consumer, drop the event. The next update will catch it up.
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for event := range c.send {
		if err := c.conn.WriteJSON(event); err != nil {
			break
		}
	}
}
