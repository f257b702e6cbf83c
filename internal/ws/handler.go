package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a connected WebSocket client
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	playerID   int
	matchToken string
	send       chan []byte
	welcome    []byte // queued as soon as the client joins its room
}

// Hub maintains the set of active clients grouped by match token
type Hub struct {
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes registrations until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[client.matchToken]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.matchToken] = room
			}
			room[client] = true
			if client.welcome != nil {
				client.send <- client.welcome
			}
			h.mu.Unlock()
			log.Printf("[WS] Player %d watching match %s (room_size=%d)", client.playerID, client.matchToken, len(room))

		case client := <-h.unregister:
			h.mu.Lock()
			if room, ok := h.rooms[client.matchToken]; ok && room[client] {
				delete(room, client)
				if len(room) == 0 {
					delete(h.rooms, client.matchToken)
				}
				close(client.send)
				log.Printf("[WS] Player %d left match %s", client.playerID, client.matchToken)
			}
			h.mu.Unlock()
		}
	}
}

// RoomSize returns the number of clients watching a match
func (h *Hub) RoomSize(token string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[token])
}

// Message is the envelope used in both directions
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func encode(msgType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: msgType, Data: data})
}

// Broadcast sends a message to everyone watching the match
func (h *Hub) Broadcast(token, msgType string, payload interface{}) {
	data, err := encode(msgType, payload)
	if err != nil {
		log.Printf("[WS] Error marshaling %s message: %v", msgType, err)
		return
	}
	h.broadcastRaw(token, data)
}

func (h *Hub) broadcastRaw(token string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[token] {
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] Send buffer full for player %d in match %s, dropping message", client.playerID, token)
		}
	}
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for player %d: %v", c.playerID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for player %d: %v", c.playerID, err)
				return
			}
		}
	}
}

// sendJSON queues a message for this client only
func (c *Client) sendJSON(msgType string, payload interface{}) {
	data, err := encode(msgType, payload)
	if err != nil {
		log.Printf("[WS] Error marshaling %s message: %v", msgType, err)
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.rooms[c.matchToken][c] {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] Dropped %s for player %d (buffer full)", msgType, c.playerID)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.sendJSON("error", map[string]string{"message": message})
}
