package web

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// MessageType identifies a WebSocket message
type MessageType string

const (
	MessageTypeStatus MessageType = "status"
	MessageTypeEvent  MessageType = "event"
)

// Message is the envelope sent to dashboard clients
type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

// StatusMessage reports the agent state
type StatusMessage struct {
	Status string `json:"status"`
}

// EventMessage mirrors one pipeline event
type EventMessage struct {
	Activation string  `json:"activation"`
	Kind       string  `json:"kind"`
	Text       string  `json:"text,omitempty"`
	Match      string  `json:"match,omitempty"`
	Score      float64 `json:"score,omitempty"`
}

// Hub keeps the set of connected clients and broadcasts to them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

// NewHub creates a hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves register/unregister/broadcast until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			if c.greeting != nil {
				c.send <- c.greeting
			}
			slog.Debug("WebSocket client connected", "clients", len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				slog.Debug("WebSocket client disconnected", "clients", len(h.clients))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

// Stop shuts the hub down and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// BroadcastMessage queues msg for every client. It never blocks; messages
// are dropped when the queue is full.
func (h *Hub) BroadcastMessage(msg Message) {
	data, err := encodeMessage(msg)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		slog.Warn("Broadcast queue full, dropping message", "type", msg.Type)
	}
}

func encodeMessage(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal message", "error", err)
	}
	return data, err
}

// Client is one WebSocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	// greeting is sent first, once the client is registered
	greeting []byte
}

// readPump drains the connection so control frames are processed
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("WebSocket read error", "error", err)
			}
			return
		}
	}
}

// writePump forwards queued messages and pings the client
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
