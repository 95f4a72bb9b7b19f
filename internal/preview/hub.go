package preview

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 << 10
	sendBuffer = 64
)

// Event is a message pushed to WebSocket clients.
type Event struct {
	Type   string  `json:"type"`
	Phase  string  `json:"phase,omitempty"`
	Stats  *Status `json:"stats,omitempty"`
	Sample uint32  `json:"sample,omitempty"`
	Bytes  int64   `json:"bytes,omitempty"`
}

type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	logger  *slog.Logger
	// onCancel is called when a client sends a cancel request.
	onCancel func()
}

func newHub(logger *slog.Logger, onCancel func()) *hub {
	return &hub{
		clients:  make(map[*client]struct{}),
		logger:   logger,
		onCancel: onCancel,
	}
}

// add registers a client. first, if not nil, is the first message it
// receives.
func (h *hub) add(conn *websocket.Conn, first []byte) *client {
	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	if first != nil {
		c.send <- first
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("preview client connected", "clients", n)
	return c
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("preview client disconnected", "clients", n)
}

// broadcast queues ev for every client. Clients whose buffer is full miss
// the event.
func (h *hub) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("preview event encode failed", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("preview client too slow, event dropped", "type", ev.Type)
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

type client struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte
}

type request struct {
	Type string `json:"type"`
}

func (c *client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("preview read error", "error", err)
			}
			return
		}
		var req request
		if err := json.Unmarshal(msg, &req); err != nil {
			c.hub.logger.Debug("preview request ignored", "error", err)
			continue
		}
		if req.Type == "cancel" && c.hub.onCancel != nil {
			c.hub.onCancel()
		}
	}
}

func (c *client) writePump() {
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
