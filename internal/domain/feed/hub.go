package feed

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"growly/internal/domain/lead"
	"growly/internal/pkg/logger"
	"growly/internal/pkg/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
	sendBuffer = 64
)

// connection represents a single admin dashboard
type connection struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans lead events out to every connected admin dashboard.
type Hub struct {
	mu          sync.RWMutex
	connections map[*connection]struct{}
	metrics     *metrics.Metrics
	log         logger.Logger
}

func NewHub(m *metrics.Metrics, log logger.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		connections: make(map[*connection]struct{}),
		metrics:     m,
		log:         log,
	}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = struct{}{}
	h.metrics.FeedConnected()
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c]; ok {
		delete(h.connections, c)
		close(c.send)
		h.metrics.FeedDisconnected()
	}
}

// Publish implements lead.Publisher. Slow clients are disconnected instead of
// blocking the request that produced the event.
func (h *Hub) Publish(event lead.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("feed event marshal failed", "type", event.Type, "error", err)
		return
	}

	var slow []*connection
	h.mu.RLock()
	for c := range h.connections {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow feed client")
		h.unregister(c)
	}
}

// Count returns the number of connected dashboards.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Close disconnects every dashboard.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.connections {
		delete(h.connections, c)
		close(c.send)
		h.metrics.FeedDisconnected()
	}
}

// ServeWS registers conn and blocks until it disconnects.
func (h *Hub) ServeWS(conn *websocket.Conn) {
	c := &connection{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

// readPump only services control frames; dashboards never send data.
func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("feed client read error", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
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
