package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/jamesEmerson112/virtual-cursor/internal/power"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// LiveLine is the websocket message for one status line.
type LiveLine struct {
	Type      string  `json:"type"`
	Timestamp string  `json:"timestamp"`
	Power     float64 `json:"power"`
	Average   float64 `json:"average"`
	Max       float64 `json:"max"`
	Label     string  `json:"label"`
	Tier      string  `json:"tier"`
}

// Hub fans status lines out to connected websocket clients. Slow clients are
// dropped rather than allowed to hold up the event path.
type Hub struct {
	clients *xsync.MapOf[*wsClient, struct{}]
	log     *zap.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: xsync.NewMapOf[*wsClient, struct{}](),
		log:     logger,
	}
}

// EmitStatus implements power.Sink.
func (h *Hub) EmitStatus(line power.StatusLine) {
	msg, err := json.Marshal(LiveLine{
		Type:      "status",
		Timestamp: line.Timestamp.UTC().Format(time.RFC3339Nano),
		Power:     line.Power,
		Average:   line.Average,
		Max:       line.Max,
		Label:     string(line.Label),
		Tier:      string(line.Tier),
	})
	if err != nil {
		return
	}
	h.Broadcast(msg)
}

// Broadcast queues msg for every client without blocking.
func (h *Hub) Broadcast(msg []byte) {
	h.clients.Range(func(c *wsClient, _ struct{}) bool {
		if !c.trySend(msg) {
			h.log.Debug("dropping slow websocket client", zap.String("remote", c.remote))
			h.remove(c)
		}
		return true
	})
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	return h.clients.Size()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.clients.Range(func(c *wsClient, _ struct{}) bool {
		h.remove(c)
		return true
	})
}

func (h *Hub) remove(c *wsClient) {
	if _, ok := h.clients.LoadAndDelete(c); ok {
		c.close()
	}
}

// serve upgrades the request and registers the client. first, if not
// nil, is sent before any live line.
func (h *Hub) serve(w http.ResponseWriter, r *http.Request, first []byte) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer), remote: r.RemoteAddr}
	if first != nil {
		c.trySend(first)
	}
	h.clients.Store(c, struct{}{})

	go c.writePump()
	go func() {
		c.readPump()
		h.remove(c)
	}()
}

type wsClient struct {
	conn   *websocket.Conn
	remote string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func (c *wsClient) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump discards client messages; it exists to process pongs and notice
// the peer going away.
func (c *wsClient) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
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
