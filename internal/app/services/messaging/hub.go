package messaging

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/campuslink/platform/internal/logging"
)

// Event is the wire frame pushed to connected clients.
type Event struct {
	Type     string    `json:"type"`
	ThreadID string    `json:"thread_id"`
	SenderID string    `json:"sender_id"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	sendBufferSize = 16
)

type client struct {
	userID string
	conn   *websocket.Conn
	send   chan Event
}

// Hub tracks live websocket connections per user. A nil Hub delivers
// nothing, so the service falls back to queued notifications.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]bool
	upgrader websocket.Upgrader
	log      *logging.Logger
}

// NewHub creates a connection hub.
func NewHub(log *logging.Logger) *Hub {
	if log == nil {
		log = logging.NewDefault("messaging-hub")
	}
	return &Hub{
		clients: make(map[string]map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Serve upgrades the request and pumps events to the user until the
// connection drops.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{userID: userID, conn: conn, send: make(chan Event, sendBufferSize)}
	h.register(c)
	h.log.WithField("user_id", userID).Debug("websocket connected")

	go h.writePump(c)
	h.readPump(c)
	return nil
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[c.userID]
	if !ok {
		conns = make(map[*client]bool)
		h.clients[c.userID] = conns
	}
	conns[c] = true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[c.userID]; ok {
		if conns[c] {
			delete(conns, c)
			close(c.send)
		}
		if len(conns) == 0 {
			delete(h.clients, c.userID)
		}
	}
}

// Deliver pushes an event to every live connection of userID. It reports
// whether at least one connection received it. Sends and the channel close
// in unregister are both serialized under mu, so a disconnect cannot close
// a channel mid-send; the send is non-blocking, so holding the lock is safe.
func (h *Hub) Deliver(userID string, event Event) bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := false
	conns := h.clients[userID]
	for c := range conns {
		select {
		case c.send <- event:
			delivered = true
		default:
			// Slow consumer; drop the connection rather than block.
			delete(conns, c)
			close(c.send)
			c.conn.Close()
		}
	}
	if len(conns) == 0 {
		delete(h.clients, userID)
	}
	return delivered
}

// Connected reports whether userID has at least one live connection.
func (h *Hub) Connected(userID string) bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
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

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
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
