package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pulsepoint/eris-api/dispatch"
)

const (
	// sendBuffer is how many events a client may lag behind before it is dropped
	sendBuffer = 16
	writeWait  = 10 * time.Second
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust CORS as needed, e.g., check r.Header.Get("Origin")
	},
}

// StateEvent is one message on the state feed
type StateEvent struct {
	Event   string         `json:"event"`
	Command string         `json:"command,omitempty"`
	Data    dispatch.State `json:"data"`
}

type hubClient struct {
	id   string
	conn *websocket.Conn
	send chan StateEvent
}

// StateReader runs fn against the current state with commits held off,
// like Engine.Read
type StateReader func(fn func(dispatch.State) error) error

// StateHub pushes the state to connected clients after every applied command
type StateHub struct {
	read StateReader

	clients map[string]*hubClient
	mutex   sync.Mutex
}

// NewStateHub creates a hub greeting new clients with the state seen by read.
// Broadcast must be called with the same commits held off, as an engine
// commit hook is.
func NewStateHub(read StateReader) *StateHub {
	return &StateHub{
		read:    read,
		clients: make(map[string]*hubClient),
	}
}

// ServeHTTP upgrades the request and registers the client
func (h *StateHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade error", "error", err)
		return
	}

	c := &hubClient{id: uuid.New().String(), conn: conn, send: make(chan StateEvent, sendBuffer)}
	// the greeting and registration happen together, so the next commit
	// reaches the client right after its snapshot
	_ = h.read(func(s dispatch.State) error {
		h.mutex.Lock()
		defer h.mutex.Unlock()
		h.clients[c.id] = c
		c.send <- StateEvent{Event: "snapshot", Data: s}
		return nil
	})
	zap.S().Infow("client connected to /ws/state", "client", c.id, "user", actor(r))

	go h.writePump(c)

	// Keep connection alive
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
	h.remove(c.id)
	zap.S().Infow("client disconnected from /ws/state", "client", c.id)
}

// Broadcast queues the committed state for every client. Clients that fall
// too far behind are disconnected.
func (h *StateHub) Broadcast(c dispatch.Commit) {
	ev := StateEvent{Event: "commit", Command: c.Command, Data: c.State}

	h.mutex.Lock()
	var slow []string
	for id, client := range h.clients {
		select {
		case client.send <- ev:
		default:
			slow = append(slow, id)
		}
	}
	h.mutex.Unlock()

	for _, id := range slow {
		zap.S().Warnw("dropping slow websocket client", "client", id)
		h.remove(id)
	}
}

// Clients returns the number of connected clients
func (h *StateHub) Clients() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *StateHub) Close() {
	h.mutex.Lock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mutex.Unlock()
	for _, id := range ids {
		h.remove(id)
	}
}

func (h *StateHub) remove(id string) {
	h.mutex.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mutex.Unlock()
	if ok {
		close(c.send)
	}
}

func (h *StateHub) writePump(c *hubClient) {
	defer c.conn.Close()
	for ev := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			zap.S().Warnw("error sending state to websocket client", "client", c.id, "error", err)
			h.remove(c.id)
			// drain until remove closes the channel
			for range c.send {
			}
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
