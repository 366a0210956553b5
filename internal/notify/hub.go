package notify

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Hub :
// Streams the events to the players connected through a
// websocket. A player receives only its own events. Slow
// clients whose buffer is full are disconnected rather
// than slowing the engine down.
//
// The `clients` associates each player to its connections.
type Hub struct {
	upgrader websocket.Upgrader
	lock     sync.Mutex
	clients  map[string]map[*client]struct{}
	log      logger.Logger
}

// client :
// A single websocket connection.
type client struct {
	hub    *Hub
	player string
	conn   *websocket.Conn
	send   chan Event
	once   sync.Once
}

// NewHub :
// Creates a hub accepting connections from any origin.
func NewHub(log logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]map[*client]struct{}),
		log:     log,
	}
}

// Notify :
// Implementation of the `Notifier` interface.
func (h *Hub) Notify(event Event) {
	h.lock.Lock()
	defer h.lock.Unlock()

	for c := range h.clients[event.Player] {
		select {
		case c.send <- event:
		default:
			h.log.Trace(logger.Warning, "hub", fmt.Sprintf("Dropping slow client of \"%s\"", c.player))
			h.removeLocked(c)
		}
	}
}

// Connected :
// Returns the number of connections of the player.
func (h *Hub) Connected(player string) int {
	h.lock.Lock()
	defer h.lock.Unlock()

	return len(h.clients[player])
}

// Serve :
// Upgrades the request to a websocket streaming the events
// of the player.
func (h *Hub) Serve(player string, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Trace(logger.Error, "hub", fmt.Sprintf("Failed to upgrade connection (err: %v)", err))
		return
	}

	c := &client{
		hub:    h,
		player: player,
		conn:   conn,
		send:   make(chan Event, sendBuffer),
	}

	h.lock.Lock()
	if h.clients[player] == nil {
		h.clients[player] = make(map[*client]struct{})
	}
	h.clients[player][c] = struct{}{}
	h.lock.Unlock()

	h.log.Trace(logger.Verbose, "hub", fmt.Sprintf("Player \"%s\" subscribed to events", player))

	go c.writeLoop()
	go c.readLoop()
}

// removeLocked :
// Unregisters the client. The lock must be held.
func (h *Hub) removeLocked(c *client) {
	conns, ok := h.clients[c.player]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}

	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.player)
	}

	c.once.Do(func() {
		close(c.send)
	})
}

func (h *Hub) remove(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.removeLocked(c)
}

// readLoop :
// Drains the messages of the client, which are ignored, in
// order to process the control frames. Unregisters the
// client when the connection drops.
func (c *client) readLoop() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop :
// Writes the events and pings the client periodically.
func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
