package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zde37/ringlookup/internal/chord"
	"github.com/zde37/ringlookup/pkg"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// Size of the send buffer per client
	sendBufferSize = 256
)

var _ chord.EventBroadcaster = (*TraceHub)(nil)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client represents a connected WebSocket client.
type client struct {
	hub  *TraceHub
	conn *websocket.Conn
	send chan []byte // Buffered channel of outbound messages
}

// TraceHub streams lookup events to connected WebSocket clients.
type TraceHub struct {
	clients map[*client]bool

	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	shutdown   chan struct{}
	stopOnce   sync.Once

	wg sync.WaitGroup
	mu sync.RWMutex

	logger *pkg.Logger
}

// NewTraceHub creates a new hub.
func NewTraceHub(logger *pkg.Logger) *TraceHub {
	if logger == nil {
		logger = pkg.Nop()
	}
	return &TraceHub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 1024),
		register:   make(chan *client),
		unregister: make(chan *client),
		shutdown:   make(chan struct{}),
		logger:     logger.WithFields(pkg.Fields{"component": "trace_hub"}),
	}
}

// Start runs the hub in the background until Stop.
func (h *TraceHub) Start() {
	h.wg.Add(1)
	go h.run()
}

func (h *TraceHub) run() {
	defer h.wg.Done()

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("total_clients", total).Msg("Trace client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("total_clients", total).Msg("Trace client disconnected")

		case message := <-h.broadcast:
			h.mu.RLock()
			var slow []*client
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				h.logger.Warn().Msg("Trace client send buffer full, disconnecting slow client")
				go func(cl *client) {
					select {
					case h.unregister <- cl:
					case <-h.shutdown:
					}
				}(c)
			}

		case <-h.shutdown:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				c.conn.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.logger.Debug().Msg("Trace hub shutdown complete")
			return
		}
	}
}

// Stop shuts the hub down and waits for it to exit.
func (h *TraceHub) Stop() {
	h.stopOnce.Do(func() { close(h.shutdown) })
	h.wg.Wait()
}

// ClientCount returns the number of connected clients.
func (h *TraceHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump drains the connection so pongs and close frames are processed.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug().Err(err).Msg("Trace client closed unexpectedly")
			}
			return
		}
	}
}

// writePump is the only writer of the connection. Each event is written as
// its own text frame.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// HandleWebSocket upgrades the request and registers the client.
func (h *TraceHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade to websocket")
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	select {
	case h.register <- c:
	case <-h.shutdown:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// BroadcastLookupEvent queues an event for every connected client. Events are
// dropped rather than slowing the service loops down.
func (h *TraceHub) BroadcastLookupEvent(event chord.LookupEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn().Str("event", event.Type).Msg("Broadcast channel full, dropping event")
	}
	return nil
}
