package httpserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// sendBufferSize is the channel buffer for outgoing messages per client.
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamClient is one connected WebSocket subscriber.
type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans the scheduler's per-poll status snapshot out to WebSocket
// clients. A client whose send buffer is full is dropped rather than allowed
// to stall the broadcast.
type Hub struct {
	logger  *zap.Logger
	mu      sync.Mutex
	clients map[*streamClient]bool
}

// NewHub creates a new status stream hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*streamClient]bool),
	}
}

// Broadcast marshals v once and queues it to every connected client.
func (h *Hub) Broadcast(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("broadcast-marshal-failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("dropping-slow-stream-client")
			delete(h.clients, client)
			close(client.send)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and registers the connection with the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws-upgrade-failed", zap.Error(err))
		return
	}

	client := &streamClient{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()

	h.logger.Info("stream-client-connected",
		zap.String("remote-addr", conn.RemoteAddr().String()))

	go h.writePump(client)
	go h.readPump(client)
}

// writePump pushes queued snapshots and pings to one client.
func (h *Hub) writePump(client *streamClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			err := client.conn.WriteMessage(websocket.TextMessage, data)
			if err != nil {
				h.unregister(client)
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := client.conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				h.unregister(client)
				return
			}
		}
	}
}

// readPump discards inbound messages; the stream is one-way. It exists to
// notice closes and keep the pong deadline fresh.
func (h *Hub) readPump(client *streamClient) {
	defer func() {
		h.unregister(client)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
	}
}

// unregister removes a client if it is still registered.
func (h *Hub) unregister(client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client] {
		delete(h.clients, client)
		close(client.send)
	}
}
