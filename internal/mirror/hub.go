// Package mirror implements the realtime channel that fans product/category
// snapshots out to every connected terminal. It is a read-replica
// notification path only: nothing received here is ever persisted, and
// nothing emitted here counts as a durable write.
package mirror

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// frame pairs a payload with its origin so the hub can skip echoing a
// terminal's own update back at it.
type frame struct {
	sender *websocket.Conn
	data   []byte
}

// Hub owns the set of connected terminals and rebroadcasts every received
// frame to all peers except the sender.
type Hub struct {
	mu         sync.Mutex
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan frame
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan frame, 16),
		done:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Close is called.
// Start it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("terminals", n).Msg("mirror: terminal connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Info().Int("terminals", n).Msg("mirror: terminal disconnected")

		case f := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				if conn == f.sender {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, f.data); err != nil {
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Close shuts the hub down and disconnects every terminal.
func (h *Hub) Close() {
	close(h.done)
}

// Serve registers conn and pumps its incoming frames into the broadcast
// channel until the connection drops. It blocks, so call it from the
// handler goroutine that owns the upgraded connection.
func (h *Hub) Serve(conn *websocket.Conn) {
	h.register <- conn
	defer func() {
		select {
		case h.unregister <- conn:
		case <-h.done:
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		select {
		case h.broadcast <- frame{sender: conn, data: data}:
		case <-h.done:
			return
		}
	}
}
