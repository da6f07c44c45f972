package visualizer

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketHub broadcasts avatar events to connected WebSocket clients.
// Delivery is best effort: a full broadcast queue drops the event, and a
// slow client is disconnected rather than allowed to stall the hub.
type WebSocketHub struct {
	upgrader websocket.Upgrader

	broadcast  chan Event
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		broadcast:  make(chan Event, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Name identifies the hub as a platform support module.
func (h *WebSocketHub) Name() string {
	return "websocket-visualizer"
}

// Start launches the broadcast loop.
func (h *WebSocketHub) Start(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}
	h.started = true
	h.wg.Add(1)
	go h.run()
	return nil
}

// Stop closes all client connections and stops the broadcast loop.
func (h *WebSocketHub) Stop(_ context.Context) error {
	h.mu.Lock()
	if !h.started {
		h.mu.Unlock()
		return nil
	}
	h.started = false
	close(h.done)
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}

func (h *WebSocketHub) CreateAvatar(event Event) {
	event.Kind = EventCreate
	h.enqueue(event)
}

func (h *WebSocketHub) UpdateAvatar(event Event) {
	event.Kind = EventUpdate
	h.enqueue(event)
}

func (h *WebSocketHub) DestroyAvatar(event Event) {
	event.Kind = EventDestroy
	h.enqueue(event)
}

func (h *WebSocketHub) enqueue(event Event) {
	select {
	case h.broadcast <- event:
	case <-h.done:
	default:
	}
}

// ServeHTTP upgrades an incoming request and registers the connection.
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		_ = conn.Close()
	}
}

func (h *WebSocketHub) run() {
	defer h.wg.Done()

	clients := make(map[*websocket.Conn]struct{})
	defer func() {
		for conn := range clients {
			_ = conn.Close()
		}
	}()

	for {
		select {
		case conn := <-h.register:
			clients[conn] = struct{}{}
		case conn := <-h.unregister:
			if _, ok := clients[conn]; ok {
				delete(clients, conn)
				_ = conn.Close()
			}
		case event := <-h.broadcast:
			for conn := range clients {
				if err := conn.WriteJSON(event); err != nil {
					delete(clients, conn)
					_ = conn.Close()
				}
			}
		case <-h.done:
			return
		}
	}
}
