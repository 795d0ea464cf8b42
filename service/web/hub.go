package web

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/khaledhikmat/yawn-go/service/lgr"
)

// hub fans messages out to websocket clients. A client whose buffer is full
// is dropped rather than slowing everyone down.
type hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan registration
	unregister chan *client
	done       chan struct{}
	once       sync.Once
	mu         sync.RWMutex
}

type client struct {
	send chan []byte
}

// registration is acked once the client is in the clients map.
type registration struct {
	c   *client
	ack chan struct{}
}

func newHub() *hub {
	return &hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan registration),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

func newClient() *client {
	return &client{
		send: make(chan []byte, 64),
	}
}

func (h *hub) stop() {
	h.once.Do(func() {
		close(h.done)
	})
}

func (h *hub) add(c *client) bool {
	reg := registration{c: c, ack: make(chan struct{})}
	select {
	case h.register <- reg:
	case <-h.done:
		return false
	}

	select {
	case <-reg.ack:
		return true
	case <-h.done:
		return false
	}
}

func (h *hub) remove(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case reg := <-h.register:
			h.mu.Lock()
			h.clients[reg.c] = true
			h.mu.Unlock()
			close(reg.ack)
			lgr.Logger.Debug("websocket client connected", slog.Int("clients", h.count()))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			lgr.Logger.Debug("websocket client disconnected", slog.Int("clients", h.count()))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
					lgr.Logger.Warn("dropped slow websocket client")
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *hub) publish(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- data:
	default:
		lgr.Logger.Warn("websocket broadcast channel full, dropping message")
	}
	return nil
}

func (h *hub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
