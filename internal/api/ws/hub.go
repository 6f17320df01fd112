// Package ws pushes every appended MUF point to connected WebSocket
// clients so live charts update without polling.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// Hub fans appended points out to subscribers. Slow subscribers miss
// messages rather than backpressuring the refresh cycle.
type Hub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[chan []byte]struct{}),
		log:     log,
	}
}

// Broadcast marshals v once and sends it to every subscriber without
// blocking. Never called from more than one writer at a time in
// practice, but safe regardless.
func (h *Hub) Broadcast(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.log.Error("broadcast marshal failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- payload:
		default:
			// Client is not keeping up; it just misses this point.
		}
	}
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register() chan []byte {
	ch := make(chan []byte, 8)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unregister(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// UpgradeRequired gates the websocket route: plain HTTP requests get 426.
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the fiber handler serving one subscriber connection.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		ch := h.register()
		defer h.unregister(ch)

		h.log.Debug("ws client connected", zap.Int("clients", h.ClientCount()))

		// Drain inbound frames to notice the peer going away.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case msg := <-ch:
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	})
}
