package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Publisher publishes storefront events for every instance (including this one).
type Publisher interface {
	PublishStorefrontEvent(event string, payload []byte) error
}

// Subscriber delivers storefront events published by any instance.
type Subscriber interface {
	SubscribeStorefront(handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub keeps the connected storefront clients and fans events out to them.
// With Redis configured, events go through the storefront channel so every instance delivers them once.
type Hub struct {
	clients map[string]*Client
	cancel  func()
	mu      sync.RWMutex
	logger  *zap.Logger
	pub     Publisher
	sub     Subscriber
}

// NewHub creates a new WebSocket hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
		pub:     pub,
		sub:     sub,
	}
}

// Register adds a client and starts the Redis subscription unless one is already running,
// so a failed attempt is retried by the next client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.sub != nil && h.cancel == nil {
		cancel, err := h.sub.SubscribeStorefront(func(event string, payload []byte) {
			h.deliver(event, json.RawMessage(payload))
		})
		if err != nil {
			h.logger.Warn("storefront subscribe failed", zap.Error(err))
		} else {
			h.cancel = cancel
		}
	}
	h.clients[c.ID] = c
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("storefront client connected", zap.String("client_id", c.ID), zap.Int("clients", count))
}

// Unregister removes a client. The last client leaving cancels the Redis subscription.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		close(c.send)
	}
	if len(h.clients) == 0 && h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()
	h.logger.Debug("storefront client disconnected", zap.String("client_id", c.ID))
}

// Broadcast sends an event to every storefront client on every instance. Local clients get
// it exactly once: through the subscription when one is live, directly otherwise.
func (h *Hub) Broadcast(event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("marshal broadcast payload", zap.String("event", event), zap.Error(err))
		return
	}
	published := false
	if h.pub != nil {
		if err := h.pub.PublishStorefrontEvent(event, data); err != nil {
			h.logger.Warn("storefront publish failed, delivering locally", zap.String("event", event), zap.Error(err))
		} else {
			published = true
		}
	}
	// without a live subscription the published copy never comes back to this instance
	if !published || !h.subscribed() {
		h.deliver(event, data)
	}
}

func (h *Hub) subscribed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sub != nil && h.cancel != nil
}

// ClientCount returns the number of connected clients on this instance.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// deliver sends to local clients only.
func (h *Hub) deliver(event string, data json.RawMessage) {
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// sendTo delivers to one local client.
func (h *Hub) sendTo(c *Client, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	select {
	case c.send <- WSMessage{Event: event, Data: data}:
	default:
	}
}
