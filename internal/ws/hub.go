package ws

import (
	"context"
	"sync"

	"github.com/hafiportrait/gallery-gateway/internal/backbone"
	"github.com/hafiportrait/gallery-gateway/internal/room"
)

// Hub resolves room membership to live connections and fans frames out,
// locally and (when a backbone is configured) to other gateway instances.
type Hub struct {
	mu     sync.RWMutex
	byConn map[string]*Client

	conns    *ConnManager
	registry *room.Registry
	mirror   *backbone.Backbone // nil in single-instance mode
}

// NewHub creates a Hub over the given connection manager and registry.
// mirror may be nil to run without cross-instance fan-out.
func NewHub(conns *ConnManager, registry *room.Registry, mirror *backbone.Backbone) *Hub {
	return &Hub{
		byConn:   make(map[string]*Client),
		conns:    conns,
		registry: registry,
		mirror:   mirror,
	}
}

// ConnMgr returns the connection manager for this hub.
func (h *Hub) ConnMgr() *ConnManager {
	return h.conns
}

// StartMirror subscribes to the backbone so frames broadcast by other
// instances reach locally-connected members. No-op without a backbone.
func (h *Hub) StartMirror(ctx context.Context) {
	if h.mirror == nil {
		return
	}
	h.mirror.Subscribe(ctx, h.deliverLocal)
}

// AddClient registers a client's connection. The returned context is
// cancelled when the connection is torn down.
func (h *Hub) AddClient(c *Client) context.Context {
	ctx := h.conns.Add(c)

	h.mu.Lock()
	h.byConn[c.sess.ConnID] = c
	h.mu.Unlock()

	return ctx
}

// RemoveClient unregisters a client's connection. Room membership is
// cleaned up separately by the dispatcher's disconnect handling.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	delete(h.byConn, c.sess.ConnID)
	h.mu.Unlock()

	h.conns.Remove(c)
}

// Broadcast sends an envelope to every connection in a room, on this
// instance directly and on other instances through the backbone.
func (h *Hub) Broadcast(ctx context.Context, roomKey, msgType string, payload any) {
	data, ok := marshalEnvelope(msgType, payload)
	if !ok {
		return
	}

	h.deliverLocal(roomKey, data)

	if h.mirror != nil {
		h.mirror.Publish(ctx, roomKey, data)
	}
}

// SendTo queues an envelope for a single client, used for error acks.
func (h *Hub) SendTo(c *Client, msgType string, payload any) {
	data, ok := marshalEnvelope(msgType, payload)
	if !ok {
		return
	}
	h.conns.Send(c, data)
}

// deliverLocal queues a frame for the local members of a room. It also
// serves as the backbone handler for frames from other instances.
func (h *Hub) deliverLocal(roomKey string, data []byte) {
	members := h.registry.Members(roomKey)
	if len(members) == 0 {
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(members))
	for _, connID := range members {
		if c, ok := h.byConn[connID]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.conns.Send(c, data)
	}
}
