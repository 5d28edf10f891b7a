package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"nhooyr.io/websocket"

	"github.com/hafiportrait/gallery-gateway/internal/auth"
)

// Handler authenticates WebSocket upgrade requests and runs the message
// loop for each connection.
type Handler struct {
	auth       *auth.Authenticator
	hub        *Hub
	dispatcher *Dispatcher
}

// NewHandler creates a WebSocket Handler.
func NewHandler(authenticator *auth.Authenticator, hub *Hub, dispatcher *Dispatcher) *Handler {
	return &Handler{
		auth:       authenticator,
		hub:        hub,
		dispatcher: dispatcher,
	}
}

// ServeHTTP authenticates the handshake, upgrades to a WebSocket, and
// runs the read loop until the peer disconnects. Authentication happens
// before the upgrade so rejected clients get a plain 401.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, err := h.auth.Authenticate(r.Context(), r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow all origins in dev; tighten in production.
	})
	if err != nil {
		log.Printf("ws: accept error: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	client := &Client{conn: conn, sess: sess}
	log.Printf("ws: connection %s established (%s)", sess.ConnID, sess.Class)

	connCtx := h.hub.AddClient(client)
	defer func() {
		h.hub.RemoveClient(client)
		h.dispatcher.HandleDisconnect(context.Background(), client)
		log.Printf("ws: connection %s closed", sess.ConnID)
	}()

	h.readLoop(r.Context(), connCtx, client)
}

// readLoop reads envelopes from the client until the connection closes
// or the connection manager cancels connCtx.
func (h *Handler) readLoop(ctx context.Context, connCtx context.Context, client *Client) {
	for {
		select {
		case <-connCtx.Done():
			return
		default:
		}

		_, data, err := client.conn.Read(ctx)
		if err != nil {
			// Normal close or context cancelled.
			return
		}

		// Mark activity so idle reaping doesn't close active connections.
		h.hub.ConnMgr().TouchActivity(client)

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		h.dispatch(ctx, client, env)
	}
}

// dispatch routes one envelope to its handler. A panic in a handler is
// recovered here so a single bad message never takes down the
// connection loop, let alone the process.
func (h *Handler) dispatch(ctx context.Context, client *Client, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ws: panic handling %s from %s: %v", env.Type, client.sess.ConnID, r)
			h.hub.SendTo(client, TypeError, ErrorPayload{Message: reasonInternal})
		}
	}()

	switch env.Type {
	case TypeRoomJoin:
		var p RoomPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			h.dispatcher.HandleRoomJoin(ctx, client, p)
		}
	case TypeRoomLeave:
		var p RoomPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			h.dispatcher.HandleRoomLeave(ctx, client, p)
		}
	case TypeLikeReaction:
		var p LikePayload
		if json.Unmarshal(env.Payload, &p) == nil {
			h.dispatcher.HandleLike(ctx, client, p)
		}
	case TypeComment:
		var p CommentPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			h.dispatcher.HandleComment(ctx, client, p)
		}
	case TypeUploadProgress:
		var p UploadProgressPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			h.dispatcher.HandleUploadProgress(ctx, client, p)
		}
	case TypeUploadComplete:
		var p UploadCompletePayload
		if json.Unmarshal(env.Payload, &p) == nil {
			h.dispatcher.HandleUploadComplete(ctx, client, p)
		}
	case TypeAdminRoomJoin:
		h.dispatcher.HandleAdminRoomJoin(ctx, client)
	case TypeAdminBroadcast:
		var p AdminBroadcastPayload
		if json.Unmarshal(env.Payload, &p) == nil {
			h.dispatcher.HandleAdminBroadcast(ctx, client, p)
		}
	default:
		// Unknown message types are ignored.
	}
}
