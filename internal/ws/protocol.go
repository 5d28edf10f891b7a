package ws

import (
	"encoding/json"
	"log"
)

// Client → server message types.
const (
	TypeRoomJoin       = "room-join"
	TypeRoomLeave      = "room-leave"
	TypeLikeReaction   = "like-reaction"
	TypeComment        = "comment"
	TypeUploadProgress = "upload-progress"
	TypeUploadComplete = "upload-complete"
	TypeAdminRoomJoin  = "admin-room-join"
	TypeAdminBroadcast = "admin-broadcast"
)

// Server → client message types. Interaction messages are echoed back
// under their client-facing type.
const (
	TypeMemberJoined = "member-joined"
	TypeMemberLeft   = "member-left"
	TypeError        = "error"
)

// Room keys are namespaced so an event named "admin" can never collide
// with the admin control channel.
const (
	eventRoomPrefix = "event:"
	adminRoomKey    = "admin"
)

func eventRoomKey(eventID string) string {
	return eventRoomPrefix + eventID
}

// Envelope is the JSON structure exchanged over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RoomPayload is sent by the client for room-join and room-leave.
type RoomPayload struct {
	EventID string `json:"eventId"`
}

// LikePayload carries a like-reaction; the server stamps Timestamp on echo.
type LikePayload struct {
	EventID   string `json:"eventId,omitempty"`
	PhotoID   string `json:"photoId"`
	LikeCount int    `json:"likeCount"`
	Timestamp string `json:"timestamp,omitempty"`
}

// CommentPayload carries a comment; the server stamps Timestamp on echo.
type CommentPayload struct {
	EventID   string `json:"eventId,omitempty"`
	PhotoID   string `json:"photoId"`
	Comment   string `json:"comment"`
	Timestamp string `json:"timestamp,omitempty"`
}

// UploadProgressPayload reports upload progress for one photo.
type UploadProgressPayload struct {
	EventID   string  `json:"eventId,omitempty"`
	PhotoID   string  `json:"photoId"`
	Progress  float64 `json:"progress"`
	Filename  string  `json:"filename,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
}

// UploadCompletePayload announces a finished upload with the photo
// descriptor produced by the upload pipeline.
type UploadCompletePayload struct {
	EventID   string          `json:"eventId,omitempty"`
	Photo     json.RawMessage `json:"photo"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// AdminBroadcastPayload relays an arbitrary notification to the admin
// channel.
type AdminBroadcastPayload struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// PresencePayload carries the room occupancy after a membership change.
type PresencePayload struct {
	GuestCount int `json:"guestCount"`
}

// ErrorPayload carries a human-readable rejection reason.
type ErrorPayload struct {
	Message string `json:"message"`
}

// marshalEnvelope encodes a payload inside an envelope of the given type.
func marshalEnvelope(msgType string, payload any) ([]byte, bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ws: failed to marshal %s payload: %v", msgType, err)
		return nil, false
	}
	env, err := json.Marshal(Envelope{Type: msgType, Payload: data})
	if err != nil {
		log.Printf("ws: failed to marshal %s envelope: %v", msgType, err)
		return nil, false
	}
	return env, true
}
