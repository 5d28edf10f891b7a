// Package activity keeps a capped feed of recent room events for the
// admin dashboard. Entries are best-effort; losing them never affects
// delivery to connected viewers.
package activity

import "time"

// Kind represents the kind of recorded event.
type Kind string

const (
	KindLike    Kind = "like"
	KindComment Kind = "comment"
	KindUpload  Kind = "upload"
)

// Entry is a single recorded room event.
type Entry struct {
	ID        string    `json:"id"`
	RoomKey   string    `json:"room_key"`
	Kind      Kind      `json:"kind"`
	ActorID   string    `json:"actor_id,omitempty"`
	PhotoID   string    `json:"photo_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Log is the interface for activity feed backends.
type Log interface {
	Record(e *Entry)
	Recent(roomKey string, n int) []*Entry
	DeleteRoom(roomKey string)
	Count(roomKey string) int
}
