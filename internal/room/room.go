// Package room tracks which connections occupy each event room.
//
// Rooms are created lazily on first join and deleted when their last
// member leaves; occupancy is always the live member-set size. Nothing
// here is persisted.
package room

import (
	"sort"
	"sync"
)

// Info is an occupancy snapshot for one room.
type Info struct {
	Key       string `json:"key"`
	Occupancy int    `json:"occupancy"`
}

// Departure records one room a disconnecting connection was removed from.
type Departure struct {
	Key       string
	Occupancy int
}

// Registry maps room keys to member connection-ID sets.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]map[string]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]struct{}),
	}
}

// Join adds connID to the room, creating it if absent. It returns the
// occupancy after the join and whether the connection was already a
// member (re-joining is idempotent).
func (r *Registry) Join(key, connID string) (occupancy int, already bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[key]
	if members == nil {
		members = make(map[string]struct{})
		r.rooms[key] = members
	}
	_, already = members[connID]
	members[connID] = struct{}{}
	return len(members), already
}

// Leave removes connID from the room. It returns the occupancy after the
// removal and whether the connection was a member; leaving a room not
// joined is a no-op. An emptied room is deleted entirely.
func (r *Registry) Leave(key, connID string) (occupancy int, wasMember bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(key, connID)
}

func (r *Registry) leaveLocked(key, connID string) (int, bool) {
	members, ok := r.rooms[key]
	if !ok {
		return 0, false
	}
	if _, wasMember := members[connID]; !wasMember {
		return len(members), false
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, key)
		return 0, true
	}
	return len(members), true
}

// DropAll removes connID from every room it occupies, with the same
// cleanup as Leave. The returned departures carry the occupancy after
// each removal so callers can notify remaining members.
func (r *Registry) DropAll(connID string) []Departure {
	r.mu.Lock()
	defer r.mu.Unlock()

	var departures []Departure
	for key, members := range r.rooms {
		if _, ok := members[connID]; !ok {
			continue
		}
		occupancy, _ := r.leaveLocked(key, connID)
		departures = append(departures, Departure{Key: key, Occupancy: occupancy})
	}
	return departures
}

// Members returns a snapshot of the connection IDs in a room.
func (r *Registry) Members(key string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[key]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	return out
}

// Occupancy returns the number of connections in a room.
func (r *Registry) Occupancy(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[key])
}

// Contains reports whether connID is a member of the room.
func (r *Registry) Contains(key, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[key][connID]
	return ok
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Snapshot returns occupancy info for every live room, sorted by key for
// stable output.
func (r *Registry) Snapshot() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Info, 0, len(r.rooms))
	for key, members := range r.rooms {
		out = append(out, Info{Key: key, Occupancy: len(members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
