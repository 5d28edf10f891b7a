package activity

import "sync"

// MemoryLog keeps recent entries per room in memory.
type MemoryLog struct {
	mu      sync.RWMutex
	rooms   map[string][]*Entry
	maxSize int
}

// NewMemoryLog creates a log that retains up to maxSize entries per room.
func NewMemoryLog(maxSize int) *MemoryLog {
	return &MemoryLog{
		rooms:   make(map[string][]*Entry),
		maxSize: maxSize,
	}
}

// Record adds an entry to the room's feed, evicting the oldest once the
// cap is reached.
func (l *MemoryLog) Record(e *Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entries := l.rooms[e.RoomKey]
	entries = append(entries, e)
	if len(entries) > l.maxSize {
		entries = entries[len(entries)-l.maxSize:]
	}
	l.rooms[e.RoomKey] = entries
}

// Recent returns the last n entries for a room, oldest first.
func (l *MemoryLog) Recent(roomKey string, n int) []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := l.rooms[roomKey]
	if len(entries) == 0 {
		return nil
	}
	if n > len(entries) {
		n = len(entries)
	}
	result := make([]*Entry, n)
	copy(result, entries[len(entries)-n:])
	return result
}

// DeleteRoom removes all entries for a room.
func (l *MemoryLog) DeleteRoom(roomKey string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.rooms, roomKey)
}

// Count returns the number of entries recorded for a room.
func (l *MemoryLog) Count(roomKey string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rooms[roomKey])
}
