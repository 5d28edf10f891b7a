package activity

import (
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedisLog(t *testing.T, maxSize int) *RedisLog {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisLog(client, maxSize)
}

func TestRedisLogRecordAndCount(t *testing.T) {
	l := newTestRedisLog(t, 100)

	l.Record(entry("1", "event:wedding-42", KindLike))
	l.Record(entry("2", "event:wedding-42", KindComment))

	if l.Count("event:wedding-42") != 2 {
		t.Fatalf("expected 2 entries, got %d", l.Count("event:wedding-42"))
	}
	if l.Count("event:portrait-7") != 0 {
		t.Fatalf("expected 0 entries for other room, got %d", l.Count("event:portrait-7"))
	}
}

func TestRedisLogMaxSize(t *testing.T) {
	l := newTestRedisLog(t, 3)

	for i := 0; i < 5; i++ {
		l.Record(entry(fmt.Sprintf("%d", i), "event:wedding-42", KindLike))
	}

	if l.Count("event:wedding-42") != 3 {
		t.Fatalf("expected 3 entries (max size), got %d", l.Count("event:wedding-42"))
	}

	result := l.Recent("event:wedding-42", 10)
	if len(result) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(result))
	}
	if result[0].ID != "2" || result[2].ID != "4" {
		t.Errorf("expected oldest surviving entry 2 and newest 4, got [%s .. %s]", result[0].ID, result[2].ID)
	}
}

func TestRedisLogRecentReturnsLastN(t *testing.T) {
	l := newTestRedisLog(t, 100)
	l.Record(entry("a", "event:wedding-42", KindLike))
	l.Record(entry("b", "event:wedding-42", KindComment))
	l.Record(entry("c", "event:wedding-42", KindUpload))

	result := l.Recent("event:wedding-42", 2)
	if len(result) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result))
	}
	if result[0].ID != "b" || result[1].ID != "c" {
		t.Errorf("expected IDs [b, c], got [%s, %s]", result[0].ID, result[1].ID)
	}
}

func TestRedisLogPreservesEntryFields(t *testing.T) {
	l := newTestRedisLog(t, 100)

	now := time.Now().Truncate(time.Second)
	l.Record(&Entry{
		ID:        "target",
		RoomKey:   "event:wedding-42",
		Kind:      KindComment,
		ActorID:   "conn-9",
		PhotoID:   "photo-3",
		Detail:    "beautiful shot",
		CreatedAt: now,
	})

	result := l.Recent("event:wedding-42", 1)
	if len(result) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(result))
	}
	e := result[0]
	if e.ID != "target" || e.Kind != KindComment {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.ActorID != "conn-9" || e.PhotoID != "photo-3" || e.Detail != "beautiful shot" {
		t.Errorf("fields not preserved: %+v", e)
	}
	if !e.CreatedAt.Equal(now) {
		t.Errorf("expected CreatedAt %v, got %v", now, e.CreatedAt)
	}
}

func TestRedisLogDeleteRoom(t *testing.T) {
	l := newTestRedisLog(t, 100)
	l.Record(entry("1", "event:wedding-42", KindLike))
	l.DeleteRoom("event:wedding-42")

	if l.Count("event:wedding-42") != 0 {
		t.Fatalf("expected 0 after delete, got %d", l.Count("event:wedding-42"))
	}
}

func TestRedisLogDeleteRoomNonExistent(t *testing.T) {
	l := newTestRedisLog(t, 100)
	l.DeleteRoom("event:nonexistent")
}

func TestRedisLogImplementsInterface(t *testing.T) {
	l := newTestRedisLog(t, 100)
	var _ Log = l
}
