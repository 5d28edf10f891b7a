package activity

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKey returns the Redis key for a room's activity list.
func redisKey(roomKey string) string {
	return "gateway:activity:" + roomKey
}

// RedisLog persists the activity feed in Redis using a capped list per
// room, so the feed survives gateway restarts and is shared between
// instances.
type RedisLog struct {
	client  redis.Cmdable
	maxSize int64
}

// NewRedisLog creates a RedisLog that retains up to maxSize entries per room.
func NewRedisLog(client redis.Cmdable, maxSize int) *RedisLog {
	return &RedisLog{
		client:  client,
		maxSize: int64(maxSize),
	}
}

// Record appends an entry to the room's list, trimming to maxSize.
func (l *RedisLog) Record(e *Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("activity: failed to marshal entry: %v", err)
		return
	}

	key := redisKey(e.RoomKey)
	pipe := l.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -l.maxSize, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("activity: failed to record entry: %v", err)
	}
}

// Recent returns the last n entries for a room, oldest first.
func (l *RedisLog) Recent(roomKey string, n int) []*Entry {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	vals, err := l.client.LRange(ctx, redisKey(roomKey), int64(-n), -1).Result()
	if err != nil {
		log.Printf("activity: failed to read entries: %v", err)
		return nil
	}
	if len(vals) == 0 {
		return nil
	}

	entries := make([]*Entry, 0, len(vals))
	for _, v := range vals {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			continue
		}
		entries = append(entries, &e)
	}
	return entries
}

// DeleteRoom removes all entries for a room.
func (l *RedisLog) DeleteRoom(roomKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := l.client.Del(ctx, redisKey(roomKey)).Err(); err != nil {
		log.Printf("activity: failed to delete room entries: %v", err)
	}
}

// Count returns the number of entries stored for a room.
func (l *RedisLog) Count(roomKey string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	n, err := l.client.LLen(ctx, redisKey(roomKey)).Result()
	if err != nil {
		log.Printf("activity: failed to count entries: %v", err)
		return 0
	}
	return int(n)
}
