// Package backbone mirrors room broadcasts between gateway instances
// through Redis pub/sub. When the backbone is unreachable the gateway
// keeps serving locally-connected sockets; delivery to other instances
// is silently lost until Redis recovers.
package backbone

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "gateway:room:"

// frame is the wire format published to Redis. Origin lets instances
// skip frames they published themselves.
type frame struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Data   json.RawMessage `json:"data"`
}

// Handler receives frames published by other instances.
type Handler func(roomKey string, data []byte)

// Backbone publishes local broadcasts and re-delivers remote ones.
type Backbone struct {
	client redis.UniversalClient
	origin string
	cancel context.CancelFunc
}

// New creates a Backbone with a unique origin identifier. Subscribe must
// be called to start receiving remote frames.
func New(client redis.UniversalClient) *Backbone {
	return &Backbone{
		client: client,
		origin: uuid.NewString(),
	}
}

// Publish mirrors a broadcast frame to other instances. Failures are
// logged as warnings and swallowed: local delivery has already happened
// and a missing backbone only degrades cross-instance fan-out.
func (b *Backbone) Publish(ctx context.Context, roomKey string, data []byte) {
	payload, err := json.Marshal(frame{Origin: b.origin, Room: roomKey, Data: data})
	if err != nil {
		log.Printf("backbone: failed to marshal frame: %v", err)
		return
	}
	if err := b.client.Publish(ctx, channelPrefix+roomKey, payload).Err(); err != nil {
		log.Printf("backbone: publish failed, continuing single-instance: %v", err)
	}
}

// Subscribe starts a goroutine that delivers remote frames to handler
// until ctx is cancelled or Close is called. Frames published by this
// instance are skipped.
func (b *Backbone) Subscribe(ctx context.Context, handler Handler) {
	ctx, b.cancel = context.WithCancel(ctx)
	sub := b.client.PSubscribe(ctx, channelPrefix+"*")

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					log.Printf("backbone: subscription closed, cross-instance delivery stopped")
					return
				}
				b.deliver(msg, handler)
			}
		}
	}()
}

func (b *Backbone) deliver(msg *redis.Message, handler Handler) {
	var f frame
	if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil {
		log.Printf("backbone: dropping malformed frame: %v", err)
		return
	}
	if f.Origin == b.origin {
		return
	}
	roomKey := f.Room
	if roomKey == "" {
		roomKey = strings.TrimPrefix(msg.Channel, channelPrefix)
	}
	handler(roomKey, f.Data)
}

// Close stops the subscriber goroutine.
func (b *Backbone) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}
