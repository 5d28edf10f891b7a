package ws

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/hafiportrait/gallery-gateway/internal/activity"
	"github.com/hafiportrait/gallery-gateway/internal/ownership"
	"github.com/hafiportrait/gallery-gateway/internal/ratelimit"
	"github.com/hafiportrait/gallery-gateway/internal/room"
	"github.com/hafiportrait/gallery-gateway/internal/session"
)

// Rejection reasons returned in error acks.
const (
	reasonAccessDenied   = "Access denied to this event"
	reasonAdminRequired  = "Admin access required"
	reasonTooManyJoins   = "Too many join requests"
	reasonTooManyLikes   = "Too many like requests"
	reasonTooManyComment = "Too many comment requests"
	reasonInternal       = "Internal error"
)

// Dispatcher gatekeeps and relays all in-room interaction messages:
// room authorization, per-type rate limiting, and fan-out with a
// server-stamped timestamp.
type Dispatcher struct {
	hub      *Hub
	registry *room.Registry
	limiter  *ratelimit.Limiter
	policy   ratelimit.Policy
	owners   ownership.Lookup // nil denies all authenticated-user rooms
	feed     activity.Log     // nil disables the activity feed

	now func() time.Time // overridable in tests
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithActivityLog records likes, comments, and finished uploads into the
// given feed for the admin dashboard.
func WithActivityLog(feed activity.Log) DispatcherOption {
	return func(d *Dispatcher) {
		d.feed = feed
	}
}

// NewDispatcher wires a Dispatcher. owners may be nil when no ownership
// backend is configured; authenticated-user sessions are then denied
// room access (fail-closed), while admin and guest rules are unaffected.
func NewDispatcher(hub *Hub, registry *room.Registry, limiter *ratelimit.Limiter, policy ratelimit.Policy, owners ownership.Lookup, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		hub:      hub,
		registry: registry,
		limiter:  limiter,
		policy:   policy,
		owners:   owners,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// record appends an entry to the activity feed, if one is configured.
func (d *Dispatcher) record(roomKey string, kind activity.Kind, actorID, photoID, detail string) {
	if d.feed == nil {
		return
	}
	d.feed.Record(&activity.Entry{
		ID:        uuid.NewString(),
		RoomKey:   roomKey,
		Kind:      kind,
		ActorID:   actorID,
		PhotoID:   photoID,
		Detail:    detail,
		CreatedAt: d.now(),
	})
}

// dropFeed clears a room's activity once its last member is gone,
// mirroring the registry's delete-when-empty behavior.
func (d *Dispatcher) dropFeed(roomKey string, occupancy int) {
	if d.feed == nil || occupancy > 0 {
		return
	}
	d.feed.DeleteRoom(roomKey)
}

// canAccessRoom decides whether a session may interact with an event's
// room. Admins may access any room. Guests may access only the event
// their session is bound to. Authenticated users must own the event;
// the ownership lookup runs once per session per event and positive
// results are cached for the life of the connection.
func (d *Dispatcher) canAccessRoom(ctx context.Context, sess *session.Session, eventID string) bool {
	switch sess.Class {
	case session.ClassAdmin:
		return true
	case session.ClassGuest:
		return sess.EventID == eventID
	case session.ClassAuthenticated:
		if sess.Authorized(eventID) {
			return true
		}
		if d.owners == nil {
			return false
		}
		ok, err := d.owners.IsOwner(ctx, sess.UserID, eventID)
		if err != nil {
			log.Printf("dispatch: ownership lookup for event %s failed: %v", eventID, err)
			return false
		}
		if ok {
			sess.Authorize(eventID)
		}
		return ok
	}
	return false
}

// allow applies the rate limit rule for a message type, if one exists.
func (d *Dispatcher) allow(msgType, connID string) bool {
	rule, ok := d.policy.Rule(msgType)
	if !ok {
		return true
	}
	return d.limiter.Allow(msgType+":"+connID, rule.MaxEvents, rule.Window)
}

func (d *Dispatcher) timestamp() string {
	return d.now().UTC().Format(time.RFC3339)
}

// HandleRoomJoin admits a session into an event room and notifies every
// member, including the joiner, of the new occupancy. Re-joining is
// idempotent but still re-checks authorization and counts against the
// join rate limit.
func (d *Dispatcher) HandleRoomJoin(ctx context.Context, c *Client, p RoomPayload) {
	if p.EventID == "" {
		return
	}
	sess := c.Session()

	if !d.canAccessRoom(ctx, sess, p.EventID) {
		d.hub.SendTo(c, TypeError, ErrorPayload{Message: reasonAccessDenied})
		return
	}
	if !d.allow(TypeRoomJoin, sess.ConnID) {
		d.hub.SendTo(c, TypeError, ErrorPayload{Message: reasonTooManyJoins})
		return
	}

	key := eventRoomKey(p.EventID)
	occupancy, _ := d.registry.Join(key, sess.ConnID)
	d.hub.Broadcast(ctx, key, TypeMemberJoined, PresencePayload{GuestCount: occupancy})
	log.Printf("dispatch: connection %s joined %s (%d members)", sess.ConnID, key, occupancy)
}

// HandleRoomLeave removes a session from an event room. Leaving a room
// not joined is a silent no-op.
func (d *Dispatcher) HandleRoomLeave(ctx context.Context, c *Client, p RoomPayload) {
	if p.EventID == "" {
		return
	}
	sess := c.Session()

	key := eventRoomKey(p.EventID)
	occupancy, wasMember := d.registry.Leave(key, sess.ConnID)
	if !wasMember {
		return
	}
	d.hub.Broadcast(ctx, key, TypeMemberLeft, PresencePayload{GuestCount: occupancy})
	d.dropFeed(key, occupancy)
	log.Printf("dispatch: connection %s left %s (%d members)", sess.ConnID, key, occupancy)
}

// HandleLike relays a like-reaction to the room with a server timestamp.
func (d *Dispatcher) HandleLike(ctx context.Context, c *Client, p LikePayload) {
	if p.EventID == "" || p.PhotoID == "" {
		return
	}
	sess := c.Session()

	if !d.canAccessRoom(ctx, sess, p.EventID) {
		return
	}
	if !d.allow(TypeLikeReaction, sess.ConnID) {
		d.hub.SendTo(c, TypeError, ErrorPayload{Message: reasonTooManyLikes})
		return
	}

	p.Timestamp = d.timestamp()
	d.hub.Broadcast(ctx, eventRoomKey(p.EventID), TypeLikeReaction, p)
	d.record(eventRoomKey(p.EventID), activity.KindLike, sess.ConnID, p.PhotoID, "")
}

// HandleComment relays a comment to the room with a server timestamp.
func (d *Dispatcher) HandleComment(ctx context.Context, c *Client, p CommentPayload) {
	if p.EventID == "" || p.PhotoID == "" {
		return
	}
	sess := c.Session()

	if !d.canAccessRoom(ctx, sess, p.EventID) {
		return
	}
	if !d.allow(TypeComment, sess.ConnID) {
		d.hub.SendTo(c, TypeError, ErrorPayload{Message: reasonTooManyComment})
		return
	}

	p.Timestamp = d.timestamp()
	d.hub.Broadcast(ctx, eventRoomKey(p.EventID), TypeComment, p)
	d.record(eventRoomKey(p.EventID), activity.KindComment, sess.ConnID, p.PhotoID, p.Comment)
}

// HandleUploadProgress relays upload progress. Guests may only receive
// these, never emit them.
func (d *Dispatcher) HandleUploadProgress(ctx context.Context, c *Client, p UploadProgressPayload) {
	if p.EventID == "" || p.PhotoID == "" {
		return
	}
	sess := c.Session()

	if !sess.CanPerformRestrictedAction() {
		return
	}
	if !d.canAccessRoom(ctx, sess, p.EventID) {
		return
	}

	p.Timestamp = d.timestamp()
	d.hub.Broadcast(ctx, eventRoomKey(p.EventID), TypeUploadProgress, p)
}

// HandleUploadComplete relays a finished upload. Guests may only receive
// these, never emit them.
func (d *Dispatcher) HandleUploadComplete(ctx context.Context, c *Client, p UploadCompletePayload) {
	if p.EventID == "" {
		return
	}
	sess := c.Session()

	if !sess.CanPerformRestrictedAction() {
		return
	}
	if !d.canAccessRoom(ctx, sess, p.EventID) {
		return
	}

	p.Timestamp = d.timestamp()
	d.hub.Broadcast(ctx, eventRoomKey(p.EventID), TypeUploadComplete, p)
	d.record(eventRoomKey(p.EventID), activity.KindUpload, sess.ConnID, "", "")
}

// HandleAdminRoomJoin admits an admin session into the admin channel.
func (d *Dispatcher) HandleAdminRoomJoin(ctx context.Context, c *Client) {
	sess := c.Session()
	if sess.Class != session.ClassAdmin {
		d.hub.SendTo(c, TypeError, ErrorPayload{Message: reasonAdminRequired})
		return
	}
	d.registry.Join(adminRoomKey, sess.ConnID)
	log.Printf("dispatch: connection %s joined the admin channel", sess.ConnID)
}

// HandleAdminBroadcast relays a notification to the admin channel.
func (d *Dispatcher) HandleAdminBroadcast(ctx context.Context, c *Client, p AdminBroadcastPayload) {
	if c.Session().Class != session.ClassAdmin {
		return
	}

	p.Timestamp = d.timestamp()
	d.hub.Broadcast(ctx, adminRoomKey, TypeAdminBroadcast, p)
}

// HandleDisconnect evicts a session from every room it occupied with the
// same notifications as an explicit leave, and drops its rate-limit
// counters.
func (d *Dispatcher) HandleDisconnect(ctx context.Context, c *Client) {
	sess := c.Session()
	for _, dep := range d.registry.DropAll(sess.ConnID) {
		d.hub.Broadcast(ctx, dep.Key, TypeMemberLeft, PresencePayload{GuestCount: dep.Occupancy})
		d.dropFeed(dep.Key, dep.Occupancy)
	}
	d.limiter.Forget(":" + sess.ConnID)
}
