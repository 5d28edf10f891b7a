package session

import "time"

// Class is the authentication class assigned to a connection.
type Class string

const (
	// ClassAdmin is a connection authenticated with an admin-role token.
	ClassAdmin Class = "admin"
	// ClassAuthenticated is a connection authenticated with any other
	// valid token (photographer or client account).
	ClassAuthenticated Class = "authenticated"
	// ClassGuest is an unauthenticated visitor scoped to a single event
	// through a guest session token.
	ClassGuest Class = "guest"
)

// Session is the per-connection authentication state. It is created once
// the handshake is authenticated and lives until disconnect; it is never
// persisted.
type Session struct {
	// ConnID is the transport-assigned connection identifier.
	ConnID string
	// Class is the authentication class for this connection.
	Class Class
	// UserID is the account identifier for admin/authenticated sessions.
	UserID string
	// GuestToken is the guest session identifier for guest sessions.
	GuestToken string
	// EventID is the single event a guest session is scoped to. Immutable
	// for the life of the connection; empty for non-guest sessions.
	EventID string
	// CreatedAt is when the session was established.
	CreatedAt time.Time

	// authorized caches event IDs whose ownership check already passed
	// for an authenticated session. Accessed only from the connection's
	// read loop, so no locking is needed. Never invalidated
	// mid-connection.
	authorized map[string]struct{}
}

// New creates a session for the given connection.
func New(connID string, class Class) *Session {
	return &Session{
		ConnID:     connID,
		Class:      class,
		CreatedAt:  time.Now(),
		authorized: make(map[string]struct{}),
	}
}

// Authorized reports whether ownership of eventID was already confirmed
// for this session.
func (s *Session) Authorized(eventID string) bool {
	_, ok := s.authorized[eventID]
	return ok
}

// Authorize records that ownership of eventID has been confirmed.
func (s *Session) Authorize(eventID string) {
	s.authorized[eventID] = struct{}{}
}

// CanPerformRestrictedAction reports whether the session may emit
// upload-progress and upload-complete messages. Guests may only receive
// them.
func (s *Session) CanPerformRestrictedAction() bool {
	return s.Class == ClassAdmin || s.Class == ClassAuthenticated
}
