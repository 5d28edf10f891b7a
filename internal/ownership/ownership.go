// Package ownership resolves which account owns a photography event and
// whether a guest session is valid for it. The gateway consumes these as
// injected collaborators; the Postgres implementation backs them with
// the platform's events and guest_sessions tables.
package ownership

import "context"

// Lookup answers whether userID is the owning account for an event.
type Lookup interface {
	IsOwner(ctx context.Context, userID, eventID string) (bool, error)
}

// Func adapts a function to the Lookup interface.
type Func func(ctx context.Context, userID, eventID string) (bool, error)

// IsOwner implements Lookup.
func (f Func) IsOwner(ctx context.Context, userID, eventID string) (bool, error) {
	return f(ctx, userID, eventID)
}
