package ownership

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrGuestSessionNotFound is returned when no live guest session matches
// the presented identifier and event.
var ErrGuestSessionNotFound = errors.New("guest session not found or expired")

// Store reads event ownership and guest sessions from Postgres.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a Store on the given pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// IsOwner reports whether userID is the client account that owns the
// event identified by its slug. An event that does not exist owns
// nothing, so the answer is false rather than an error.
func (s *Store) IsOwner(ctx context.Context, userID, eventID string) (bool, error) {
	var clientID string
	query := `SELECT client_id FROM events WHERE slug = $1`
	err := s.db.QueryRow(ctx, query, eventID).Scan(&clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup event owner: %w", err)
	}
	return clientID == userID, nil
}

// Validate checks that a guest session exists for the event and has not
// expired, and touches its last-access timestamp on success. The touch
// is best effort; its failure does not invalidate the session.
func (s *Store) Validate(ctx context.Context, guestSessionID, eventID string) error {
	var found bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM guest_sessions gs
			JOIN events e ON e.id = gs.event_id
			WHERE gs.session_id = $1 AND e.slug = $2 AND gs.expires_at > now()
		)`
	if err := s.db.QueryRow(ctx, query, guestSessionID, eventID).Scan(&found); err != nil {
		return fmt.Errorf("validate guest session: %w", err)
	}
	if !found {
		return ErrGuestSessionNotFound
	}

	touch := `UPDATE guest_sessions SET last_access_at = now() WHERE session_id = $1`
	_, _ = s.db.Exec(ctx, touch, guestSessionID)
	return nil
}
