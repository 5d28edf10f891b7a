// Package auth classifies incoming connections before any room logic runs.
//
// Two credential paths are supported: a signed bearer token (admin or
// authenticated account) and a guest session identifier scoped to a single
// event. If neither succeeds the connection is rejected.
package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/hafiportrait/gallery-gateway/internal/session"
)

// ErrAuthRequired is returned when no credential of any class is presented.
var ErrAuthRequired = errors.New("authentication required")

// ErrInvalidGuestSession is returned when a guest session fails validation.
var ErrInvalidGuestSession = errors.New("invalid guest session")

// TokenVerifier checks a bearer token's signature and expiry.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// GuestValidator checks that a guest session identifier is valid for the
// claimed event. Implementations typically hit the guest_sessions table.
type GuestValidator interface {
	Validate(ctx context.Context, guestSessionID, eventID string) error
}

// Authenticator classifies handshake credentials into sessions.
type Authenticator struct {
	verifier  TokenVerifier
	guests    GuestValidator // nil disables DB-backed guest validation
	adminRole string
}

// NewAuthenticator creates an Authenticator. guests may be nil, in which
// case guest sessions are admitted without a database check.
func NewAuthenticator(verifier TokenVerifier, guests GuestValidator, adminRole string) *Authenticator {
	return &Authenticator{
		verifier:  verifier,
		guests:    guests,
		adminRole: adminRole,
	}
}

// Authenticate inspects the handshake request and returns a classified
// session, or an error if no credential path succeeds. A malformed or
// expired bearer token is logged and falls through to the guest path
// rather than failing the handshake outright.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) (*session.Session, error) {
	token := bearerToken(r)

	if token != "" {
		claims, err := a.verifier.Verify(token)
		if err != nil {
			log.Printf("auth: token verification failed: %v", err)
		} else {
			class := session.ClassAuthenticated
			if claims.Role == a.adminRole {
				class = session.ClassAdmin
			}
			s := session.New(uuid.NewString(), class)
			s.UserID = claims.UserID
			return s, nil
		}
	}

	guestSessionID := r.URL.Query().Get("guestSessionId")
	eventID := r.URL.Query().Get("eventId")
	if guestSessionID != "" && eventID != "" {
		if a.guests != nil {
			if err := a.guests.Validate(ctx, guestSessionID, eventID); err != nil {
				log.Printf("auth: guest session rejected: %v", err)
				return nil, ErrInvalidGuestSession
			}
		}
		s := session.New(uuid.NewString(), session.ClassGuest)
		s.GuestToken = guestSessionID
		s.EventID = eventID
		return s, nil
	}

	return nil, ErrAuthRequired
}

// bearerToken extracts the credential from the token query parameter or
// the Authorization header.
func bearerToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	return strings.TrimPrefix(h, "Bearer ")
}
