// ABOUTME: Browser session model and store interface for the shell BFF
// ABOUTME: Sessions hold the user's access token and display identity

package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound means no live session exists for the given ID. Expired
// sessions are reported the same way; callers cannot distinguish them.
var ErrNotFound = errors.New("session not found")

// CookieName is the session cookie set by the shell BFF.
const CookieName = "portal_session"

// Session is one authenticated browser session. The access token inside is
// the user's own token from the auth front door, not a B2B token.
type Session struct {
	ID          string
	Subject     string
	AccessToken string
	User        json.RawMessage
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the session has lapsed at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions. Get never returns an expired session.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
	Close() error
}
