package session

import (
	"context"

	"github.com/google/uuid"
)

// Session keys for the provider credential bundle. The names follow
// the session layout the profile views read.
const (
	KeyAccessToken  = "ACCESS_TOKEN"
	KeyIDToken      = "ID_TOKEN"
	KeyRefreshToken = "REFRESH_TOKEN"
	KeyUsername     = "USERNAME"
)

// Session is the key/value state behind one session ID.
type Session struct {
	ID     string            `json:"id"`
	Values map[string]string `json:"values"`
}

// NewSession creates an empty session with a fresh random ID.
func NewSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		Values: map[string]string{},
	}
}

// Get returns a session value, empty when unset.
func (s *Session) Get(key string) string {
	return s.Values[key]
}

// Set sets a session value.
func (s *Session) Set(key, value string) {
	if s.Values == nil {
		s.Values = map[string]string{}
	}
	s.Values[key] = value
}

// Store persists sessions for the life of a login. Implementations
// must treat the session map as opaque.
type Store interface {
	// Get returns the session for id, or nil when none exists.
	Get(ctx context.Context, id string) (*Session, error)

	// Save persists the session, resetting its TTL.
	Save(ctx context.Context, s *Session) error

	// Delete discards the entire session.
	Delete(ctx context.Context, id string) error
}
