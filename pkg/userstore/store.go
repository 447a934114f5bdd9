// Package userstore persists the local user records that mirror
// provider-authenticated principals. Records are created or updated on
// login; nothing here ever deletes one.
package userstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when no record exists for a username.
var ErrNotFound = errors.New("user not found")

// User is the structured local record for an authenticated principal.
// Attributes without a column here live outside the store entirely.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fields maps local field names to values for an upsert or in-place
// update. Only the mapped profile columns are legal keys.
type Fields map[string]string

// fieldColumns is the set of columns an attribute mapping may target.
var fieldColumns = map[string]bool{
	"email":      true,
	"first_name": true,
	"last_name":  true,
}

// HasColumn reports whether a local field name has a backing column.
func HasColumn(name string) bool {
	return fieldColumns[name]
}

// Validate rejects field names that have no column.
func (f Fields) Validate() error {
	for name := range f {
		if !fieldColumns[name] {
			return fmt.Errorf("userstore: no column for field %q", name)
		}
	}
	return nil
}

// Apply sets the fields present in f on u, leaving absent fields
// untouched (full overwrite of present keys only).
func (f Fields) Apply(u *User) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if v, ok := f["email"]; ok {
		u.Email = v
	}
	if v, ok := f["first_name"]; ok {
		u.FirstName = v
	}
	if v, ok := f["last_name"]; ok {
		u.LastName = v
	}
	return nil
}

// Store is the local user store consumed by the authentication backend.
type Store interface {
	// Get returns the record for username, or ErrNotFound.
	Get(ctx context.Context, username string) (*User, error)

	// Upsert creates or overwrites the record keyed by username with
	// the given fields and returns the stored state.
	Upsert(ctx context.Context, username string, fields Fields) (*User, error)

	// Save writes an existing record back in place.
	Save(ctx context.Context, user *User) error
}
