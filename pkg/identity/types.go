package identity

import (
	"github.com/platinummonkey/vestibule/pkg/cognito"
	"github.com/platinummonkey/vestibule/pkg/userstore"
)

// User is the authenticated principal a successful login produces: the
// structured local record, any provider attributes that have no local
// field, and the session token bundle for the caller to persist.
//
// Extra is an explicit auxiliary container; nothing in it ever reaches
// the structured store.
type User struct {
	Record *userstore.User   `json:"record"`
	Extra  map[string]string `json:"extra,omitempty"`
	Tokens cognito.Tokens    `json:"-"`
}

// Username returns the record's unique username.
func (u *User) Username() string {
	if u == nil || u.Record == nil {
		return ""
	}
	return u.Record.Username
}
