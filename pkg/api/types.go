package api

import (
	"github.com/platinummonkey/vestibule/pkg/identity"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User *userView `json:"user"`
}

type signUpRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type signUpResponse struct {
	UserSub                 string `json:"user_sub"`
	UserConfirmed           bool   `json:"user_confirmed"`
	CodeDeliveryDestination string `json:"code_delivery_destination,omitempty"`
}

type confirmRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

type updateProfileRequest struct {
	Fields map[string]string `json:"fields"`
}

// userView is the wire shape of an authenticated user. Tokens are
// deliberately absent; they live only in the server-side session.
type userView struct {
	ID        int64             `json:"id,omitempty"`
	Username  string            `json:"username"`
	Email     string            `json:"email,omitempty"`
	FirstName string            `json:"first_name,omitempty"`
	LastName  string            `json:"last_name,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

func newUserView(u *identity.User) *userView {
	if u == nil || u.Record == nil {
		return nil
	}
	return &userView{
		ID:        u.Record.ID,
		Username:  u.Record.Username,
		Email:     u.Record.Email,
		FirstName: u.Record.FirstName,
		LastName:  u.Record.LastName,
		Extra:     u.Extra,
	}
}
