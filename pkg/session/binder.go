package session

import (
	"context"
	"fmt"

	"github.com/platinummonkey/vestibule/pkg/cognito"
)

// BindTokens copies the provider's credential bundle into the session
// and persists it. Called only on a successful authentication; a
// failed login leaves the session untouched.
func BindTokens(ctx context.Context, store Store, s *Session, tokens cognito.Tokens) error {
	s.Set(KeyAccessToken, tokens.AccessToken)
	s.Set(KeyIDToken, tokens.IDToken)
	s.Set(KeyRefreshToken, tokens.RefreshToken)
	if err := store.Save(ctx, s); err != nil {
		return fmt.Errorf("failed to persist session tokens: %w", err)
	}
	return nil
}

// Tokens reads the credential bundle back out of a session.
func Tokens(s *Session) cognito.Tokens {
	if s == nil {
		return cognito.Tokens{}
	}
	return cognito.Tokens{
		AccessToken:  s.Get(KeyAccessToken),
		IDToken:      s.Get(KeyIDToken),
		RefreshToken: s.Get(KeyRefreshToken),
	}
}

// HasRefreshToken reports whether a session carries a live login. The
// profile views deny access without one.
func HasRefreshToken(s *Session) bool {
	return s != nil && s.Get(KeyRefreshToken) != ""
}
