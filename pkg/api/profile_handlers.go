package api

import (
	"context"
	"net/http"

	"github.com/platinummonkey/vestibule/pkg/httputil"
	"github.com/platinummonkey/vestibule/pkg/observability"
	"github.com/platinummonkey/vestibule/pkg/session"
)

type sessionContextKey struct{}

// sessionFromContext returns the session requireSession attached.
func sessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*session.Session)
	return sess
}

// requireSession guards a handler behind a live login. A session
// without a refresh token is treated the same as no session at all.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := session.FromRequest(r, s.sessions)
		if err != nil {
			observability.FromContext(r.Context()).WithError(err).Error("failed to load session")
			httputil.WriteInternalError(w, err)
			return
		}
		if !session.HasRefreshToken(sess) {
			httputil.WriteUnauthorized(w, "login required")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
		if username := sess.Get(session.KeyUsername); username != "" {
			ctx = observability.WithUsername(ctx, username)
		}
		next(w, r.WithContext(ctx))
	}
}

// getProfile handles GET /profile
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFromContext(ctx)
	tokens := session.Tokens(sess)

	user, err := s.backend.CurrentUser(ctx, tokens.AccessToken)
	if err != nil {
		observability.FromContext(ctx).WithError(err).Error("failed to fetch profile")
		httputil.WriteServiceUnavailable(w, "profile unavailable")
		return
	}
	if user == nil {
		// The provider no longer honors the access token. The session
		// is dead weight; drop it.
		if delErr := s.sessions.Delete(ctx, sess.ID); delErr == nil && s.metrics != nil {
			s.metrics.SessionsActive.Dec()
		}
		session.ClearCookie(w)
		httputil.WriteUnauthorized(w, "login required")
		return
	}

	httputil.WriteSuccess(w, newUserView(user))
}

// updateProfile handles PUT /profile
func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if len(req.Fields) == 0 {
		httputil.WriteBadRequest(w, "fields is required")
		return
	}

	ctx := r.Context()
	sess := sessionFromContext(ctx)
	tokens := session.Tokens(sess)

	if err := s.backend.UpdateProfile(ctx, tokens.AccessToken, req.Fields); err != nil {
		observability.FromContext(ctx).WithError(err).Error("failed to update profile")
		httputil.WriteServiceUnavailable(w, "profile update unavailable")
		return
	}

	user, err := s.backend.CurrentUser(ctx, tokens.AccessToken)
	if err != nil {
		observability.FromContext(ctx).WithError(err).Error("failed to fetch updated profile")
		httputil.WriteServiceUnavailable(w, "profile unavailable")
		return
	}
	if user == nil {
		httputil.WriteUnauthorized(w, "login required")
		return
	}

	httputil.WriteSuccess(w, newUserView(user))
}
