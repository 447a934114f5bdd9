package api

import (
	"net/http"

	"github.com/platinummonkey/vestibule/pkg/httputil"
	"github.com/platinummonkey/vestibule/pkg/observability"
	"github.com/platinummonkey/vestibule/pkg/session"
)

// login handles POST /auth/login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	ctx := r.Context()
	logger := observability.FromContext(ctx).WithField("username", req.Username)

	user, err := s.backend.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		s.observeLogin(observability.OutcomeError)
		logger.WithError(err).Error("authentication failed")
		httputil.WriteServiceUnavailable(w, "authentication unavailable")
		return
	}
	if user == nil {
		s.observeLogin(observability.OutcomeRejected)
		logger.Info("login rejected")
		httputil.WriteUnauthorized(w, "invalid credentials")
		return
	}

	sess := session.NewSession()
	sess.Set(session.KeyUsername, user.Username())
	if err := session.BindTokens(ctx, s.sessions, sess, user.Tokens); err != nil {
		s.observeLogin(observability.OutcomeError)
		logger.WithError(err).Error("failed to persist session")
		httputil.WriteInternalError(w, err)
		return
	}
	session.SetCookie(w, sess.ID, int(s.sessionTTL.Seconds()))

	s.observeLogin(observability.OutcomeSuccess)
	if s.metrics != nil {
		s.metrics.SessionsActive.Inc()
	}
	logger.Info("login succeeded")
	httputil.WriteSuccess(w, loginResponse{User: newUserView(user)})
}

// logout handles POST /auth/logout. Logging out without a session is
// not an error; the response is identical either way.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := session.FromRequest(r, s.sessions)
	if err != nil {
		observability.FromContext(ctx).WithError(err).Error("failed to load session")
		httputil.WriteInternalError(w, err)
		return
	}
	if sess != nil {
		if err := s.sessions.Delete(ctx, sess.ID); err != nil {
			observability.FromContext(ctx).WithError(err).Error("failed to delete session")
			httputil.WriteInternalError(w, err)
			return
		}
		if s.metrics != nil {
			s.metrics.SessionsActive.Dec()
		}
	}

	session.ClearCookie(w)
	httputil.WriteNoContent(w)
}

// signUp handles POST /auth/signup
func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	ctx := r.Context()
	logger := observability.FromContext(ctx).WithField("username", req.Username)

	result, err := s.backend.Register(ctx, req.Username, req.Password, req.Email, req.FirstName, req.LastName)
	if err != nil {
		s.observeSignUp(observability.OutcomeError)
		logger.WithError(err).Error("sign up failed")
		httputil.WriteServiceUnavailable(w, "sign up unavailable")
		return
	}
	if result == nil {
		s.observeSignUp(observability.OutcomeRejected)
		logger.Info("sign up rejected by provider")
		httputil.WriteConflict(w, "sign up rejected")
		return
	}

	s.observeSignUp(observability.OutcomeSuccess)
	logger.Info("sign up accepted")
	httputil.WriteCreated(w, signUpResponse{
		UserSub:                 result.UserSub,
		UserConfirmed:           result.UserConfirmed,
		CodeDeliveryDestination: result.CodeDeliveryDestination,
	})
}

// confirmSignUp handles POST /auth/confirm
func (s *Server) confirmSignUp(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Username, "username") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Code, "code") {
		return
	}

	ctx := r.Context()
	if err := s.backend.ConfirmSignUp(ctx, req.Code, req.Username); err != nil {
		observability.FromContext(ctx).
			WithField("username", req.Username).
			WithError(err).
			Error("sign up confirmation failed")
		httputil.WriteBadRequest(w, "confirmation failed")
		return
	}

	httputil.WriteNoContent(w)
}

func (s *Server) observeLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveLogin(outcome)
	}
}

func (s *Server) observeSignUp(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveSignUp(outcome)
	}
}
