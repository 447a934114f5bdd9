package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/vestibule/pkg/cognito"
	"github.com/platinummonkey/vestibule/pkg/httputil"
	"github.com/platinummonkey/vestibule/pkg/identity"
	"github.com/platinummonkey/vestibule/pkg/observability"
	"github.com/platinummonkey/vestibule/pkg/session"
)

// maxBodyBytes bounds request bodies; every payload here is small JSON.
const maxBodyBytes = 1 << 20

// Backend is the authentication surface the handlers drive. Satisfied
// by *identity.CognitoBackend.
type Backend interface {
	Authenticate(ctx context.Context, username, password string) (*identity.User, error)
	CurrentUser(ctx context.Context, accessToken string) (*identity.User, error)
	UpdateProfile(ctx context.Context, accessToken string, fields map[string]string) error
	Register(ctx context.Context, username, password, email, firstName, lastName string) (*cognito.SignUpResult, error)
	ConfirmSignUp(ctx context.Context, code, username string) error
}

// Server represents our API server
type Server struct {
	backend    Backend
	sessions   session.Store
	router     *mux.Router
	logger     *observability.Logger
	metrics    *observability.Metrics
	health     *observability.HealthChecker
	sessionTTL time.Duration
}

// Options configures optional server collaborators.
type Options struct {
	Logger     *observability.Logger
	Metrics    *observability.Metrics
	Health     *observability.HealthChecker
	SessionTTL time.Duration
}

// NewServer creates a new API server
func NewServer(backend Backend, sessions session.Store, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = session.DefaultSessionTTL
	}

	s := &Server{
		backend:    backend,
		sessions:   sessions,
		router:     mux.NewRouter(),
		logger:     logger,
		metrics:    opts.Metrics,
		health:     opts.Health,
		sessionTTL: ttl,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.handle("/auth/login", s.login).Methods("POST")
	s.handle("/auth/logout", s.logout).Methods("POST")
	s.handle("/auth/signup", s.signUp).Methods("POST")
	s.handle("/auth/confirm", s.confirmSignUp).Methods("POST")

	s.handle("/profile", s.requireSession(s.getProfile)).Methods("GET")
	s.handle("/profile", s.requireSession(s.updateProfile)).Methods("PUT")

	if s.health != nil {
		s.router.HandleFunc("/healthz", s.health.Liveness).Methods("GET")
		s.router.HandleFunc("/readyz", s.health.Readiness).Methods("GET")
	}
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
}

// handle registers a route with per-path HTTP metrics when enabled.
func (s *Server) handle(path string, h http.HandlerFunc) *mux.Route {
	var handler http.Handler = h
	if s.metrics != nil {
		handler = s.metrics.HTTPMiddleware(path, handler)
	}
	return s.router.Handle(path, handler)
}

// Router returns the full handler with the ambient middleware applied.
// otelhttp records server spans and http.server.* metrics against the
// global providers installed by observability.InitOTel.
func (s *Server) Router() http.Handler {
	handler := httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggerMiddleware(s.logger),
		httputil.RecoveryMiddleware,
		httputil.MaxBytesMiddleware(maxBodyBytes),
	)(s.router)
	return otelhttp.NewHandler(handler, "vestibule")
}
