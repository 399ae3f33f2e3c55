// ABOUTME: HTTP API for storefront session login, logout and guarded routes
// ABOUTME: Builds the chi router with CORS, request logging and per-kind guards

package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/2389/storefront-gateway/internal/auth"
	"github.com/2389/storefront-gateway/internal/store"
)

// Config holds the dependencies of the HTTP API.
type Config struct {
	Authenticator *auth.Authenticator
	Store         store.CredentialStore
	Cookies       *auth.CookiePolicy
	UserGuard     *auth.Guard
	AdminGuard    *auth.Guard

	// FederatedVerifier, when set, is required to vouch for every federated
	// login. When nil the email in the request body is trusted.
	FederatedVerifier auth.IdentityVerifier

	// AllowedOrigins enables credentialed CORS for the listed origins.
	AllowedOrigins []string

	Logger *slog.Logger
}

// Server serves the storefront auth API.
type Server struct {
	auth       *auth.Authenticator
	store      store.CredentialStore
	cookies    *auth.CookiePolicy
	userGuard  *auth.Guard
	adminGuard *auth.Guard
	federated  auth.IdentityVerifier
	origins    []string
	logger     *slog.Logger
	router     chi.Router
}

// New creates the API server and its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Authenticator == nil || cfg.Store == nil || cfg.Cookies == nil {
		return nil, errors.New("api requires an authenticator, store and cookie policy")
	}
	if cfg.UserGuard == nil || cfg.AdminGuard == nil {
		return nil, errors.New("api requires user and admin guards")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		auth:       cfg.Authenticator,
		store:      cfg.Store,
		cookies:    cfg.Cookies,
		userGuard:  cfg.UserGuard,
		adminGuard: cfg.AdminGuard,
		federated:  cfg.FederatedVerifier,
		origins:    cfg.AllowedOrigins,
		logger:     logger.With("component", "api"),
	}
	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleReady)

	r.Route("/api/user", func(r chi.Router) {
		r.Post("/register", s.handleUserRegister)
		r.Post("/check-email", s.handleCheckEmail)
		r.Post("/login", s.handleUserLogin)
		r.Post("/google-login", s.handleGoogleLogin)
		r.Post("/google-register", s.handleGoogleRegister)

		r.Group(func(r chi.Router) {
			r.Use(s.userGuard.Require)
			r.Post("/logout", s.handleUserLogout)
			r.Get("/me", s.handleMe)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", s.handleAdminLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.adminGuard.Require)
			r.Post("/logout", s.handleAdminLogout)
			r.Get("/dashboard", s.handleAdminDashboard)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.userGuard.Require)
		for path, text := range userPages {
			r.Get(path, pageHandler(text))
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(s.adminGuard.Require)
		for path, text := range adminPages {
			r.Get(path, pageHandler(text))
		}
	})

	return r
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the credential store answers queries.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.Count(r.Context(), store.KindAdmin); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// requestLogger logs one line per request with chi's request id.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
