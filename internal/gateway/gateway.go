// ABOUTME: Gateway wires config, credential store, auth and the HTTP API into one process
// ABOUTME: Manages listeners (TCP or Tailscale) and graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"tailscale.com/tsnet"

	"github.com/2389/storefront-gateway/internal/api"
	"github.com/2389/storefront-gateway/internal/auth"
	"github.com/2389/storefront-gateway/internal/config"
	"github.com/2389/storefront-gateway/internal/store"
)

// shutdownTimeout bounds graceful shutdown after the run context ends.
const shutdownTimeout = 5 * time.Second

// Gateway is the running storefront auth service.
type Gateway struct {
	config     *config.Config
	store      *store.SQLiteStore
	api        *api.Server
	httpServer *http.Server
	logger     *slog.Logger

	tsnetServer *tsnet.Server

	// listenAddr is set once the HTTP listener is bound.
	listenAddr chan net.Addr
}

// New builds a Gateway from configuration. The context is only used for
// identity provider discovery when a Google client id is configured.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	apiServer, err := newAPIServer(ctx, cfg, sqlStore, logger)
	if err != nil {
		_ = sqlStore.Close()
		return nil, err
	}

	gw := &Gateway{
		config:     cfg,
		store:      sqlStore,
		api:        apiServer,
		logger:     logger.With("component", "gateway"),
		listenAddr: make(chan net.Addr, 1),
	}

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           apiServer,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	return gw, nil
}

// newAPIServer assembles the auth components for the configured environment.
func newAPIServer(ctx context.Context, cfg *config.Config, credStore store.CredentialStore, logger *slog.Logger) (*api.Server, error) {
	codec, err := auth.NewTokenCodec([]byte(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token codec: %w", err)
	}

	hasher, err := auth.NewPasswordHasher(0)
	if err != nil {
		return nil, fmt.Errorf("creating password hasher: %w", err)
	}

	authenticator, err := auth.NewAuthenticator(auth.AuthenticatorConfig{
		Store:  credStore,
		Codec:  codec,
		Hasher: hasher,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating authenticator: %w", err)
	}

	var federated auth.IdentityVerifier
	if cfg.Auth.GoogleClientID != "" {
		v, err := auth.NewGoogleVerifier(ctx, cfg.Auth.GoogleClientID)
		if err != nil {
			return nil, fmt.Errorf("creating google verifier: %w", err)
		}
		federated = v
		logger.Info("google sign-in verification enabled")
	} else {
		logger.Warn("auth.google_client_id not set; federated logins trust the request body")
	}

	return api.New(api.Config{
		Authenticator:     authenticator,
		Store:             credStore,
		Cookies:           auth.NewCookiePolicy(cfg.Environment, codec.TTL()),
		UserGuard:         auth.NewUserGuard(codec, credStore, logger),
		AdminGuard:        auth.NewAdminGuard(codec, credStore, logger),
		FederatedVerifier: federated,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		Logger:            logger,
	})
}

// Handler returns the HTTP handler serving the API.
func (g *Gateway) Handler() http.Handler {
	return g.api
}

// Addr blocks until the HTTP listener is bound and returns its address.
func (g *Gateway) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case addr := <-g.listenAddr:
		g.listenAddr <- addr
		return addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// setupListener creates the HTTP listener (Tailscale or TCP).
func (g *Gateway) setupListener(ctx context.Context) (net.Listener, error) {
	if g.config.Tailscale.Enabled {
		if g.config.Server.HTTPAddr != "" {
			g.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", g.config.Server.HTTPAddr)
		}
		return g.setupTailscaleListener(ctx)
	}

	g.logger.Info("starting gateway", "http_addr", g.config.Server.HTTPAddr, "environment", g.config.Environment)
	ln, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address: %w", err)
	}
	return ln, nil
}

func (g *Gateway) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)
	g.listenAddr <- ln.Addr()

	go func() {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown (context canceled), or an error if the server fails.
func (g *Gateway) Run(ctx context.Context) error {
	ln, err := g.setupListener(ctx)
	if err != nil {
		_ = g.closeResources()
		return err
	}

	errCh := g.startServer(ln)

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownErr := g.Shutdown(shutdownCtx)

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))
	if err := g.closeResources(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (g *Gateway) closeResources() error {
	var errs []error
	if g.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", g.tsnetServer.Close())
		g.tsnetServer = nil
	}
	if g.store != nil {
		errs = appendCloseError(errs, "store close", g.store.Close())
		g.store = nil
	}
	return errors.Join(errs...)
}
