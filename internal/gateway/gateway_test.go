// ABOUTME: Tests for the Gateway process wiring and lifecycle
// ABOUTME: Runs the real HTTP server on a loopback port against a temp SQLite database

package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/storefront-gateway/internal/config"
	"github.com/2389/storefront-gateway/internal/store"
)

// testConfig creates a minimal config for testing on an ephemeral port.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Environment: config.EnvDevelopment,
		Server: config.ServerConfig{
			HTTPAddr:          "127.0.0.1:0",
			ReadHeaderTimeout: 5 * time.Second,
		},
		Database: config.DatabaseConfig{
			Path: filepath.Join(t.TempDir(), "gateway.db"),
		},
		Auth: config.AuthConfig{
			JWTSecret:  "gateway-test-secret-0123456789ab",
			SessionTTL: 24 * time.Hour,
		},
	}
}

// testLogger creates a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// runGateway starts gw and returns its base URL and a stop function that
// waits for Run to return.
func runGateway(t *testing.T, gw *Gateway) (string, func() error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Run(ctx)
	}()

	addrCtx, addrCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer addrCancel()
	addr, err := gw.Addr(addrCtx)
	if err != nil {
		cancel()
		t.Fatalf("gateway did not start listening: %v", err)
	}

	stop := func() error {
		cancel()
		select {
		case err := <-errCh:
			return err
		case <-time.After(5 * time.Second):
			return errors.New("gateway did not shutdown in time")
		}
	}
	return "http://" + addr.String(), stop
}

func TestGatewayNew(t *testing.T) {
	cfg := testConfig(t)

	gw, err := New(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer gw.Shutdown(context.Background())

	if gw.config != cfg {
		t.Error("gateway config mismatch")
	}
	if gw.store == nil {
		t.Error("store should not be nil")
	}
	if gw.Handler() == nil {
		t.Error("Handler() should not be nil")
	}
}

func TestGatewayNew_BadSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "short"

	if _, err := New(context.Background(), cfg, testLogger()); err == nil {
		t.Fatal("New() with short secret should fail")
	}
}

func TestGatewayRunAndShutdown(t *testing.T) {
	gw, err := New(context.Background(), testConfig(t), testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	baseURL, stop := runGateway(t, gw)

	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	if err := stop(); err != nil {
		t.Errorf("Run() returned unexpected error: %v", err)
	}
}

func TestGatewayAdminSessionEndToEnd(t *testing.T) {
	gw, err := New(context.Background(), testConfig(t), testLogger())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	err = gw.store.Create(context.Background(), &store.Principal{
		ID:           uuid.New().String(),
		Kind:         store.KindAdmin,
		Email:        "a@x.com",
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("creating admin: %v", err)
	}

	baseURL, stop := runGateway(t, gw)
	defer stop()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New() error = %v", err)
	}
	client := &http.Client{Jar: jar, Timeout: 5 * time.Second}

	resp, err := client.Get(baseURL + "/api/admin/dashboard")
	if err != nil {
		t.Fatalf("dashboard request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("dashboard before login status = %d, want 401", resp.StatusCode)
	}

	resp, err = client.Post(baseURL+"/api/admin/login", "application/json",
		bytes.NewBufferString(`{"email":"a@x.com","password":"secret123"}`))
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}

	resp, err = client.Get(baseURL + "/api/admin/dashboard")
	if err != nil {
		t.Fatalf("dashboard request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard after login status = %d, want 200", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte(`"a@x.com"`)) {
		t.Errorf("dashboard body = %s, want admin email", body)
	}
}

func TestResolveTailscaleStateDir(t *testing.T) {
	got, err := resolveTailscaleStateDir("/var/lib/ts")
	if err != nil || got != "/var/lib/ts" {
		t.Errorf("resolveTailscaleStateDir(configured) = %q, %v", got, err)
	}

	got, err = resolveTailscaleStateDir("")
	if err != nil {
		t.Fatalf("resolveTailscaleStateDir(\"\") error = %v", err)
	}
	if filepath.Base(filepath.Dir(got)) != "storefront-gateway" {
		t.Errorf("default state dir = %q", got)
	}
}

func TestResolveTailscaleAuthKey(t *testing.T) {
	t.Setenv("TS_AUTHKEY", "")
	if _, err := resolveTailscaleAuthKey(""); err == nil {
		t.Error("expected error without any auth key")
	}

	t.Setenv("TS_AUTHKEY", "tskey-env")
	if got, _ := resolveTailscaleAuthKey(""); got != "tskey-env" {
		t.Errorf("auth key = %q, want env value", got)
	}
	if got, _ := resolveTailscaleAuthKey("tskey-config"); got != "tskey-config" {
		t.Errorf("auth key = %q, want configured value", got)
	}
}
