// ABOUTME: Interactive init command writing a starter gateway config
// ABOUTME: Generates a random JWT secret so the config validates out of the box

package main

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/2389/storefront-gateway/internal/config"
)

// getDataPath returns the directory holding the gateway database.
// Priority: XDG_DATA_HOME/storefront > ~/.local/share/storefront
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "storefront")
}

// generateSecret returns a random base64 secret comfortably above the
// minimum JWT secret length.
func generateSecret() (string, error) {
	b := make([]byte, 48)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// renderConfig serialises cfg as a commented YAML document that config.Parse accepts.
func renderConfig(cfg *config.Config) ([]byte, error) {
	body, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	var out strings.Builder
	out.WriteString("# storefront-gateway configuration\n")
	out.WriteString("# Generated by storefront-gateway init\n\n")
	out.Write(body)
	return []byte(out.String()), nil
}

func runInit() error {
	return initConfig(bufio.NewReader(os.Stdin), os.Stdout)
}

func initConfig(reader *bufio.Reader, w io.Writer) error {
	fmt.Fprintln(w, "storefront-gateway configuration setup")
	fmt.Fprintln(w, "======================================")
	fmt.Fprintln(w)

	outputFile := prompt(reader, w, "Config file path", config.DefaultPath())

	if _, err := os.Stat(outputFile); err == nil {
		if !isYes(prompt(reader, w, "File exists. Overwrite?", "no")) {
			fmt.Fprintln(w, "Aborted.")
			return nil
		}
	}

	var cfg config.Config

	fmt.Fprintln(w, "\n--- Server Configuration ---")
	cfg.Environment = prompt(reader, w, "Environment (production/development)", config.EnvDevelopment)
	cfg.Server.HTTPAddr = prompt(reader, w, "HTTP address", "localhost:8080")

	fmt.Fprintln(w, "\n--- Database Configuration ---")
	cfg.Database.Path = prompt(reader, w, "SQLite database path", filepath.Join(getDataPath(), "gateway.db"))

	fmt.Fprintln(w, "\n--- Auth Configuration ---")
	cfg.Auth.SessionTTLRaw = prompt(reader, w, "Session lifetime", config.DefaultSessionTTL.String())
	cfg.Auth.GoogleClientID = prompt(reader, w, "Google client id (required in production; empty trusts federated requests)", "")
	secret, err := generateSecret()
	if err != nil {
		return err
	}
	cfg.Auth.JWTSecret = secret

	fmt.Fprintln(w, "\n--- CORS Configuration ---")
	origins := prompt(reader, w, "Allowed frontend origins (comma separated)", "http://localhost:5173")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, o)
		}
	}

	fmt.Fprintln(w, "\n--- Tailscale Configuration ---")
	cfg.Tailscale.Enabled = isYes(prompt(reader, w, "Enable Tailscale?", "no"))
	if cfg.Tailscale.Enabled {
		cfg.Tailscale.Hostname = prompt(reader, w, "Tailscale hostname", "storefront")
		cfg.Tailscale.AuthKey = prompt(reader, w, "Tailscale auth key (leave empty to use TS_AUTHKEY)", "")
		cfg.Tailscale.Ephemeral = isYes(prompt(reader, w, "Ephemeral node?", "no"))
		cfg.Tailscale.Funnel = isYes(prompt(reader, w, "Enable Funnel (public HTTPS)?", "no"))
		if !cfg.Tailscale.Funnel {
			cfg.Tailscale.HTTPS = isYes(prompt(reader, w, "Serve HTTPS with tailnet certificates?", "yes"))
		}
	}

	fmt.Fprintln(w, "\n--- Logging Configuration ---")
	cfg.Logging.Level = prompt(reader, w, "Log level (debug/info/warn/error)", "info")
	cfg.Logging.Format = prompt(reader, w, "Log format (text/json)", "text")

	data, err := renderConfig(&cfg)
	if err != nil {
		return err
	}
	if _, err := config.Parse(data); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// The file holds the JWT secret
	if err := os.WriteFile(outputFile, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	dataDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Fprintf(w, "\nConfig written to %s\n", outputFile)
	fmt.Fprintf(w, "Data directory: %s\n", dataDir)
	fmt.Fprintln(w, "\nNext steps:")
	fmt.Fprintln(w, "  storefront-gateway create-admin --email you@example.com")
	fmt.Fprintln(w, "  storefront-gateway serve")

	return nil
}

func isYes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, w io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(w, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(w, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Fprintln(w)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
