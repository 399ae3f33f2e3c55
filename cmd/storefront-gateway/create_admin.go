// ABOUTME: create-admin command bootstrapping administrator accounts
// ABOUTME: Reads the password without echo and registers the admin in the credential store

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/2389/storefront-gateway/internal/auth"
	"github.com/2389/storefront-gateway/internal/config"
	"github.com/2389/storefront-gateway/internal/store"
)

// passwordHashCost is the bcrypt cost for new admin passwords; 0 selects the default.
var passwordHashCost = 0

// parseCreateAdminArgs accepts "--email value", "--email=value" and the -e forms.
func parseCreateAdminArgs(args []string) (string, error) {
	var email string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--email" || arg == "-e":
			if i+1 >= len(args) {
				return "", fmt.Errorf("%s requires a value", arg)
			}
			email = args[i+1]
			i++
		case strings.HasPrefix(arg, "--email="):
			email = strings.TrimPrefix(arg, "--email=")
		case strings.HasPrefix(arg, "-e="):
			email = strings.TrimPrefix(arg, "-e=")
		case strings.HasPrefix(arg, "-"):
			return "", fmt.Errorf("unknown flag: %s", arg)
		default:
			return "", fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return "", errors.New("--email flag is required")
	}
	return email, nil
}

func runCreateAdmin(ctx context.Context, args []string) error {
	email, err := parseCreateAdminArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	password, err := promptPassword(os.Stdout)
	if err != nil {
		return err
	}

	return createAdmin(ctx, cfg, email, password, os.Stdout)
}

// promptPassword asks for the password twice without echo. When stdin is
// not a terminal a single line is read instead, so the command can be scripted.
func promptPassword(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(w, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(w, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

// createAdmin registers an administrator in the configured database.
func createAdmin(ctx context.Context, cfg *config.Config, email, password string, w io.Writer) error {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	codec, err := auth.NewTokenCodec([]byte(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token codec: %w", err)
	}
	hasher, err := auth.NewPasswordHasher(passwordHashCost)
	if err != nil {
		return fmt.Errorf("creating password hasher: %w", err)
	}
	authenticator, err := auth.NewAuthenticator(auth.AuthenticatorConfig{
		Store:  s,
		Codec:  codec,
		Hasher: hasher,
		Logger: newLogger(cfg.Logging, io.Discard),
	})
	if err != nil {
		return fmt.Errorf("creating authenticator: %w", err)
	}

	admin, err := authenticator.Register(ctx, auth.RegisterRequest{
		Kind:     store.KindAdmin,
		Email:    email,
		Password: password,
	})
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		return fmt.Errorf("an administrator with email %s already exists", store.NormalizeEmail(email))
	case err != nil:
		return fmt.Errorf("creating administrator: %w", err)
	}

	count, err := s.Count(ctx, store.KindAdmin)
	if err != nil {
		return fmt.Errorf("counting administrators: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Fprintf(w, "  ✓ Created administrator: %s\n", admin.Email)
	fmt.Fprintf(w, "  ID:             %s\n", admin.ID)
	fmt.Fprintf(w, "  Database:       %s\n", cfg.Database.Path)
	fmt.Fprintf(w, "  Administrators: %d\n", count)
	return nil
}
