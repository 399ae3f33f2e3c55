// ABOUTME: Principal persistence for the SQLite store
// ABOUTME: Users and admins live in separate tables with per-table unique emails

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// principalTable names the table and select list for a kind. Admins have no
// federated column, so it is projected as a constant.
type principalTable struct {
	name    string
	columns string
}

var principalTables = map[PrincipalKind]principalTable{
	KindUser: {
		name:    "users",
		columns: "id, email, display_name, password_hash, federated, created_at",
	},
	KindAdmin: {
		name:    "admins",
		columns: "id, email, display_name, password_hash, 0, created_at",
	},
}

func tableFor(kind PrincipalKind) (principalTable, error) {
	t, ok := principalTables[kind]
	if !ok {
		return principalTable{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return t, nil
}

// Create inserts a new principal into the table for p.Kind.
// Returns ErrEmailExists when the email is already registered for that kind.
func (s *SQLiteStore) Create(ctx context.Context, p *Principal) error {
	t, err := tableFor(p.Kind)
	if err != nil {
		return err
	}

	email := NormalizeEmail(p.Email)
	createdAt := p.CreatedAt.UTC().Format(time.RFC3339)

	switch p.Kind {
	case KindUser:
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO users (id, email, display_name, password_hash, federated, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, p.ID, email, p.DisplayName, nullString(p.PasswordHash), p.Federated, createdAt)
	case KindAdmin:
		if p.PasswordHash == "" {
			return fmt.Errorf("admin %s requires a password hash", email)
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO admins (id, email, display_name, password_hash, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, p.ID, email, p.DisplayName, p.PasswordHash, createdAt)
	}
	if err != nil {
		if isUniqueEmailViolation(err, t.name) {
			return ErrEmailExists
		}
		return fmt.Errorf("inserting into %s: %w", t.name, err)
	}

	p.Email = email
	s.logger.Info("created principal", "kind", p.Kind, "id", p.ID)
	return nil
}

// FindByEmail looks up a principal by email (case-insensitive).
func (s *SQLiteStore) FindByEmail(ctx context.Context, kind PrincipalKind, email string) (*Principal, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE email = ?`, t.columns, t.name)
	return s.scanPrincipal(kind, s.db.QueryRowContext(ctx, query, NormalizeEmail(email)))
}

// FindByID looks up a principal by id.
func (s *SQLiteStore) FindByID(ctx context.Context, kind PrincipalKind, id string) (*Principal, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, t.columns, t.name)
	return s.scanPrincipal(kind, s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStore) scanPrincipal(kind PrincipalKind, row *sql.Row) (*Principal, error) {
	var p Principal
	var passwordHash sql.NullString
	var federated int
	var createdAtStr string

	err := row.Scan(&p.ID, &p.Email, &p.DisplayName, &passwordHash, &federated, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPrincipalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", kind, err)
	}

	p.Kind = kind
	p.PasswordHash = passwordHash.String
	p.Federated = federated != 0
	p.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	return &p, nil
}

// Delete removes a principal. Returns ErrPrincipalNotFound if no row matched.
func (s *SQLiteStore) Delete(ctx context.Context, kind PrincipalKind, id string) error {
	t, err := tableFor(kind)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t.name), id)
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", t.name, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrPrincipalNotFound
	}

	s.logger.Info("deleted principal", "kind", kind, "id", id)
	return nil
}

// Count returns the number of principals of the given kind.
func (s *SQLiteStore) Count(ctx context.Context, kind PrincipalKind) (int, error) {
	t, err := tableFor(kind)
	if err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t.name)).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting %s: %w", t.name, err)
	}
	return count, nil
}
