// ABOUTME: Mock CredentialStore implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject storage faults

package store

import (
	"context"
	"fmt"
	"sync"
)

// MockStore is an in-memory CredentialStore implementation for testing.
type MockStore struct {
	mu         sync.RWMutex
	principals map[PrincipalKind]map[string]*Principal // kind -> id -> principal
	byEmail    map[PrincipalKind]map[string]string     // kind -> normalized email -> id

	// Err, when set, is returned from every method to simulate a storage fault.
	Err error
}

// Ensure MockStore implements CredentialStore.
var _ CredentialStore = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	m := &MockStore{
		principals: make(map[PrincipalKind]map[string]*Principal),
		byEmail:    make(map[PrincipalKind]map[string]string),
	}
	for _, kind := range []PrincipalKind{KindUser, KindAdmin} {
		m.principals[kind] = make(map[string]*Principal)
		m.byEmail[kind] = make(map[string]string)
	}
	return m
}

// SetErr sets (or clears, with nil) the fault returned by every method.
func (m *MockStore) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// Create stores a new principal.
func (m *MockStore) Create(ctx context.Context, p *Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if !p.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, p.Kind)
	}

	email := NormalizeEmail(p.Email)
	if _, exists := m.byEmail[p.Kind][email]; exists {
		return ErrEmailExists
	}
	if _, exists := m.principals[p.Kind][p.ID]; exists {
		return fmt.Errorf("%s %s already exists", p.Kind, p.ID)
	}

	p.Email = email
	// Make a copy to avoid external modification
	c := *p
	m.principals[p.Kind][c.ID] = &c
	m.byEmail[p.Kind][email] = c.ID
	return nil
}

// FindByEmail retrieves a principal by email.
func (m *MockStore) FindByEmail(ctx context.Context, kind PrincipalKind, email string) (*Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	id, ok := m.byEmail[kind][NormalizeEmail(email)]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	c := *m.principals[kind][id]
	return &c, nil
}

// FindByID retrieves a principal by id.
func (m *MockStore) FindByID(ctx context.Context, kind PrincipalKind, id string) (*Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	p, ok := m.principals[kind][id]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	c := *p
	return &c, nil
}

// Delete removes a principal.
func (m *MockStore) Delete(ctx context.Context, kind PrincipalKind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	p, ok := m.principals[kind][id]
	if !ok {
		return ErrPrincipalNotFound
	}
	delete(m.byEmail[kind], p.Email)
	delete(m.principals[kind], id)
	return nil
}

// Count returns the number of principals of a kind.
func (m *MockStore) Count(ctx context.Context, kind PrincipalKind) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return 0, m.Err
	}
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return len(m.principals[kind]), nil
}
