package library

import (
	"context"
	"log/slog"
)

// Manager is a thin façade wiring the store and the four domain
// services, plus the use-case logic that spans more than one service.
type Manager struct {
	store *Store

	Users *UserService
	Books *BookService
	Loans *LoanService
	Auth  *AuthService
}

// NewManager opens (or creates) the SQLite database at dbPath and
// wires the services on top of it.
func NewManager(dbPath string) (*Manager, error) {
	store, err := OpenStore(dbPath)
	if err != nil {
		return nil, err
	}

	users := NewUserService(store)
	books := NewBookService(store)
	return &Manager{
		store: store,
		Users: users,
		Books: books,
		Loans: NewLoanService(store, users, books),
		Auth:  NewAuthService(store),
	}, nil
}

// Close closes the underlying store.
func (m *Manager) Close() error { return m.store.Close() }

// Bootstrap installs the default operator password on a fresh store so
// the application is usable before an explicit setup. Called once at
// process start; a configured store is left untouched.
func (m *Manager) Bootstrap(ctx context.Context, defaultPassword string) error {
	present, err := m.Auth.IsPresent(ctx)
	if err != nil {
		return err
	}
	if present {
		return nil
	}
	slog.Info("no credentials configured, installing default password")
	return m.Auth.ChangePassword(ctx, defaultPassword)
}

// RemoveUser deletes a member unless they still hold an active loan.
// The rule spans the user and loan services, so it lives here rather
// than inside either of them.
func (m *Manager) RemoveUser(ctx context.Context, userID string) (bool, error) {
	loans, err := m.Loans.GetByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, loan := range loans {
		if loan.Active() {
			return false, ErrUserHasActiveLoans
		}
	}
	return m.Users.RemoveByID(ctx, userID)
}
