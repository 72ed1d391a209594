package library

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	mgr, err := NewManager(filepath.Join(dir, "lib.db"))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func testUser(id, email string) User {
	return User{ID: id, Email: email, Name: "Mario", Surname: "Rossi"}
}

func testBook(isbn string, copies int) Book {
	return Book{
		ISBN:        isbn,
		Title:       "Il nome della rosa",
		Author:      "Umberto Eco",
		Genre:       "Novel",
		Description: "A monastery mystery",
		ReleaseYear: 1980,
		TotalCopies: copies,
	}
}

func mustRegisterLoan(t *testing.T, mgr *Manager, userID, isbn string) *Loan {
	t.Helper()
	start := time.Now()
	loan, err := mgr.Loans.Register(context.Background(), userID, isbn, start, start.AddDate(0, 0, 30))
	require.NoError(t, err)
	return loan
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	store, err := OpenStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-run or break the schema.
	store, err = OpenStore(path)
	require.NoError(t, err)
	defer store.Close()

	var version int
	require.NoError(t, store.db.Get(&version, `SELECT value FROM meta WHERE key='schema_version'`))
	require.Equal(t, schemaVersion, version)
}

func TestServicesShareOneStore(t *testing.T) {
	store := tempStore(t)
	users := NewUserService(store)
	books := NewBookService(store)
	loans := NewLoanService(store, users, books)
	ctx := context.Background()

	require.NoError(t, users.Register(ctx, testUser("0512105678", "m.rossi@studenti.unisa.it")))
	require.NoError(t, books.Add(ctx, testBook("A1", 1)))

	start := time.Now()
	_, err := loans.Register(ctx, "0512105678", "A1", start, start.AddDate(0, 0, 7))
	require.NoError(t, err)

	remaining, err := books.CountRemainingCopies(ctx, "A1")
	require.NoError(t, err)
	require.Equal(t, 0, remaining)
}

func TestStoreCreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "nested", "deeper", "lib.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
