package library

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapInstallsDefaultPasswordOnce(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.Bootstrap(ctx, "biblioteca"))

	ok, err := mgr.Auth.CheckPassword(ctx, "biblioteca")
	require.NoError(t, err)
	assert.True(t, ok)

	// A configured store is left untouched.
	require.NoError(t, mgr.Auth.ChangePassword(ctx, "custom"))
	require.NoError(t, mgr.Bootstrap(ctx, "biblioteca"))

	ok, err = mgr.Auth.CheckPassword(ctx, "custom")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemoveUserBlockedByActiveLoan(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.Users.Register(ctx, testUser("0512105678", "m.rossi@studenti.unisa.it")))
	require.NoError(t, mgr.Books.Add(ctx, testBook("A1", 1)))
	mustRegisterLoan(t, mgr, "0512105678", "A1")

	_, err := mgr.RemoveUser(ctx, "0512105678")
	assert.ErrorIs(t, err, ErrUserHasActiveLoans)

	exists, err := mgr.Users.ExistsByID(ctx, "0512105678")
	require.NoError(t, err)
	assert.True(t, exists)

	// Completed loans do not block removal; their rows survive it.
	require.NoError(t, mgr.Loans.Complete(ctx, "0512105678", "A1", time.Now()))

	removed, err := mgr.RemoveUser(ctx, "0512105678")
	require.NoError(t, err)
	assert.True(t, removed)

	count, err := mgr.Loans.CountByUserID(ctx, "0512105678")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRemoveUserMissingID(t *testing.T) {
	mgr := newManager(t)

	removed, err := mgr.RemoveUser(context.Background(), "0599999999")
	require.NoError(t, err)
	assert.False(t, removed)
}
