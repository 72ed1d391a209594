package library

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddBookStartsFullyAvailable(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	b := testBook("978-8845292613", 5)
	b.RemainingCopies = 1 // ignored on creation
	require.NoError(t, mgr.Books.Add(ctx, b))

	got, err := mgr.Books.GetByISBN(ctx, b.ISBN)
	require.NoError(t, err)
	assert.Equal(t, 5, got.TotalCopies)
	assert.Equal(t, 5, got.RemainingCopies)
}

func TestAddBookRejectsDuplicateAndNegative(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.Books.Add(ctx, testBook("A1", 2)))
	assert.ErrorIs(t, mgr.Books.Add(ctx, testBook("A1", 3)), ErrDuplicateISBN)

	assert.ErrorIs(t, mgr.Books.Add(ctx, testBook("A2", -1)), ErrNegativeBookCopies)
}

func TestAddAllIsAtomic(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.Books.Add(ctx, testBook("A1", 1)))

	batch := []Book{testBook("B1", 1), testBook("A1", 1), testBook("B2", 1), testBook("B2", 1)}
	err := mgr.Books.AddAll(ctx, batch)

	var dup *DuplicateISBNsError
	require.ErrorAs(t, err, &dup)
	assert.ElementsMatch(t, []string{"A1", "B2"}, dup.ISBNs)

	// None of the batch was persisted.
	books, err := mgr.Books.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "A1", books[0].ISBN)
}

func TestAddAllSucceeds(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.Books.AddAll(ctx, []Book{testBook("A1", 1), testBook("A2", 2), testBook("A3", 3)}))

	books, err := mgr.Books.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, books, 3)
	for _, b := range books {
		assert.Equal(t, b.TotalCopies, b.RemainingCopies)
	}
}

func TestBookSearches(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.Books.AddAll(ctx, []Book{
		{ISBN: "A1", Title: "Il nome della rosa", Author: "Umberto Eco", Genre: "Novel", ReleaseYear: 1980, TotalCopies: 1},
		{ISBN: "A2", Title: "Il pendolo di Foucault", Author: "Umberto Eco", Genre: "Novel", ReleaseYear: 1988, TotalCopies: 1},
		{ISBN: "A3", Title: "La luna e i falò", Author: "Cesare Pavese", Genre: "Classic", ReleaseYear: 1950, TotalCopies: 1},
	}))

	byAuthor, err := mgr.Books.GetAllByAuthorContaining(ctx, "Eco")
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	byGenre, err := mgr.Books.GetAllByGenreContaining(ctx, "Class")
	require.NoError(t, err)
	require.Len(t, byGenre, 1)
	assert.Equal(t, "A3", byGenre[0].ISBN)

	byTitle, err := mgr.Books.GetAllByTitleContaining(ctx, "pendolo")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "A2", byTitle[0].ISBN)

	// Infix matches are case-sensitive.
	byTitle, err = mgr.Books.GetAllByTitleContaining(ctx, "PENDOLO")
	require.NoError(t, err)
	assert.Empty(t, byTitle)

	byYear, err := mgr.Books.GetAllByReleaseYear(ctx, 1988)
	require.NoError(t, err)
	require.Len(t, byYear, 1)
	assert.Equal(t, "A2", byYear[0].ISBN)

	_, err = mgr.Books.GetByISBN(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownBook)
}

func TestUpdateBookByISBN(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.Books.Add(ctx, testBook("A1", 3)))

	updated := testBook("A1", 4)
	updated.RemainingCopies = 2
	updated.Title = "Il nome della rosa (riveduta)"
	require.NoError(t, mgr.Books.UpdateByISBN(ctx, updated))

	got, err := mgr.Books.GetByISBN(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Il nome della rosa (riveduta)", got.Title)
	assert.Equal(t, 4, got.TotalCopies)
	assert.Equal(t, 2, got.RemainingCopies)

	bad := testBook("A1", 2)
	bad.RemainingCopies = 3
	assert.ErrorIs(t, mgr.Books.UpdateByISBN(ctx, bad), ErrInvalidBookCopies)

	bad.TotalCopies = -1
	bad.RemainingCopies = -1
	assert.ErrorIs(t, mgr.Books.UpdateByISBN(ctx, bad), ErrNegativeBookCopies)

	missing := testBook("nope", 1)
	missing.RemainingCopies = 1
	assert.ErrorIs(t, mgr.Books.UpdateByISBN(ctx, missing), ErrUnknownBook)
}

func TestRemoveBookByISBN(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.Books.Add(ctx, testBook("A1", 2)))
	require.NoError(t, mgr.Users.Register(ctx, testUser("0512105678", "m.rossi@studenti.unisa.it")))

	assert.ErrorIs(t, mgr.Books.RemoveByISBN(ctx, "missing"), ErrUnknownBook)

	// A copy on loan blocks deletion.
	mustRegisterLoan(t, mgr, "0512105678", "A1")
	assert.ErrorIs(t, mgr.Books.RemoveByISBN(ctx, "A1"), ErrMissingBookCopies)

	exists, err := mgr.Books.ExistsByISBN(ctx, "A1")
	require.NoError(t, err)
	assert.True(t, exists)

	// With every copy back on the shelf the book can go.
	require.NoError(t, mgr.Loans.Complete(ctx, "0512105678", "A1", time.Now()))
	require.NoError(t, mgr.Books.RemoveByISBN(ctx, "A1"))

	exists, err = mgr.Books.ExistsByISBN(ctx, "A1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCountRemainingCopies(t *testing.T) {
	mgr := newManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.Books.Add(ctx, testBook("A1", 5)))

	remaining, err := mgr.Books.CountRemainingCopies(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)

	_, err = mgr.Books.CountRemainingCopies(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownBook)
}
