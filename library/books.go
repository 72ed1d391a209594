package library

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
)

// BookService owns every mutation of the catalog record set and
// guards the copy-count invariant 0 <= remaining <= total.
type BookService struct {
	store *Store
}

// NewBookService creates a BookService on top of the store.
func NewBookService(store *Store) *BookService {
	return &BookService{store: store}
}

// Add inserts a new catalog entry. A book starts fully available, so
// the remaining count is forced to the total regardless of input.
func (s *BookService) Add(ctx context.Context, book Book) error {
	if book.TotalCopies < 0 {
		return ErrNegativeBookCopies
	}

	tx, err := s.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM books WHERE isbn=?)`, book.ISBN); err != nil {
		return err
	}
	if exists {
		return ErrDuplicateISBN
	}

	if err := insertBook(ctx, tx, book); err != nil {
		return err
	}
	return tx.Commit()
}

// AddAll inserts a batch of catalog entries atomically. If any isbn
// collides with the catalog or with a sibling batch entry the whole
// batch is rejected and the offending isbns are reported.
func (s *BookService) AddAll(ctx context.Context, books []Book) error {
	for _, b := range books {
		if b.TotalCopies < 0 {
			return ErrNegativeBookCopies
		}
	}

	tx, err := s.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var offending []string
	seen := make(map[string]bool, len(books))
	for _, b := range books {
		if seen[b.ISBN] {
			offending = append(offending, b.ISBN)
			continue
		}
		seen[b.ISBN] = true

		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM books WHERE isbn=?)`, b.ISBN); err != nil {
			return err
		}
		if exists {
			offending = append(offending, b.ISBN)
		}
	}
	if len(offending) > 0 {
		return &DuplicateISBNsError{ISBNs: offending}
	}

	for _, b := range books {
		if err := insertBook(ctx, tx, b); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertBook(ctx context.Context, e execer, book Book) error {
	_, err := e.ExecContext(ctx,
		`INSERT INTO books(isbn,title,author,genre,description,release_year,total_copies,remaining_copies)
         VALUES(?,?,?,?,?,?,?,?)`,
		book.ISBN, book.Title, book.Author, book.Genre, book.Description,
		book.ReleaseYear, book.TotalCopies, book.TotalCopies)
	return err
}

// GetByISBN fetches a single catalog entry.
func (s *BookService) GetByISBN(ctx context.Context, isbn string) (*Book, error) {
	query, args, err := dialect.From("books").Where(goqu.C("isbn").Eq(isbn)).Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	var b Book
	if err := s.store.db.GetContext(ctx, &b, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownBook
		}
		return nil, err
	}
	return &b, nil
}

// GetAll returns the whole catalog ordered by isbn.
func (s *BookService) GetAll(ctx context.Context) ([]Book, error) {
	return s.selectBooks(ctx)
}

// GetAllByAuthorContaining returns books whose author contains fragment.
func (s *BookService) GetAllByAuthorContaining(ctx context.Context, fragment string) ([]Book, error) {
	return s.selectBooks(ctx, goqu.C("author").Like("%"+fragment+"%"))
}

// GetAllByGenreContaining returns books whose genre contains fragment.
func (s *BookService) GetAllByGenreContaining(ctx context.Context, fragment string) ([]Book, error) {
	return s.selectBooks(ctx, goqu.C("genre").Like("%"+fragment+"%"))
}

// GetAllByTitleContaining returns books whose title contains fragment.
func (s *BookService) GetAllByTitleContaining(ctx context.Context, fragment string) ([]Book, error) {
	return s.selectBooks(ctx, goqu.C("title").Like("%"+fragment+"%"))
}

// GetAllByReleaseYear returns books released exactly in year.
func (s *BookService) GetAllByReleaseYear(ctx context.Context, year int) ([]Book, error) {
	return s.selectBooks(ctx, goqu.C("release_year").Eq(year))
}

func (s *BookService) selectBooks(ctx context.Context, where ...goqu.Expression) ([]Book, error) {
	query, args, err := dialect.From("books").Where(where...).Order(goqu.C("isbn").Asc()).Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	var books []Book
	if err := s.store.db.SelectContext(ctx, &books, query, args...); err != nil {
		return nil, err
	}
	return books, nil
}

// ExistsByISBN reports whether the catalog holds this isbn.
func (s *BookService) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	var exists bool
	err := s.store.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM books WHERE isbn=?)`, isbn)
	return exists, err
}

// RemoveByISBN deletes a catalog entry. A book with any copy out on
// loan cannot be deleted.
func (s *BookService) RemoveByISBN(ctx context.Context, isbn string) error {
	tx, err := s.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var counts struct {
		Total     int `db:"total_copies"`
		Remaining int `db:"remaining_copies"`
	}
	if err := tx.GetContext(ctx, &counts, `SELECT total_copies, remaining_copies FROM books WHERE isbn=?`, isbn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnknownBook
		}
		return err
	}
	if counts.Remaining < counts.Total {
		return ErrMissingBookCopies
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE isbn=?`, isbn); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateByISBN overwrites the mutable fields of the catalog entry with
// the same isbn. The isbn itself is immutable; changing it requires
// delete plus re-add.
func (s *BookService) UpdateByISBN(ctx context.Context, book Book) error {
	if book.TotalCopies < 0 || book.RemainingCopies < 0 {
		return ErrNegativeBookCopies
	}
	if book.RemainingCopies > book.TotalCopies {
		return ErrInvalidBookCopies
	}

	res, err := s.store.db.ExecContext(ctx,
		`UPDATE books SET title=?, author=?, genre=?, description=?, release_year=?, total_copies=?, remaining_copies=?
         WHERE isbn=?`,
		book.Title, book.Author, book.Genre, book.Description,
		book.ReleaseYear, book.TotalCopies, book.RemainingCopies, book.ISBN)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUnknownBook
	}
	return nil
}

// CountRemainingCopies returns the number of copies currently on the
// shelf for this isbn.
func (s *BookService) CountRemainingCopies(ctx context.Context, isbn string) (int, error) {
	var remaining int
	if err := s.store.db.GetContext(ctx, &remaining, `SELECT remaining_copies FROM books WHERE isbn=?`, isbn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUnknownBook
		}
		return 0, err
	}
	return remaining, nil
}
