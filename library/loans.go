package library

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
)

// LoanService manages the borrow/return lifecycle. A loan is ACTIVE
// while loan_end is NULL and COMPLETED once it is set; COMPLETED is
// terminal and rows are never deleted. Copy bookkeeping on the book
// happens inside the same transaction as the loan row write.
type LoanService struct {
	store *Store
	users *UserService
	books *BookService
}

// NewLoanService creates a LoanService. It consults the user and book
// services for existence checks but never calls their mutations.
func NewLoanService(store *Store, users *UserService, books *BookService) *LoanService {
	return &LoanService{store: store, users: users, books: books}
}

// Register records a new borrow event and takes one copy off the
// shelf. It refuses when the user or book is unknown, when the pair
// already has an active loan, or when no copy is left.
func (s *LoanService) Register(ctx context.Context, userID, bookISBN string, start, deadline time.Time) (*Loan, error) {
	if ok, err := s.users.ExistsByID(ctx, userID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrUnknownUser
	}
	if ok, err := s.books.ExistsByISBN(ctx, bookISBN); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrUnknownBook
	}

	tx, err := s.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var active bool
	if err := tx.GetContext(ctx, &active,
		`SELECT EXISTS(SELECT 1 FROM loans WHERE user_id=? AND book_isbn=? AND loan_end IS NULL)`,
		userID, bookISBN); err != nil {
		return nil, err
	}
	if active {
		return nil, ErrLoanAlreadyRegistered
	}

	var remaining int
	if err := tx.GetContext(ctx, &remaining, `SELECT remaining_copies FROM books WHERE isbn=?`, bookISBN); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownBook
		}
		return nil, err
	}
	if remaining == 0 {
		return nil, ErrNoCopiesAvailable
	}

	loan := Loan{
		ID:       uuid.NewString(),
		UserID:   userID,
		BookISBN: bookISBN,
		Start:    start,
		Deadline: deadline,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO loans(id,user_id,book_isbn,loan_start,loan_deadline,loan_end) VALUES(?,?,?,?,?,NULL)`,
		loan.ID, loan.UserID, loan.BookISBN, loan.Start, loan.Deadline); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE books SET remaining_copies = remaining_copies - 1 WHERE isbn=?`, bookISBN); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &loan, nil
}

// Complete ends the active loan for the pair and puts the copy back on
// the shelf.
func (s *LoanService) Complete(ctx context.Context, userID, bookISBN string, end time.Time) error {
	tx, err := s.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var loanID string
	if err := tx.GetContext(ctx, &loanID,
		`SELECT id FROM loans WHERE user_id=? AND book_isbn=? AND loan_end IS NULL`,
		userID, bookISBN); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUnknownLoan
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE loans SET loan_end=? WHERE id=?`, end, loanID); err != nil {
		return err
	}
	// Guarded so a stray completion can never push remaining past total.
	if _, err := tx.ExecContext(ctx,
		`UPDATE books SET remaining_copies = remaining_copies + 1 WHERE isbn=? AND remaining_copies < total_copies`,
		bookISBN); err != nil {
		return err
	}
	return tx.Commit()
}

// IsActive reports whether an active loan exists for the pair.
func (s *LoanService) IsActive(ctx context.Context, userID, bookISBN string) (bool, error) {
	var active bool
	err := s.store.db.GetContext(ctx, &active,
		`SELECT EXISTS(SELECT 1 FROM loans WHERE user_id=? AND book_isbn=? AND loan_end IS NULL)`,
		userID, bookISBN)
	return active, err
}

// Has reports whether any loan, active or completed, ever existed for
// the pair.
func (s *LoanService) Has(ctx context.Context, userID, bookISBN string) (bool, error) {
	var has bool
	err := s.store.db.GetContext(ctx, &has,
		`SELECT EXISTS(SELECT 1 FROM loans WHERE user_id=? AND book_isbn=?)`,
		userID, bookISBN)
	return has, err
}

// CountByUserID returns the total number of loan rows for a user,
// active and completed.
func (s *LoanService) CountByUserID(ctx context.Context, userID string) (int, error) {
	query, args, err := dialect.From("loans").
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.C("user_id").Eq(userID)).
		Prepared(true).ToSQL()
	if err != nil {
		return 0, err
	}
	var count int
	if err := s.store.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, err
	}
	return count, nil
}

// GetAll returns every loan row ordered by start time.
func (s *LoanService) GetAll(ctx context.Context) ([]Loan, error) {
	return s.selectLoans(ctx)
}

// GetAllActive returns the loans whose end date is still absent.
func (s *LoanService) GetAllActive(ctx context.Context) ([]Loan, error) {
	return s.selectLoans(ctx, goqu.C("loan_end").IsNull())
}

// GetByUserID returns every loan row for a user.
func (s *LoanService) GetByUserID(ctx context.Context, userID string) ([]Loan, error) {
	return s.selectLoans(ctx, goqu.C("user_id").Eq(userID))
}

// GetByBookISBN returns every loan row for a book.
func (s *LoanService) GetByBookISBN(ctx context.Context, bookISBN string) ([]Loan, error) {
	return s.selectLoans(ctx, goqu.C("book_isbn").Eq(bookISBN))
}

// GetByUserIDAndBookISBN returns every loan row for the pair across
// time, oldest first.
func (s *LoanService) GetByUserIDAndBookISBN(ctx context.Context, userID, bookISBN string) ([]Loan, error) {
	return s.selectLoans(ctx, goqu.C("user_id").Eq(userID), goqu.C("book_isbn").Eq(bookISBN))
}

func (s *LoanService) selectLoans(ctx context.Context, where ...goqu.Expression) ([]Loan, error) {
	query, args, err := dialect.From("loans").Where(where...).Order(goqu.C("loan_start").Asc()).Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	var loans []Loan
	if err := s.store.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, err
	}
	return loans, nil
}
