package library

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors. Every rule violation surfaces as one of these typed
// conditions; infrastructure failures (driver, IO) propagate as-is and
// are never mapped onto them.
var (
	ErrDuplicateUserID    = errors.New("user id already registered")
	ErrDuplicateUserEmail = errors.New("email already registered")
	ErrUnknownUser        = errors.New("unknown user id")
	ErrInvalidID          = errors.New("invalid member id")
	ErrInvalidEmail       = errors.New("invalid institutional email")

	ErrDuplicateISBN      = errors.New("isbn already in catalog")
	ErrUnknownBook        = errors.New("unknown isbn")
	ErrInvalidBookCopies  = errors.New("remaining copies exceed total copies")
	ErrNegativeBookCopies = errors.New("copy counts must not be negative")
	ErrMissingBookCopies  = errors.New("book has copies out on loan")

	ErrLoanAlreadyRegistered = errors.New("active loan already registered for this user and book")
	ErrUnknownLoan           = errors.New("no active loan for this user and book")
	ErrNoCopiesAvailable     = errors.New("no copies available")

	ErrPasswordUnset       = errors.New("password has never been set")
	ErrAnswerUnset         = errors.New("security answer has never been set")
	ErrInvalidAnswerNumber = errors.New("answer number must be 1, 2 or 3")
	ErrTooManyAttempts     = errors.New("too many failed attempts")

	ErrUserHasActiveLoans = errors.New("user still holds active loans")
)

// DuplicateISBNsError reports a rejected batch: every isbn that
// collided with the catalog or with a sibling entry in the same batch.
type DuplicateISBNsError struct {
	ISBNs []string
}

func (e *DuplicateISBNsError) Error() string {
	return fmt.Sprintf("duplicate isbns in batch: %s", strings.Join(e.ISBNs, ", "))
}
