package library

import "time"

// User is a registered member of the library. The id is the
// institutional matricola and never changes after registration.
type User struct {
	ID      string `db:"id" json:"id"`
	Email   string `db:"email" json:"email"`
	Name    string `db:"name" json:"name"`
	Surname string `db:"surname" json:"surname"`
}

// Book is a catalog entry. RemainingCopies counts the copies currently
// on the shelf and always stays within [0, TotalCopies].
type Book struct {
	ISBN            string `db:"isbn" json:"isbn"`
	Title           string `db:"title" json:"title"`
	Author          string `db:"author" json:"author"`
	Genre           string `db:"genre" json:"genre"`
	Description     string `db:"description" json:"description"`
	ReleaseYear     int    `db:"release_year" json:"release_year"`
	TotalCopies     int    `db:"total_copies" json:"total_copies"`
	RemainingCopies int    `db:"remaining_copies" json:"remaining_copies"`
}

// Loan records one borrow event. End is nil while the copy is still
// out; a user may borrow the same book again after returning it, so
// the same (UserID, BookISBN) pair can recur across rows.
type Loan struct {
	ID       string     `db:"id" json:"id"`
	UserID   string     `db:"user_id" json:"user_id"`
	BookISBN string     `db:"book_isbn" json:"book_isbn"`
	Start    time.Time  `db:"loan_start" json:"loan_start"`
	Deadline time.Time  `db:"loan_deadline" json:"loan_deadline"`
	End      *time.Time `db:"loan_end" json:"loan_end,omitempty"`
}

// Active reports whether the loan has not been completed yet.
func (l Loan) Active() bool { return l.End == nil }

// AuthCredentials is the singleton librarian credential row. Only
// salted hashes are stored; answer slots are nil until configured.
type AuthCredentials struct {
	PasswordHash string  `db:"password_hash"`
	Answer1Hash  *string `db:"answer1_hash"`
	Answer2Hash  *string `db:"answer2_hash"`
	Answer3Hash  *string `db:"answer3_hash"`
}
