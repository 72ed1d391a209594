package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// AuthService manages the single librarian credential slot: one
// password hash plus up to three security-answer hashes used for
// offline recovery. Plaintext never persists.
type AuthService struct {
	store   *Store
	limiter *rate.Limiter
}

// NewAuthService creates an AuthService. Verification attempts are
// throttled with a token bucket so the recovery path cannot be brute
// forced by a runaway caller.
func NewAuthService(store *Store) *AuthService {
	return &AuthService{
		store:   store,
		limiter: rate.NewLimiter(rate.Every(time.Second), 10),
	}
}

// IsPresent reports whether a credential row exists.
func (s *AuthService) IsPresent(ctx context.Context) (bool, error) {
	var present bool
	err := s.store.db.GetContext(ctx, &present, `SELECT EXISTS(SELECT 1 FROM auth WHERE id=1)`)
	return present, err
}

// Setup unconditionally replaces the credential slot with freshly
// hashed values. Used for first-time initialization and for the
// "forgot everything" recovery path.
func (s *AuthService) Setup(ctx context.Context, password, answer1, answer2, answer3 string) error {
	passwordHash, err := hashSecret(password)
	if err != nil {
		return err
	}
	answerHashes := make([]string, 3)
	for i, answer := range []string{answer1, answer2, answer3} {
		if answerHashes[i], err = hashSecret(answer); err != nil {
			return err
		}
	}

	tx, err := s.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM auth WHERE id=1`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO auth(id,password_hash,answer1_hash,answer2_hash,answer3_hash) VALUES(1,?,?,?,?)`,
		passwordHash, answerHashes[0], answerHashes[1], answerHashes[2]); err != nil {
		return err
	}
	return tx.Commit()
}

// CheckPassword compares password against the stored hash and reports
// the match. A store without a credential row yields ErrPasswordUnset,
// signalling the account was never configured.
func (s *AuthService) CheckPassword(ctx context.Context, password string) (bool, error) {
	if !s.limiter.Allow() {
		return false, ErrTooManyAttempts
	}

	var passwordHash string
	if err := s.store.db.GetContext(ctx, &passwordHash, `SELECT password_hash FROM auth WHERE id=1`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrPasswordUnset
		}
		return false, err
	}
	return verifySecret(password, passwordHash)
}

// ChangePassword rehashes and overwrites just the password field. On a
// never-initialized store it performs the first-time insert instead,
// leaving the answer slots empty.
func (s *AuthService) ChangePassword(ctx context.Context, password string) error {
	passwordHash, err := hashSecret(password)
	if err != nil {
		return err
	}

	tx, err := s.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var present bool
	if err := tx.GetContext(ctx, &present, `SELECT EXISTS(SELECT 1 FROM auth WHERE id=1)`); err != nil {
		return err
	}
	if present {
		if _, err := tx.ExecContext(ctx, `UPDATE auth SET password_hash=? WHERE id=1`, passwordHash); err != nil {
			return err
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO auth(id,password_hash) VALUES(1,?)`, passwordHash); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CheckAnswer compares answer against stored answer slot number (1-3)
// and reports the match. An empty slot yields ErrAnswerUnset.
func (s *AuthService) CheckAnswer(ctx context.Context, answer string, number int) (bool, error) {
	if number < 1 || number > 3 {
		return false, ErrInvalidAnswerNumber
	}
	if !s.limiter.Allow() {
		return false, ErrTooManyAttempts
	}

	var answerHash *string
	err := s.store.db.GetContext(ctx, &answerHash,
		fmt.Sprintf(`SELECT answer%d_hash FROM auth WHERE id=1`, number))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrAnswerUnset
		}
		return false, err
	}
	if answerHash == nil {
		return false, ErrAnswerUnset
	}
	return verifySecret(answer, *answerHash)
}

// ChangeAnswer rehashes and overwrites one answer slot. Editing an
// answer on a never-initialized account is refused.
func (s *AuthService) ChangeAnswer(ctx context.Context, answer string, number int) error {
	if number < 1 || number > 3 {
		return ErrInvalidAnswerNumber
	}

	present, err := s.IsPresent(ctx)
	if err != nil {
		return err
	}
	if !present {
		return ErrAnswerUnset
	}

	answerHash, err := hashSecret(answer)
	if err != nil {
		return err
	}
	_, err = s.store.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE auth SET answer%d_hash=? WHERE id=1`, number), answerHash)
	return err
}
