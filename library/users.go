package library

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
)

// UserService owns every mutation of the members record set.
type UserService struct {
	store *Store
}

// NewUserService creates a UserService on top of the store.
func NewUserService(store *Store) *UserService {
	return &UserService{store: store}
}

// Register validates and persists a new member. The id and email must
// be well-formed and not yet taken.
func (s *UserService) Register(ctx context.Context, user User) error {
	if !IsIDValid(user.ID) {
		return ErrInvalidID
	}
	if !IsEmailValid(user.Email) {
		return ErrInvalidEmail
	}

	tx, err := s.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id=?)`, user.ID); err != nil {
		return err
	}
	if exists {
		return ErrDuplicateUserID
	}
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email=?)`, user.Email); err != nil {
		return err
	}
	if exists {
		return ErrDuplicateUserEmail
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO users(id,email,name,surname) VALUES(?,?,?,?)`,
		user.ID, user.Email, user.Name, user.Surname); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByID fetches a single member.
func (s *UserService) GetByID(ctx context.Context, id string) (*User, error) {
	query, args, err := dialect.From("users").Where(goqu.C("id").Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	var u User
	if err := s.store.db.GetContext(ctx, &u, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownUser
		}
		return nil, err
	}
	return &u, nil
}

// GetAllByIDContaining returns members whose id contains fragment.
// An empty fragment matches everyone.
func (s *UserService) GetAllByIDContaining(ctx context.Context, fragment string) ([]User, error) {
	return s.selectUsers(ctx, goqu.C("id").Like("%"+fragment+"%"))
}

// GetAllByEmailContaining returns members whose email contains fragment.
func (s *UserService) GetAllByEmailContaining(ctx context.Context, fragment string) ([]User, error) {
	return s.selectUsers(ctx, goqu.C("email").Like("%"+fragment+"%"))
}

// GetAllByFullNameContaining returns members whose name and surname
// contain the respective fragments.
func (s *UserService) GetAllByFullNameContaining(ctx context.Context, namePart, surnamePart string) ([]User, error) {
	return s.selectUsers(ctx,
		goqu.C("name").Like("%"+namePart+"%"),
		goqu.C("surname").Like("%"+surnamePart+"%"),
	)
}

func (s *UserService) selectUsers(ctx context.Context, where ...goqu.Expression) ([]User, error) {
	query, args, err := dialect.From("users").Where(where...).Order(goqu.C("id").Asc()).Prepared(true).ToSQL()
	if err != nil {
		return nil, err
	}
	var users []User
	if err := s.store.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateByID overwrites the mutable fields of the member with the same
// id. The id itself is never the field being changed.
func (s *UserService) UpdateByID(ctx context.Context, user User) error {
	res, err := s.store.db.ExecContext(ctx, `UPDATE users SET email=?, name=?, surname=? WHERE id=?`,
		user.Email, user.Name, user.Surname, user.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUnknownUser
	}
	return nil
}

// RemoveByID deletes the member and reports whether a row matched.
// A missing id is not an error.
func (s *UserService) RemoveByID(ctx context.Context, id string) (bool, error) {
	res, err := s.store.db.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ExistsByID reports whether a member with this id is registered.
func (s *UserService) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.store.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE id=?)`, id)
	return exists, err
}

// ExistsByEmail reports whether a member with this email is registered.
func (s *UserService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.store.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email=?)`, email)
	return exists, err
}
