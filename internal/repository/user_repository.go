package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/habit-coach/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// CreateWithProfile inserts the user together with the first factor
// profile in one transaction and returns the new user ID.  Either both are
// stored or neither is.
func (r *UserRepo) CreateWithProfile(ctx context.Context, name, mobile, tz string, scores map[uint64]int) (uint64, error) {
	var userID uint64
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO users (name, mobile, tz) VALUES (?,?,?)",
			strings.TrimSpace(name), mobile, tz)
		if err != nil {
			if isDuplicate(err) {
				return ErrMobileExists
			}
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		userID = uint64(id)
		_, err = insertProfileTx(ctx, tx, userID, scores)
		return err
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// GetByMobile fetches a user by E.164 mobile number.
func (r *UserRepo) GetByMobile(ctx context.Context, mobile string) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,mobile,tz,created_at FROM users WHERE mobile=? LIMIT 1",
		mobile).Scan(&u.ID, &u.Name, &u.Mobile, &u.TZ, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,mobile,tz,created_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Name, &u.Mobile, &u.TZ, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}
