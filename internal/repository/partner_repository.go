package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/habit-coach/internal/model"
)

// PartnerRepo persists accountability partners.
type PartnerRepo struct{ DB *sql.DB }

func NewPartnerRepo(db *sql.DB) *PartnerRepo { return &PartnerRepo{DB: db} }

// Create inserts a partner for the user and returns its ID.
func (r *PartnerRepo) Create(ctx context.Context, userID uint64, name, mobile string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO partners (user_id, name, mobile) VALUES (?,?,?)",
		userID, name, mobile)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetForUser returns the partner when it belongs to userID.  ErrForbidden
// is returned for another user's partner and ErrNotFound when no partner
// has that id.
func (r *PartnerRepo) GetForUser(ctx context.Context, id, userID uint64) (model.Partner, error) {
	var p model.Partner
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,name,mobile FROM partners WHERE id=? LIMIT 1",
		id).Scan(&p.ID, &p.UserID, &p.Name, &p.Mobile)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if p.UserID != userID {
		return model.Partner{}, ErrForbidden
	}
	return p, nil
}
