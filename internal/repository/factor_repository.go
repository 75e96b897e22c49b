package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/iliyamo/habit-coach/internal/model"
)

// FactorRepo reads the factor catalog and stores factor profiles.  A
// profile and its scores are written once, inside a single transaction,
// and never updated afterwards; a re-assessment creates a new profile.
type FactorRepo struct{ DB *sql.DB }

func NewFactorRepo(db *sql.DB) *FactorRepo { return &FactorRepo{DB: db} }

// List returns every factor ordered by id.
func (r *FactorRepo) List(ctx context.Context) ([]model.Factor, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, name, description FROM factors ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Factor, 0)
	for rows.Next() {
		var f model.Factor
		if err := rows.Scan(&f.ID, &f.Name, &f.Description); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CreateProfile stores a new profile snapshot for the user and returns its
// ID.
func (r *FactorRepo) CreateProfile(ctx context.Context, userID uint64, scores map[uint64]int) (uint64, error) {
	var profileID uint64
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		id, err := insertProfileTx(ctx, tx, userID, scores)
		profileID = id
		return err
	})
	if err != nil {
		return 0, err
	}
	return profileID, nil
}

// LatestScores returns the scores of the user's most recent profile along
// with the profile itself.  ErrNotFound is returned when the user has never
// been assessed.
func (r *FactorRepo) LatestScores(ctx context.Context, userID uint64) (model.UserProfile, []model.FactorScore, error) {
	var p model.UserProfile
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, created_at FROM user_profiles WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT 1",
		userID).Scan(&p.ID, &p.UserID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, nil, ErrNotFound
	}
	if err != nil {
		return p, nil, err
	}
	const q = `SELECT fs.factor_id, f.name, fs.score
               FROM factor_scores fs
               JOIN factors f ON f.id = fs.factor_id
               WHERE fs.profile_id = ?
               ORDER BY fs.factor_id`
	rows, err := r.DB.QueryContext(ctx, q, p.ID)
	if err != nil {
		return p, nil, err
	}
	defer rows.Close()
	scores := make([]model.FactorScore, 0)
	for rows.Next() {
		s := model.FactorScore{ProfileID: p.ID}
		if err := rows.Scan(&s.FactorID, &s.Name, &s.Score); err != nil {
			return p, nil, err
		}
		scores = append(scores, s)
	}
	return p, scores, rows.Err()
}

// insertProfileTx inserts a user_profiles row and its factor_scores in a
// single multi-row statement.  Factor IDs are written in ascending order
// so the statement text is deterministic.
func insertProfileTx(ctx context.Context, tx *sql.Tx, userID uint64, scores map[uint64]int) (uint64, error) {
	res, err := tx.ExecContext(ctx, "INSERT INTO user_profiles (user_id) VALUES (?)", userID)
	if err != nil {
		if isMissingReference(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	profileID := uint64(id)
	if len(scores) == 0 {
		return profileID, nil
	}
	factorIDs := make([]uint64, 0, len(scores))
	for fid := range scores {
		factorIDs = append(factorIDs, fid)
	}
	sort.Slice(factorIDs, func(i, j int) bool { return factorIDs[i] < factorIDs[j] })

	query := "INSERT INTO factor_scores (profile_id, factor_id, score) VALUES "
	args := make([]interface{}, 0, len(scores)*3)
	for i, fid := range factorIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, profileID, fid, scores[fid])
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isMissingReference(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return profileID, nil
}
