package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/habit-coach/internal/model"
)

// HabitRepo provides read access to the habit catalog and the seeding
// operations used by the habitctl tool.  Catalog rows are reference data;
// the web application never writes them.
type HabitRepo struct{ DB *sql.DB }

// NewHabitRepo returns a new HabitRepo bound to the given database.
func NewHabitRepo(db *sql.DB) *HabitRepo { return &HabitRepo{DB: db} }

// List returns the whole catalog ordered by id, each habit carrying its
// factor ratings.  Ratings are loaded with a second query and attached in
// memory rather than joined, so habits without ratings are still listed.
func (r *HabitRepo) List(ctx context.Context) ([]model.Habit, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, title, description, hour FROM habits ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	habits := make([]model.Habit, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var h model.Habit
		if err := rows.Scan(&h.ID, &h.Title, &h.Description, &h.Hour); err != nil {
			return nil, err
		}
		index[h.ID] = len(habits)
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rrows, err := r.DB.QueryContext(ctx, `SELECT habit_id, factor_id, weight FROM factor_habit_ratings ORDER BY habit_id, factor_id`)
	if err != nil {
		return nil, err
	}
	defer rrows.Close()
	for rrows.Next() {
		var fr model.FactorHabitRating
		if err := rrows.Scan(&fr.HabitID, &fr.FactorID, &fr.Weight); err != nil {
			return nil, err
		}
		if i, ok := index[fr.HabitID]; ok {
			habits[i].Ratings = append(habits[i].Ratings, fr)
		}
	}
	if err := rrows.Err(); err != nil {
		return nil, err
	}
	return habits, nil
}

// GetByID returns a single catalog habit without its ratings.
func (r *HabitRepo) GetByID(ctx context.Context, id uint64) (model.Habit, error) {
	var h model.Habit
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, title, description, hour FROM habits WHERE id = ?`, id,
	).Scan(&h.ID, &h.Title, &h.Description, &h.Hour)
	if errors.Is(err, sql.ErrNoRows) {
		return h, ErrNotFound
	}
	return h, err
}

// Seed upserts factors and habits by id and replaces each seeded habit's
// ratings.  Everything happens in one transaction.
func (r *HabitRepo) Seed(ctx context.Context, factors []model.Factor, habits []model.Habit) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		for _, f := range factors {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO factors (id, name, description) VALUES (?, ?, ?)
                 ON DUPLICATE KEY UPDATE name = VALUES(name), description = VALUES(description)`,
				f.ID, f.Name, f.Description); err != nil {
				return err
			}
		}
		for _, h := range habits {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO habits (id, title, description, hour) VALUES (?, ?, ?, ?)
                 ON DUPLICATE KEY UPDATE title = VALUES(title), description = VALUES(description), hour = VALUES(hour)`,
				h.ID, h.Title, h.Description, h.Hour); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM factor_habit_ratings WHERE habit_id = ?`, h.ID); err != nil {
				return err
			}
			for _, fr := range h.Ratings {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO factor_habit_ratings (habit_id, factor_id, weight) VALUES (?, ?, ?)`,
					h.ID, fr.FactorID, fr.Weight); err != nil {
					if isMissingReference(err) {
						return ErrNotFound
					}
					return err
				}
			}
		}
		return nil
	})
}
