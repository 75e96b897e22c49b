package repository

import (
	"context"
	"database/sql"
	"time"
)

// SuccessRepo stores one success row per user habit and local calendar
// date.  The unique key on (user_habit_id, local_date) makes concurrent
// reports for the same day collapse into a single row.
type SuccessRepo struct{ DB *sql.DB }

func NewSuccessRepo(db *sql.DB) *SuccessRepo { return &SuccessRepo{DB: db} }

// Create records a success for localDate (YYYY-MM-DD).  When a row already
// exists for that date nothing is written and ErrDuplicateSuccess is
// returned.
func (r *SuccessRepo) Create(ctx context.Context, userHabitID uint64, localDate string, loggedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO successes (user_habit_id, local_date, logged_at) VALUES (?,?,?)",
		userHabitID, localDate, loggedAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateSuccess
		}
		if isMissingReference(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// ListDates returns every success date of the habit in ascending order.
func (r *SuccessRepo) ListDates(ctx context.Context, userHabitID uint64) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT DATE_FORMAT(local_date, '%Y-%m-%d') FROM successes WHERE user_habit_id=? ORDER BY local_date",
		userHabitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Exists reports whether a success was already logged on localDate.
func (r *SuccessRepo) Exists(ctx context.Context, userHabitID uint64, localDate string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM successes WHERE user_habit_id=? AND local_date=?",
		userHabitID, localDate).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
