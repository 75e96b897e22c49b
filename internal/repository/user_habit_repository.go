package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/habit-coach/internal/model"
)

// UserHabitRepo persists the habits users take on and their lifecycle
// state.  The schema backs the "one current habit per user" rule with a
// unique index on a generated column that is only set while a habit is
// ACTIVE or PAUSED.
type UserHabitRepo struct{ DB *sql.DB }

func NewUserHabitRepo(db *sql.DB) *UserHabitRepo { return &UserHabitRepo{DB: db} }

// NudgeTarget is an active habit due for a reminder together with the
// contact details of its owner.
type NudgeTarget struct {
	UserHabitID uint64
	UserID      uint64
	Name        string
	Mobile      string
	TZ          string
	Title       string
}

const userHabitColumns = `uh.id, uh.user_id, uh.habit_id, uh.break_habit_id, uh.partner_id,
                          uh.start_time, uh.state, uh.created_at, h.title`

// Activate makes a new habit the user's current one.  Within a single
// transaction it locks the user row, replaces any ACTIVE or PAUSED habit
// and inserts the new ACTIVE row, so no observer ever sees zero or two
// current habits.  Lock timeouts, deadlocks and unique-index violations
// on the current slot are reported as ErrConcurrencyConflict.
func (r *UserHabitRepo) Activate(ctx context.Context, nh model.NewUserHabit) (uint64, error) {
	var newID uint64
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var uid uint64
		err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = ? FOR UPDATE`, nh.UserID).Scan(&uid)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE user_habits SET state = ? WHERE user_id = ? AND state IN (?, ?)`,
			model.StateInactive, nh.UserID, model.StateActive, model.StatePaused); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO user_habits (user_id, habit_id, break_habit_id, partner_id, start_time, state)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			nh.UserID, nh.HabitID, nullableID(nh.BreakHabitID), nullableID(nh.PartnerID), nh.StartTime.UTC(), model.StateActive)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		newID = uint64(id)
		return nil
	})
	switch {
	case err == nil:
		return newID, nil
	case isDuplicate(err), isLockConflict(err):
		return 0, ErrConcurrencyConflict
	case isMissingReference(err):
		return 0, ErrNotFound
	}
	return 0, err
}

// Current returns the user's ACTIVE or PAUSED habit.
func (r *UserHabitRepo) Current(ctx context.Context, userID uint64) (model.UserHabit, error) {
	q := `SELECT ` + userHabitColumns + `
          FROM user_habits uh
          JOIN habits h ON h.id = uh.habit_id
          WHERE uh.user_id = ? AND uh.state IN (?, ?)
          LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, q, userID, model.StateActive, model.StatePaused))
}

// GetByID returns a user habit by id regardless of its state.
func (r *UserHabitRepo) GetByID(ctx context.Context, id uint64) (model.UserHabit, error) {
	q := `SELECT ` + userHabitColumns + `
          FROM user_habits uh
          JOIN habits h ON h.id = uh.habit_id
          WHERE uh.id = ?`
	return r.scanOne(r.DB.QueryRowContext(ctx, q, id))
}

// UpdateState moves a habit from one state to another.  The update is
// conditional on the stored state so a concurrent transition cannot be
// overwritten; ErrConflict is returned when the habit was not in from.
func (r *UserHabitRepo) UpdateState(ctx context.Context, id uint64, from, to model.HabitState) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE user_habits SET state = ? WHERE id = ? AND state = ?`, to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ListDueForNudge returns the ACTIVE habits whose UTC start hour matches
// hour.  Paused habits are skipped.
func (r *UserHabitRepo) ListDueForNudge(ctx context.Context, hour int) ([]NudgeTarget, error) {
	const q = `SELECT uh.id, u.id, u.name, u.mobile, u.tz, h.title
               FROM user_habits uh
               JOIN users u ON u.id = uh.user_id
               JOIN habits h ON h.id = uh.habit_id
               WHERE uh.state = ? AND HOUR(uh.start_time) = ?
               ORDER BY uh.id`
	rows, err := r.DB.QueryContext(ctx, q, model.StateActive, hour)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]NudgeTarget, 0)
	for rows.Next() {
		var t NudgeTarget
		if err := rows.Scan(&t.UserHabitID, &t.UserID, &t.Name, &t.Mobile, &t.TZ, &t.Title); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *UserHabitRepo) scanOne(row *sql.Row) (model.UserHabit, error) {
	var (
		uh        model.UserHabit
		breakID   sql.NullInt64
		partnerID sql.NullInt64
		state     string
		start     time.Time
	)
	err := row.Scan(&uh.ID, &uh.UserID, &uh.HabitID, &breakID, &partnerID, &start, &state, &uh.CreatedAt, &uh.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return uh, ErrNotFound
	}
	if err != nil {
		return uh, err
	}
	uh.StartTime = start.UTC()
	uh.State = model.HabitState(state)
	if breakID.Valid {
		v := uint64(breakID.Int64)
		uh.BreakHabitID = &v
	}
	if partnerID.Valid {
		v := uint64(partnerID.Int64)
		uh.PartnerID = &v
	}
	return uh, nil
}

func nullableID(id *uint64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
