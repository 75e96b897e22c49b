package model

import "time"

// Success records that a user succeeded at their habit on a local
// calendar day.  LocalDate is the date in the user's timezone formatted as
// YYYY-MM-DD; LoggedAt is the UTC instant the success was reported.
//
// Fields:
//  ID          – primary key identifier.
//  UserHabitID – the user habit the success belongs to.
//  LocalDate   – local calendar date, unique per user habit.
//  LoggedAt    – UTC timestamp of the report.
type Success struct {
	ID          uint64    // successes.id
	UserHabitID uint64    // successes.user_habit_id
	LocalDate   string    // successes.local_date
	LoggedAt    time.Time // successes.logged_at
}

// DateLayout is the layout of Success.LocalDate.
const DateLayout = "2006-01-02"
