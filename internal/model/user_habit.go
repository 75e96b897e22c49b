package model

import (
	"errors"
	"fmt"
	"time"
)

// HabitState is the lifecycle state of a user habit.  A user has at most
// one habit in ACTIVE or PAUSED state; that habit is the "current" one.
type HabitState string

const (
	StateInactive HabitState = "INACTIVE"
	StateActive   HabitState = "ACTIVE"
	StatePaused   HabitState = "PAUSED"
)

// IsCurrent reports whether a habit in this state counts as the user's
// current habit.
func (s HabitState) IsCurrent() bool { return s == StateActive || s == StatePaused }

// HabitEvent is a lifecycle transition trigger.
type HabitEvent string

const (
	EventActivate HabitEvent = "activate"
	EventPause    HabitEvent = "pause"
	EventResume   HabitEvent = "resume"
	EventReplace  HabitEvent = "replace"
)

// ErrInvalidTransition is returned when an event does not apply to the
// current state.
var ErrInvalidTransition = errors.New("invalid habit state transition")

// Transition returns the state reached by applying ev in state from.
//
//  activate: INACTIVE       -> ACTIVE
//  pause:    ACTIVE         -> PAUSED
//  resume:   PAUSED         -> ACTIVE
//  replace:  ACTIVE, PAUSED -> INACTIVE
func Transition(from HabitState, ev HabitEvent) (HabitState, error) {
	switch ev {
	case EventActivate:
		if from == StateInactive {
			return StateActive, nil
		}
	case EventPause:
		if from == StateActive {
			return StatePaused, nil
		}
	case EventResume:
		if from == StatePaused {
			return StateActive, nil
		}
	case EventReplace:
		if from.IsCurrent() {
			return StateInactive, nil
		}
	}
	return from, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ev, from)
}

// UserHabit is a habit a user has taken on.  StartTime is the first
// reminder instant in UTC, derived from the hour the user chose in their
// own timezone.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – owner of the habit.
//  HabitID      – catalog habit being built.
//  BreakHabitID – optional catalog habit this one replaces.
//  PartnerID    – optional accountability partner.
//  StartTime    – UTC start/reminder time.
//  State        – lifecycle state.
//  CreatedAt    – creation timestamp.
//  Title        – catalog title (joined, read only).
type UserHabit struct {
	ID           uint64     // user_habits.id
	UserID       uint64     // user_habits.user_id
	HabitID      uint64     // user_habits.habit_id
	BreakHabitID *uint64    // user_habits.break_habit_id (nullable)
	PartnerID    *uint64    // user_habits.partner_id (nullable)
	StartTime    time.Time  // user_habits.start_time
	State        HabitState // user_habits.state
	CreatedAt    time.Time  // user_habits.created_at
	Title        string     // habits.title
}

// NewUserHabit carries the input of a habit activation.
type NewUserHabit struct {
	UserID       uint64
	HabitID      uint64
	BreakHabitID *uint64
	StartTime    time.Time
	PartnerID    *uint64
}

// StartTimeFor converts a local hour of day chosen by the user into the UTC
// instant of that hour on the user's current local date.
func StartTimeFor(hour int, loc *time.Location, now time.Time) (time.Time, error) {
	if hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("hour out of range: %d", hour)
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	return start.UTC(), nil
}
