// Package streak derives streak statistics from the calendar days on which
// a success was logged.  Days are civil dates; callers convert instants to
// the user's local date before handing them over.
package streak

import (
	"sort"
	"time"

	"github.com/iliyamo/habit-coach/internal/model"
)

// Stats summarises a habit's success history.
type Stats struct {
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	Total         int    `json:"total"`
	LastSuccess   string `json:"last_success,omitempty"`
}

// Day is a civil date stored as midnight UTC so that subtracting two days
// always yields a whole number of 24h periods.
type Day time.Time

// DayOf returns the civil date of t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	l := t.In(loc)
	return Day(time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC))
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return Day{}, err
	}
	return Day(t), nil
}

func (d Day) String() string { return time.Time(d).Format(model.DateLayout) }

// daysBetween returns b - a in days.
func daysBetween(a, b Day) int {
	return int(time.Time(b).Sub(time.Time(a)).Hours() / 24)
}

// Compute returns the statistics of days as of today.  Duplicate days are
// counted once for streak purposes; Total is the number of records given.
// The current streak counts consecutive days backward from the latest
// recorded day and is zero when the latest day is two or more days before
// today.
func Compute(days []Day, today Day) Stats {
	st := Stats{Total: len(days)}
	if len(days) == 0 {
		return st
	}
	sorted := uniqueSorted(days)
	last := sorted[len(sorted)-1]
	st.LastSuccess = last.String()

	run := 1
	st.LongestStreak = 1
	for i := 1; i < len(sorted); i++ {
		if daysBetween(sorted[i-1], sorted[i]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > st.LongestStreak {
			st.LongestStreak = run
		}
	}

	if daysBetween(last, today) >= 2 {
		return st
	}
	st.CurrentStreak = 1
	for i := len(sorted) - 1; i > 0; i-- {
		if daysBetween(sorted[i-1], sorted[i]) != 1 {
			break
		}
		st.CurrentStreak++
	}
	return st
}

// Week reports, for the seven days ending at today, whether a success was
// logged on each day.  Index 0 is six days ago.
func Week(days []Day, today Day) [7]bool {
	var out [7]bool
	for _, d := range days {
		back := daysBetween(d, today)
		if back >= 0 && back < 7 {
			out[6-back] = true
		}
	}
	return out
}

func uniqueSorted(days []Day) []Day {
	out := make([]Day, len(days))
	copy(out, days)
	sort.Slice(out, func(i, j int) bool { return time.Time(out[i]).Before(time.Time(out[j])) })
	w := 1
	for i := 1; i < len(out); i++ {
		if !time.Time(out[i]).Equal(time.Time(out[w-1])) {
			out[w] = out[i]
			w++
		}
	}
	return out[:w]
}
