package model

// Habit is a catalog entry a user can choose to pursue.  Hour is the
// recommended local hour of day (0-23) used as the default reminder time.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – short title.
//  Description – what the habit involves.
//  Hour        – recommended local hour of day.
//  Ratings     – factor relevance weights, loaded from factor_habit_ratings.
type Habit struct {
	ID          uint64               `json:"id"`          // habits.id
	Title       string               `json:"title"`       // habits.title
	Description string               `json:"description"` // habits.description
	Hour        int                  `json:"hour"`        // habits.hour
	Ratings     []FactorHabitRating  `json:"ratings,omitempty"`
}

// FactorHabitRating expresses how strongly a habit addresses a factor.
type FactorHabitRating struct {
	HabitID  uint64 `json:"-"`         // factor_habit_ratings.habit_id
	FactorID uint64 `json:"factor_id"` // factor_habit_ratings.factor_id
	Weight   int    `json:"weight"`    // factor_habit_ratings.weight
}
