package model

import "time"

// Factor is a behavioural dimension a user rates during onboarding, such
// as motivation or time availability.  Factors are reference data and are
// never modified by the application.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – short name shown to the user.
//  Description – longer explanation of the factor.
type Factor struct {
	ID          uint64 `json:"id"`          // factors.id
	Name        string `json:"name"`        // factors.name
	Description string `json:"description"` // factors.description
}

// UserProfile is one self-assessment snapshot.  A user accumulates
// profiles over time; the most recent one drives recommendations.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the profile.
//  CreatedAt – when the assessment was taken.
type UserProfile struct {
	ID        uint64    // user_profiles.id
	UserID    uint64    // user_profiles.user_id
	CreatedAt time.Time // user_profiles.created_at
}

// FactorScore is a single rating inside a profile.  The set of scores of a
// profile covers the whole factor catalog.
type FactorScore struct {
	ProfileID uint64 `json:"-"`          // factor_scores.profile_id
	FactorID  uint64 `json:"factor_id"`  // factor_scores.factor_id
	Name      string `json:"name"`       // factors.name (joined)
	Score     int    `json:"score"`      // factor_scores.score
}

// MinFactorScore and MaxFactorScore bound a factor rating.  Zero means the
// factor does not apply to the user at all.
const (
	MinFactorScore = 0
	MaxFactorScore = 5
)
