package model

import "time"

// User represents a person enrolled through SMS verification as stored in
// the `users` table.  The mobile number is kept in E.164 form and is the
// identity used by the conversational agent webhook.  TZ is an IANA zone
// name; every local calendar computation for the user goes through it.
//
// Fields:
//  ID        – primary key identifier of the user.
//  Name      – display name collected during onboarding.
//  Mobile    – unique E.164 mobile number (e.g. +18028253270).
//  TZ        – IANA timezone (e.g. America/New_York).
//  CreatedAt – timestamp of creation.
type User struct {
	ID        uint64    // users.id
	Name      string    // users.name
	Mobile    string    // users.mobile
	TZ        string    // users.tz
	CreatedAt time.Time // users.created_at
}

// Location resolves the user's timezone.  Unknown or empty zone names fall
// back to UTC so that date arithmetic never fails at request time.
func (u User) Location() *time.Location {
	if u.TZ == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.TZ)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Partner is an accountability partner a user may attach to a habit.
//
// Fields:
//  ID     – primary key identifier.
//  UserID – user who registered the partner.
//  Name   – partner's name.
//  Mobile – partner's E.164 mobile number.
type Partner struct {
	ID     uint64 // partners.id
	UserID uint64 // partners.user_id
	Name   string // partners.name
	Mobile string // partners.mobile
}
