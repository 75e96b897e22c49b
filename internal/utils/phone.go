package utils

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidMobile is returned when a number cannot be parsed or is not a
// valid number for its region.
var ErrInvalidMobile = errors.New("invalid mobile number")

// FormatMobile normalises a number entered by a user (or reported by the
// messaging provider) into E.164.  countryCode is the ISO 3166 region used
// for numbers written without an international prefix; it may be empty
// when the number already starts with '+'.
func FormatMobile(raw, countryCode string) (string, error) {
	raw = strings.TrimSpace(raw)
	region := strings.ToUpper(strings.TrimSpace(countryCode))
	if raw == "" {
		return "", ErrInvalidMobile
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", ErrInvalidMobile
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidMobile
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
