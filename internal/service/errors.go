package service

import "errors"

var (
	ErrInvalidHour     = errors.New("hour must be between 0 and 23")
	ErrSameHabit       = errors.New("a habit cannot replace itself")
	ErrInvalidScore    = errors.New("factor score out of range")
	ErrUnknownFactor   = errors.New("unknown factor")
	ErrInvalidTimezone = errors.New("unknown timezone")
	ErrInvalidName     = errors.New("name is required")
	ErrCodeNotFound    = errors.New("no verification code pending")
	ErrInvalidCode     = errors.New("verification code does not match")
	ErrTooManyAttempts = errors.New("too many verification attempts")
)
