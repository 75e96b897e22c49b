// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors themselves.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a user, habit or profile does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller references a resource owned by
// someone else, such as another user's accountability partner.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because of
// the current state of a record (e.g. resuming a habit that is not
// paused).
var ErrConflict = errors.New("conflict")

// ErrDuplicateSuccess is returned when a success has already been logged
// for the same user habit and local date.
var ErrDuplicateSuccess = errors.New("success already recorded for this date")

// ErrIncompleteProfile is returned when a set of factor scores does not
// cover the whole factor catalog.
var ErrIncompleteProfile = errors.New("factor scores do not cover every factor")

// ErrConcurrencyConflict is returned when a concurrent request for the
// same user won the race on the current-habit swap.  Callers may retry the
// whole unit of work once.
var ErrConcurrencyConflict = errors.New("concurrent update conflict")

// ErrMobileExists is returned when registering a mobile number that is
// already enrolled.
var ErrMobileExists = errors.New("mobile already registered")

// MySQL server error numbers the repositories react to.
const (
	errDupEntry     = 1062
	errLockWait     = 1205
	errDeadlock     = 1213
	errNoReferenced = 1452
)

func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool { return mysqlErrNumber(err) == errDupEntry }

func isLockConflict(err error) bool {
	n := mysqlErrNumber(err)
	return n == errLockWait || n == errDeadlock
}

func isMissingReference(err error) bool { return mysqlErrNumber(err) == errNoReferenced }
