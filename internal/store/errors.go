package store

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrDuplicateEmail is returned when an insert or update would give two
	// users the same email address.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrTokenTaken is returned when a generated token collides with one
	// already pending for another user.
	ErrTokenTaken = errors.New("token already in use")
)

// uniqueViolation reports whether err is a UNIQUE constraint failure on the
// given table.column.
func uniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}
