package store

import "strings"

// isUniqueViolation recognizes a unique-constraint error from either
// driver. Both modernc.org/sqlite and lib/pq return driver-specific error
// types; matching on message text avoids importing either driver's
// internal error type here.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint failed: unique")
}
