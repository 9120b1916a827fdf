package db

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	maxAttempts = 3
	retryDelay  = 100 * time.Millisecond
)

// WithRetry runs fn inside a transaction, retrying the whole block a bounded
// number of times when the failure looks transient (lock contention, dropped
// connection). Domain errors returned by fn propagate immediately; they are
// never retried.
func WithRetry(gdb *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay)
		}
		err = gdb.Transaction(fn)
		if err == nil || !isTransient(err) {
			return err
		}
	}
	return err
}

// isTransient detects retryable transaction/connection errors across the
// supported drivers.
func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "try again") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "invalid connection") ||
		strings.Contains(msg, "broken pipe")
}
