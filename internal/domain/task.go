package domain

import "time"

// EnsureDueDateNotInPast rejects due dates earlier than the start of the
// current UTC day. Any time today is accepted.
func EnsureDueDateNotInPast(due, now time.Time) error {
	if due.Before(StartOfDay(now)) {
		return Validation("Due date cannot be in the past")
	}
	return nil
}

// StartOfDay returns 00:00 UTC of t's UTC calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
