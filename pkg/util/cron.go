package util

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Reminder schedules use the five-field form asynq's scheduler accepts, so
// anything parsed here registers there unchanged.
var reminderParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

func parseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := reminderParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", expr, err)
	}
	return schedule, nil
}

// ValidateCronExpr rejects a JOBS_REMINDER_CRON value before the worker
// registers it.
func ValidateCronExpr(expr string) error {
	_, err := parseSchedule(expr)
	return err
}

// NextCronTime reports when the reminder job next fires after from. The
// scheduler runs in UTC, so the result is UTC too.
func NextCronTime(expr string, from time.Time) (time.Time, error) {
	schedule, err := parseSchedule(expr)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(from.UTC()), nil
}
