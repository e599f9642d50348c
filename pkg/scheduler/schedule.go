// Package scheduler turns a cron expression into the start date, time of day
// and repeat interval a transfer job schedule is described by.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DailyInterval is the repeat interval the transfer service uses when none is given
const DailyInterval = 24 * time.Hour

// MinInterval is the shortest repeat interval the transfer service accepts
const MinInterval = time.Hour

// number of consecutive gaps compared when checking that a schedule is regular
const intervalSamples = 8

// Schedule is a fixed-interval schedule anchored at its first activation
type Schedule struct {
	Expr           string        `json:"expr"`
	FirstRun       time.Time     `json:"first_run"`
	RepeatInterval time.Duration `json:"repeat_interval"`
}

// StartDate returns the year, month and day of the first activation in UTC
func (s Schedule) StartDate() (year int, month time.Month, day int) {
	return s.FirstRun.UTC().Date()
}

// TimeOfDay returns the hour, minute and second of the first activation in UTC
func (s Schedule) TimeOfDay() (hour, min, sec int) {
	return s.FirstRun.UTC().Clock()
}

// IsDaily reports whether the schedule repeats every 24 hours
func (s Schedule) IsDaily() bool {
	return s.RepeatInterval == DailyInterval
}

// Compute parses expr and anchors it at the start of the day before now (UTC).
// Starting yesterday makes the service pick up the first run today instead of
// waiting a full interval.
func Compute(expr string, now time.Time) (Schedule, error) {
	spec, err := cron.ParseStandard(expr)
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid cron expression: %w", err)
	}

	yesterday := now.UTC().Add(-24 * time.Hour)
	dayStart := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day(), 0, 0, 0, 0, time.UTC)

	// Next is strictly after its argument
	first := spec.Next(dayStart.Add(-time.Second))
	if first.IsZero() {
		return Schedule{}, fmt.Errorf("cron expression %q never activates", expr)
	}

	interval, err := regularInterval(spec, first)
	if err != nil {
		return Schedule{}, fmt.Errorf("cron expression %q: %w", expr, err)
	}

	return Schedule{
		Expr:           expr,
		FirstRun:       first.UTC(),
		RepeatInterval: interval,
	}, nil
}

func regularInterval(spec cron.Schedule, first time.Time) (time.Duration, error) {
	prev := first
	var interval time.Duration
	for i := 0; i < intervalSamples; i++ {
		next := spec.Next(prev)
		if next.IsZero() {
			return 0, fmt.Errorf("schedule stops activating")
		}
		gap := next.Sub(prev)
		if interval == 0 {
			interval = gap
		} else if gap != interval {
			return 0, fmt.Errorf("activations are not evenly spaced (%s vs %s)", interval, gap)
		}
		prev = next
	}

	if interval < MinInterval {
		return 0, fmt.Errorf("repeat interval %s is shorter than %s", interval, MinInterval)
	}
	return interval, nil
}
