package scheduler

import (
	"fmt"
	"time"
)

// minInterval floors misconfigured intervals so a zero or negative value
// from config cannot spin the scheduler loop.
const minInterval = time.Minute

// IntervalSchedule fires a job at a fixed cadence, independent of wall-clock
// alignment. Used for the hourly nudge evaluation and the weak-topic push.
type IntervalSchedule struct {
	Interval time.Duration
}

// NewIntervalSchedule creates a schedule with the given cadence, floored at
// one minute.
func NewIntervalSchedule(interval time.Duration) *IntervalSchedule {
	if interval < minInterval {
		interval = minInterval
	}
	return &IntervalSchedule{
		Interval: interval,
	}
}

// Next returns the run time following t.
func (s *IntervalSchedule) Next(t time.Time) time.Time {
	return t.Add(s.Interval)
}

// String returns the schedule in "@every" form for logs.
func (s *IntervalSchedule) String() string {
	return fmt.Sprintf("@every %s", s.Interval.String())
}
