package models

import (
	"fmt"
	"strconv"
	"strings"
)

// UnknownDelay is returned by DelayMinutes when Darwin reports a delay or cancellation
// without an estimated clock time.
const UnknownDelay = -1

const (
	minutesPerDay  = 24 * 60
	rolloverWindow = 12 * 60
)

// DelayMinutes returns how many minutes expected is behind scheduled, both "HH:MM". An expected
// time more than twelve hours before the scheduled one is taken to be after midnight. Empty or
// malformed input yields 0.
func DelayMinutes(scheduled, expected string) int {
	if scheduled == "" || expected == "" || expected == ExpectedOnTime {
		return 0
	}
	if expected == ExpectedDelayed || expected == ExpectedCancelled {
		return UnknownDelay
	}

	sch, err := minutesSinceMidnight(scheduled)
	if err != nil {
		return 0
	}
	exp, err := minutesSinceMidnight(expected)
	if err != nil {
		return 0
	}

	diff := exp - sch
	if diff < -rolloverWindow {
		diff += minutesPerDay
	}
	return max(0, diff)
}

func minutesSinceMidnight(clock string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok {
		return 0, fmt.Errorf("time %q is not HH:MM", clock)
	}
	hours, err := strconv.Atoi(h)
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(m)
	if err != nil {
		return 0, err
	}
	return hours*60 + minutes, nil
}

// Summary is the one line description shown for a departure.
func (ts TrainService) Summary() string {
	prefix := fmt.Sprintf("%s to %s", ts.ScheduledTime, ts.Destination)
	delay := ts.DelayMinutes()

	switch {
	case ts.IsCancelled:
		return prefix + " - CANCELLED"
	case ts.ExpectedTime == ExpectedOnTime:
		return prefix + " - On time"
	case delay > 0:
		return fmt.Sprintf("%s - Exp %s (%d min late)", prefix, ts.ExpectedTime, delay)
	}
	return fmt.Sprintf("%s - Exp %s", prefix, ts.ExpectedTime)
}

// Counts summarises a board.
type Counts struct {
	Total     int `json:"departures"`
	Delayed   int `json:"delayed_count"`
	Cancelled int `json:"cancelled_count"`
}

func BoardCounts(services []TrainService) Counts {
	c := Counts{Total: len(services)}
	for _, s := range services {
		switch s.Status() {
		case StatusDelayed:
			c.Delayed++
		case StatusCancelled:
			c.Cancelled++
		}
	}
	return c
}
