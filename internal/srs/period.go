package srs

import (
	"fmt"
	"time"
)

// Period is the look-back window of a statistics query.
type Period int

const (
	PeriodToday Period = iota
	PeriodWeek
	PeriodMonth
	PeriodAll
)

var periodNames = [...]string{PeriodToday: "today", PeriodWeek: "week", PeriodMonth: "month", PeriodAll: "all"}

func (p Period) IsValid() bool {
	return p >= PeriodToday && p <= PeriodAll
}

func (p Period) String() string {
	if p.IsValid() {
		return periodNames[p]
	}
	return fmt.Sprintf("Period(%d)", int(p))
}

// ParsePeriod accepts "today", "week", "month" and "all".
func ParsePeriod(name string) (Period, error) {
	for i, n := range periodNames {
		if n == name {
			return Period(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPeriod, name)
}

// Start returns the inclusive lower bound of the window ending at now.
// Week and month are rolling 7 and 30 day windows, today starts at local
// midnight and all starts at the Unix epoch.
func (p Period) Start(now time.Time) (time.Time, error) {
	switch p {
	case PeriodToday:
		return startOfDay(now), nil
	case PeriodWeek:
		return now.AddDate(0, 0, -7), nil
	case PeriodMonth:
		return now.AddDate(0, 0, -30), nil
	case PeriodAll:
		return time.Unix(0, 0).In(now.Location()), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %d", ErrInvalidPeriod, int(p))
	}
}
