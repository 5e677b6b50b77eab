package srs

import (
	"fmt"
	"sort"
	"time"
)

// DayForecast is the projected workload of one calendar day.
type DayForecast struct {
	Date        time.Time `json:"date"`
	Count       int       `json:"count"`
	NewCards    int       `json:"new_cards"`
	ReviewCards int       `json:"review_cards"`
}

// PredictWorkload buckets non-suspended cards by the calendar day their
// next review falls on, for days consecutive days starting with today.
// Cards due before today or after the horizon, and cards with no due time,
// land in no bucket.
func PredictWorkload(states []CardState, days int, now time.Time) ([]DayForecast, error) {
	if days < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDays, days)
	}

	today := startOfDay(now)
	buckets := make([]DayForecast, days)
	bounds := make([]time.Time, days+1)
	for i := range bounds {
		bounds[i] = addDays(today, i)
	}
	for i := range buckets {
		buckets[i].Date = bounds[i]
	}
	if days == 0 {
		return buckets, nil
	}

	for _, c := range states {
		if c.Suspended || !c.HasNextReview() {
			continue
		}
		at := c.NextReviewAt
		if at.Before(bounds[0]) || !at.Before(bounds[days]) {
			continue
		}
		// first boundary strictly after at, minus one, is the owning day
		i := sort.Search(len(bounds), func(k int) bool { return bounds[k].After(at) }) - 1

		if c.Status == New {
			buckets[i].NewCards++
		} else {
			buckets[i].ReviewCards++
		}
		buckets[i].Count++
	}
	return buckets, nil
}
