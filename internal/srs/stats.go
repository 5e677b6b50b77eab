package srs

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/samber/lo"
)

// ReviewEvent is one answered card, as kept in the review history.
type ReviewEvent struct {
	ID          string    `json:"id,omitempty"`
	CardID      string    `json:"card_id"`
	ReviewedAt  time.Time `json:"reviewed_at"`
	Quality     Quality   `json:"quality"`
	TimeTakenMs int64     `json:"time_taken_ms"`
}

// Validate rejects events whose rating or duration could not have been
// recorded by a real session.
func (e ReviewEvent) Validate() error {
	if err := e.Quality.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if e.TimeTakenMs < 0 {
		return fmt.Errorf("%w: negative time_taken_ms %d", ErrInvalidEvent, e.TimeTakenMs)
	}
	return nil
}

// DayStats is one point of the review time series.
type DayStats struct {
	Date    string `json:"date"` // YYYY-MM-DD in the caller's location
	Reviews int    `json:"reviews"`
	Correct int    `json:"correct"`
}

// Stats summarises the reviews of a period.
type Stats struct {
	TotalReviews     int        `json:"total_reviews"`
	CorrectReviews   int        `json:"correct_reviews"`
	IncorrectReviews int        `json:"incorrect_reviews"`
	RetentionRate    int        `json:"retention_rate"` // percent, 0 when there were no reviews
	AverageTimeMs    int64      `json:"average_time_ms"`
	TotalTimeMs      int64      `json:"total_time_ms"`
	ChartData        []DayStats `json:"chart_data"`

	// Skipped counts events dropped for failing validation.
	Skipped int `json:"skipped,omitempty"`
}

const dayLayout = "2006-01-02"

// ComputeStats aggregates the events reviewed at or after the period start.
// Malformed events are skipped and counted instead of failing the batch.
func ComputeStats(events []ReviewEvent, period Period, now time.Time) (Stats, error) {
	start, err := period.Start(now)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	inWindow := lo.Filter(events, func(e ReviewEvent, _ int) bool {
		if e.ReviewedAt.Before(start) {
			return false
		}
		if e.Validate() != nil {
			stats.Skipped++
			return false
		}
		return true
	})

	stats.TotalReviews = len(inWindow)
	stats.CorrectReviews = lo.CountBy(inWindow, func(e ReviewEvent) bool { return e.Quality.Passed() })
	stats.IncorrectReviews = stats.TotalReviews - stats.CorrectReviews
	stats.TotalTimeMs = lo.SumBy(inWindow, func(e ReviewEvent) int64 { return e.TimeTakenMs })
	if stats.TotalReviews > 0 {
		total := float64(stats.TotalReviews)
		stats.RetentionRate = int(math.Round(float64(stats.CorrectReviews) / total * 100))
		stats.AverageTimeMs = int64(math.Round(float64(stats.TotalTimeMs) / total))
	}

	byDay := lo.GroupBy(inWindow, func(e ReviewEvent) string {
		return e.ReviewedAt.In(now.Location()).Format(dayLayout)
	})
	days := lo.Keys(byDay)
	slices.Sort(days)

	stats.ChartData = make([]DayStats, 0, len(days))
	for _, day := range days {
		group := byDay[day]
		stats.ChartData = append(stats.ChartData, DayStats{
			Date:    day,
			Reviews: len(group),
			Correct: lo.CountBy(group, func(e ReviewEvent) bool { return e.Quality.Passed() }),
		})
	}
	return stats, nil
}
