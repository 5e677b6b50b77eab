package srs

import (
	"fmt"
	"time"
)

// PreviewOption is what answering with a given quality would do to a card.
type PreviewOption struct {
	Quality      Quality   `json:"quality"`
	IntervalDays int       `json:"interval_days"`
	NextReviewAt time.Time `json:"next_review_at"`
	Label        string    `json:"label"`
}

// PreviewIntervals runs Schedule once per quality against the same state,
// so a learner can see the consequence of each answer before choosing one.
func PreviewIntervals(state CardState, settings Settings, now time.Time) ([]PreviewOption, error) {
	options := make([]PreviewOption, 0, len(Qualities))
	for _, q := range Qualities {
		next, err := Schedule(state, q, settings, now)
		if err != nil {
			return nil, err
		}
		options = append(options, PreviewOption{
			Quality:      q,
			IntervalDays: next.IntervalDays,
			NextReviewAt: next.NextReviewAt,
			Label:        FormatInterval(next.IntervalDays),
		})
	}
	return options, nil
}

// FormatInterval renders an interval the way the study screen shows it.
// Months are 30 days and years 365, rounded to the nearest whole unit.
func FormatInterval(days int) string {
	switch {
	case days <= 0:
		return "hoje"
	case days == 1:
		return "1 dia"
	case days < 30:
		return fmt.Sprintf("%d dias", days)
	case days < 365:
		months := max(1, (days+15)/30)
		if months >= 12 {
			return "1 ano"
		}
		if months == 1 {
			return "1 mês"
		}
		return fmt.Sprintf("%d meses", months)
	default:
		years := (days + 182) / 365
		if years == 1 {
			return "1 ano"
		}
		return fmt.Sprintf("%d anos", years)
	}
}
